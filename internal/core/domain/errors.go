package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent pipeline failures.
// Adapters wrap them so callers can classify with errors.Is.
var (
	// ErrConfiguration indicates a pre-flight problem: missing credential,
	// unreadable source, invalid chunk size. No segment is processed.
	ErrConfiguration = errors.New("configuration error")

	// ErrService indicates the embedding service failed for a segment.
	ErrService = errors.New("embedding service error")

	// ErrStorage indicates a write to the embedding store failed.
	ErrStorage = errors.New("storage error")

	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider, backend or policy.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrMissingCredential indicates the embedding provider needs an API key and none was given.
	ErrMissingCredential = errors.New("missing credential")

	// ErrInvalidChunkSize indicates a chunk size that is not positive.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrEmptyVector indicates an embedding with no elements.
	ErrEmptyVector = errors.New("empty vector")

	// ErrNegativeIndex indicates a chunk index below zero.
	ErrNegativeIndex = errors.New("negative chunk index")

	// ErrDimensionMismatch indicates a vector whose length differs from the configured dimensionality.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrStoreClosed indicates the store has already been closed.
	ErrStoreClosed = errors.New("store closed")

	// ErrRateLimited indicates the embedding API rejected the request for rate reasons.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuthInvalid indicates the embedding API rejected the credential.
	ErrAuthInvalid = errors.New("authentication invalid")
)

// ConfigError builds a configuration error for the given cause.
func ConfigError(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrConfiguration, fmt.Errorf(format, args...))
}

// ServiceErrorKind classifies embedding service failures.
type ServiceErrorKind string

// Service error kinds.
const (
	ServiceErrorAuth      ServiceErrorKind = "auth"
	ServiceErrorRateLimit ServiceErrorKind = "rate_limit"
	ServiceErrorNetwork   ServiceErrorKind = "network"
	ServiceErrorUpstream  ServiceErrorKind = "upstream"
	ServiceErrorResponse  ServiceErrorKind = "malformed_response"
	ServiceErrorDimension ServiceErrorKind = "dimension"
)

// ServiceError is returned by embedding adapters for every failed call.
type ServiceError struct {
	// Provider is the embedding provider name (e.g. "openai").
	Provider string

	// Kind classifies the failure.
	Kind ServiceErrorKind

	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int

	// RetryAfter is the server-provided backoff hint, if any.
	RetryAfter time.Duration

	// Err is the underlying cause.
	Err error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is reports ErrService for every ServiceError, plus the kind-specific sentinels.
func (e *ServiceError) Is(target error) bool {
	switch target {
	case ErrService:
		return true
	case ErrRateLimited:
		return e.Kind == ServiceErrorRateLimit
	case ErrAuthInvalid:
		return e.Kind == ServiceErrorAuth
	case ErrDimensionMismatch:
		return e.Kind == ServiceErrorDimension
	}
	return false
}

// Retryable returns true for transient failures worth another attempt.
func (e *ServiceError) Retryable() bool {
	switch e.Kind {
	case ServiceErrorRateLimit, ServiceErrorNetwork:
		return true
	case ServiceErrorUpstream:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// StorageError is returned by store adapters for failed operations.
// Duplicate-key conflicts on chunk_index are never reported as StorageError.
type StorageError struct {
	// Backend is the store name (e.g. "postgres").
	Backend string

	// Op is the operation that failed (e.g. "insert", "connect").
	Op string

	// Err is the underlying cause.
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports ErrStorage for every StorageError.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// SegmentError attaches the segment position to a per-segment failure
// so it can be traced back to a slice of the source document.
type SegmentError struct {
	Index  int
	Offset int
	Stage  SegmentState
	Err    error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d (offset %d) failed while %s: %v", e.Index, e.Offset, e.Stage, e.Err)
}

func (e *SegmentError) Unwrap() error {
	return e.Err
}
