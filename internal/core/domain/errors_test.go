package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrConfiguration", ErrConfiguration},
		{"ErrService", ErrService},
		{"ErrStorage", ErrStorage},
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrMissingCredential", ErrMissingCredential},
		{"ErrInvalidChunkSize", ErrInvalidChunkSize},
		{"ErrEmptyVector", ErrEmptyVector},
		{"ErrNegativeIndex", ErrNegativeIndex},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
		{"ErrStoreClosed", ErrStoreClosed},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrAuthInvalid", ErrAuthInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestConfigError(t *testing.T) {
	err := ConfigError("%w: %s", ErrMissingCredential, "openai")

	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.True(t, errors.Is(err, ErrMissingCredential))
	assert.False(t, errors.Is(err, ErrService))
	assert.Contains(t, err.Error(), "openai")
}

func TestServiceError_Is(t *testing.T) {
	tests := []struct {
		kind    ServiceErrorKind
		target  error
		matches bool
	}{
		{ServiceErrorRateLimit, ErrRateLimited, true},
		{ServiceErrorAuth, ErrAuthInvalid, true},
		{ServiceErrorDimension, ErrDimensionMismatch, true},
		{ServiceErrorNetwork, ErrRateLimited, false},
		{ServiceErrorResponse, ErrAuthInvalid, false},
		{ServiceErrorResponse, ErrStorage, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := &ServiceError{Provider: "openai", Kind: tt.kind, Err: errors.New("boom")}
			assert.True(t, errors.Is(err, ErrService))
			assert.Equal(t, tt.matches, errors.Is(err, tt.target))
		})
	}
}

func TestServiceError_Retryable(t *testing.T) {
	tests := []struct {
		name      string
		err       *ServiceError
		retryable bool
	}{
		{"rate limit", &ServiceError{Kind: ServiceErrorRateLimit}, true},
		{"network", &ServiceError{Kind: ServiceErrorNetwork}, true},
		{"server error", &ServiceError{Kind: ServiceErrorUpstream, StatusCode: http.StatusBadGateway}, true},
		{"client error", &ServiceError{Kind: ServiceErrorUpstream, StatusCode: http.StatusBadRequest}, false},
		{"auth", &ServiceError{Kind: ServiceErrorAuth, StatusCode: http.StatusUnauthorized}, false},
		{"malformed", &ServiceError{Kind: ServiceErrorResponse}, false},
		{"dimension", &ServiceError{Kind: ServiceErrorDimension}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.err.Retryable())
		})
	}
}

func TestServiceError_Message(t *testing.T) {
	err := &ServiceError{
		Provider:   "openai",
		Kind:       ServiceErrorRateLimit,
		StatusCode: http.StatusTooManyRequests,
		RetryAfter: 2 * time.Second,
		Err:        errors.New("slow down"),
	}
	assert.Equal(t, "openai: rate_limit (status 429): slow down", err.Error())

	noStatus := &ServiceError{Provider: "ollama", Kind: ServiceErrorNetwork, Err: errors.New("refused")}
	assert.Equal(t, "ollama: network: refused", noStatus.Error())
}

func TestStorageError(t *testing.T) {
	cause := errors.New("connection reset")
	err := &StorageError{Backend: "postgres", Op: "insert", Err: cause}

	assert.True(t, errors.Is(err, ErrStorage))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrService))
	assert.Equal(t, "postgres: insert: connection reset", err.Error())
}

func TestSegmentError(t *testing.T) {
	svcErr := &ServiceError{Provider: "openai", Kind: ServiceErrorAuth, Err: errors.New("bad key")}
	err := fmt.Errorf("run: %w", &SegmentError{Index: 3, Offset: 6000, Stage: SegmentEmbedding, Err: svcErr})

	var segErr *SegmentError
	require.True(t, errors.As(err, &segErr))
	assert.Equal(t, 3, segErr.Index)
	assert.Equal(t, 6000, segErr.Offset)
	assert.True(t, errors.Is(err, ErrService))
	assert.True(t, errors.Is(err, ErrAuthInvalid))
	assert.Contains(t, err.Error(), "segment 3 (offset 6000) failed while embedding")
}
