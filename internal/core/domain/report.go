package domain

import "time"

// SegmentState tracks a segment through the pipeline.
//
//	PENDING -> EMBEDDING -> EMBEDDED -> STORING -> STORED | ALREADY_PRESENT
//	EMBEDDING -> FAILED, STORING -> FAILED
type SegmentState string

// Segment states.
const (
	SegmentPending        SegmentState = "pending"
	SegmentEmbedding      SegmentState = "embedding"
	SegmentEmbedded       SegmentState = "embedded"
	SegmentStoring        SegmentState = "storing"
	SegmentStored         SegmentState = "stored"
	SegmentAlreadyPresent SegmentState = "already_present"
	SegmentFailed         SegmentState = "failed"
)

// String returns the string representation.
func (s SegmentState) String() string {
	return string(s)
}

// IsTerminal returns true if no further transition is possible.
func (s SegmentState) IsTerminal() bool {
	return s == SegmentStored || s == SegmentAlreadyPresent || s == SegmentFailed
}

// CanTransition reports whether moving from s to next is allowed.
func (s SegmentState) CanTransition(next SegmentState) bool {
	switch s {
	case SegmentPending:
		return next == SegmentEmbedding
	case SegmentEmbedding:
		return next == SegmentEmbedded || next == SegmentFailed
	case SegmentEmbedded:
		return next == SegmentStoring
	case SegmentStoring:
		return next == SegmentStored || next == SegmentAlreadyPresent || next == SegmentFailed
	default:
		return false
	}
}

// SegmentFailure records why a segment ended in the FAILED state.
type SegmentFailure struct {
	Index  int          `json:"index" yaml:"index"`
	Offset int          `json:"offset" yaml:"offset"`
	Stage  SegmentState `json:"stage" yaml:"stage"`
	Reason string       `json:"reason" yaml:"reason"`
}

// PipelineReport is the aggregated outcome of one run.
type PipelineReport struct {
	// RunID uniquely identifies the run in logs.
	RunID string `json:"run_id" yaml:"run_id"`

	// Source is the document URI.
	Source string `json:"source" yaml:"source"`

	// ChunkSize is the segment size used for the run.
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`

	// Policy is the failure policy used for the run.
	Policy FailurePolicy `json:"policy" yaml:"policy"`

	// Total is the number of segments the document was split into.
	Total int `json:"total" yaml:"total"`

	// Stored counts newly written records.
	Stored int `json:"stored" yaml:"stored"`

	// AlreadyPresent counts no-op writes for existing indices.
	AlreadyPresent int `json:"already_present" yaml:"already_present"`

	// Failed counts segments that ended in FAILED.
	Failed int `json:"failed" yaml:"failed"`

	// Failures lists every failed segment in index order.
	Failures []SegmentFailure `json:"failures,omitempty" yaml:"failures,omitempty"`

	// Aborted is true when the run stopped before processing every segment.
	Aborted bool `json:"aborted" yaml:"aborted"`

	// FatalError is the first error that aborted the run, if any.
	FatalError error `json:"-" yaml:"-"`

	// FatalMessage mirrors FatalError for serialised output.
	FatalMessage string `json:"fatal_error,omitempty" yaml:"fatal_error,omitempty"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}

// Processed returns the number of segments that reached a terminal state.
func (r *PipelineReport) Processed() int {
	return r.Stored + r.AlreadyPresent + r.Failed
}

// Succeeded returns true if the run finished with no failed segment.
func (r *PipelineReport) Succeeded() bool {
	return r.FatalError == nil && r.Failed == 0
}

// Duration returns the wall-clock time of the run.
func (r *PipelineReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RecordOutcome counts a successful store outcome.
func (r *PipelineReport) RecordOutcome(o StoreOutcome) {
	switch o {
	case OutcomeStored:
		r.Stored++
	case OutcomeAlreadyPresent:
		r.AlreadyPresent++
	}
}

// RecordFailure counts a failed segment.
func (r *PipelineReport) RecordFailure(segErr *SegmentError) {
	r.Failed++
	r.Failures = append(r.Failures, SegmentFailure{
		Index:  segErr.Index,
		Offset: segErr.Offset,
		Stage:  segErr.Stage,
		Reason: segErr.Err.Error(),
	})
}

// Abort marks the run as stopped by err. Only the first error is kept.
func (r *PipelineReport) Abort(err error) {
	r.Aborted = true
	if r.FatalError == nil {
		r.FatalError = err
		r.FatalMessage = err.Error()
	}
}
