package domain

import "unicode/utf8"

// Document is the source text handed to the pipeline.
// It is read once at the start of a run and never modified.
type Document struct {
	// URI is the location the document was read from (file path or URL).
	URI string

	// Content is the full text of the document.
	Content string
}

// Length returns the document length in characters (Unicode code points).
func (d Document) Length() int {
	return utf8.RuneCountInString(d.Content)
}

// IsEmpty returns true if the document has no content.
func (d Document) IsEmpty() bool {
	return d.Content == ""
}

// Segment is a contiguous slice of a Document and the unit of embedding.
// Segments are transient: they are dropped once their embedding is computed.
type Segment struct {
	// Index is the 0-based position in the ordered segment sequence.
	Index int

	// Offset is the character position in the Document where this segment starts.
	Offset int

	// Text is the segment content. Never empty.
	Text string
}

// Length returns the segment length in characters.
func (s Segment) Length() int {
	return utf8.RuneCountInString(s.Text)
}

// EmbeddingRecord is a persisted (chunk index, vector) pair.
// Records are created once and never updated in place.
type EmbeddingRecord struct {
	// ChunkIndex refers to Segment.Index. Unique within a store.
	ChunkIndex int `json:"chunk_index" yaml:"chunk_index"`

	// Vector is the embedding, with the model's fixed dimensionality.
	Vector []float32 `json:"embedding" yaml:"embedding"`
}

// Dimensions returns the vector length.
func (r EmbeddingRecord) Dimensions() int {
	return len(r.Vector)
}

// Validate checks the record can be persisted.
func (r EmbeddingRecord) Validate() error {
	if r.ChunkIndex < 0 {
		return ErrNegativeIndex
	}
	if len(r.Vector) == 0 {
		return ErrEmptyVector
	}
	return nil
}

// StoreOutcome describes the result of an idempotent insert.
type StoreOutcome int

// Possible store outcomes.
const (
	// OutcomeStored means a new row was written.
	OutcomeStored StoreOutcome = iota + 1

	// OutcomeAlreadyPresent means a row for the index existed and was left untouched.
	OutcomeAlreadyPresent
)

// String returns the string representation.
func (o StoreOutcome) String() string {
	switch o {
	case OutcomeStored:
		return "stored"
	case OutcomeAlreadyPresent:
		return "already_present"
	default:
		return "unknown"
	}
}
