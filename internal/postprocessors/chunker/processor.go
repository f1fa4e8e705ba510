// Package chunker provides a fixed-size text segmenter.
package chunker

import (
	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Segmenter = (*Processor)(nil)

// Processor splits text into contiguous, non-overlapping segments.
// Sizes and offsets are counted in characters (runes), so a multi-byte
// character is never split across two segments.
type Processor struct {
	chunkSize int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the default chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: domain.DefaultChunkSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the default chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Split segments text using the processor's default chunk size.
func (p *Processor) Split(text string) []domain.Segment {
	return p.Segment(text, p.chunkSize)
}

// Segment splits text so that segment i covers characters
// [i*chunkSize, min((i+1)*chunkSize, len(text))).
// Empty text or a non-positive chunkSize produces no segments.
func (p *Processor) Segment(text string, chunkSize int) []domain.Segment {
	if text == "" || chunkSize <= 0 {
		// Empty content produces no segments
		return nil
	}

	// Byte length is an upper bound on character length.
	estimated := len(text)/chunkSize + 1
	segments := make([]domain.Segment, 0, estimated)

	start := 0
	chars := 0
	for pos := range text {
		if chars == chunkSize {
			segments = append(segments, domain.Segment{
				Index:  len(segments),
				Offset: len(segments) * chunkSize,
				Text:   text[start:pos],
			})
			start = pos
			chars = 0
		}
		chars++
	}

	segments = append(segments, domain.Segment{
		Index:  len(segments),
		Offset: len(segments) * chunkSize,
		Text:   text[start:],
	})

	return segments
}
