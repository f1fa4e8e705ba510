package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocument_Length(t *testing.T) {
	doc := Document{URI: "file:///audit.md", Content: "héllo"}

	assert.Equal(t, 5, doc.Length())
	assert.False(t, doc.IsEmpty())
	assert.True(t, Document{}.IsEmpty())
}

func TestSegment_Length(t *testing.T) {
	seg := Segment{Index: 1, Offset: 4, Text: "日本語"}
	assert.Equal(t, 3, seg.Length())
}

func TestEmbeddingRecord_Validate(t *testing.T) {
	tests := []struct {
		name   string
		record EmbeddingRecord
		err    error
	}{
		{"valid", EmbeddingRecord{ChunkIndex: 0, Vector: []float32{0.1}}, nil},
		{"negative index", EmbeddingRecord{ChunkIndex: -1, Vector: []float32{0.1}}, ErrNegativeIndex},
		{"empty vector", EmbeddingRecord{ChunkIndex: 2}, ErrEmptyVector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestEmbeddingRecord_Dimensions(t *testing.T) {
	rec := EmbeddingRecord{ChunkIndex: 0, Vector: make([]float32, 1536)}
	assert.Equal(t, 1536, rec.Dimensions())
}

func TestStoreOutcome_String(t *testing.T) {
	assert.Equal(t, "stored", OutcomeStored.String())
	assert.Equal(t, "already_present", OutcomeAlreadyPresent.String())
	assert.Equal(t, "unknown", StoreOutcome(0).String())
}
