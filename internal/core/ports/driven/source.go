package driven

import (
	"context"

	"github.com/custodia-labs/chunkvec/internal/core/domain"
)

// DocumentSource reads a whole document into memory.
type DocumentSource interface {
	// Read loads the document identified by uri (file path, file:// or http(s):// URL).
	Read(ctx context.Context, uri string) (*domain.Document, error)
}
