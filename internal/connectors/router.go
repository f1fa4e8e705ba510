package connectors

import (
	"context"
	"net/url"
	"strings"

	"github.com/custodia-labs/chunkvec/internal/connectors/filesystem"
	"github.com/custodia-labs/chunkvec/internal/connectors/web"
	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driven"
)

// Ensure Router implements the interface.
var _ driven.DocumentSource = (*Router)(nil)

// Router dispatches a source URI to the reader for its scheme.
type Router struct {
	local  driven.DocumentSource
	remote driven.DocumentSource
}

// NewRouter creates a router over the given readers.
func NewRouter(local, remote driven.DocumentSource) *Router {
	return &Router{local: local, remote: remote}
}

// NewDefaultRouter creates a router with the filesystem and web readers.
func NewDefaultRouter() *Router {
	return NewRouter(filesystem.New(0), web.New(web.Config{}))
}

// Read reads the document at uri. Bare paths and file:// go to the local
// reader, http:// and https:// to the remote one.
func (r *Router) Read(ctx context.Context, uri string) (*domain.Document, error) {
	switch scheme(uri) {
	case "", "file":
		return r.local.Read(ctx, uri)
	case "http", "https":
		if r.remote == nil {
			return nil, domain.ConfigError("remote sources are not enabled")
		}
		return r.remote.Read(ctx, uri)
	default:
		return nil, domain.ConfigError("unsupported source scheme in %q", uri)
	}
}

// scheme returns the lower-cased URI scheme, or "" for plain paths.
// Windows drive letters ("C:\...") are treated as paths.
func scheme(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || len(u.Scheme) <= 1 {
		return ""
	}
	return strings.ToLower(u.Scheme)
}
