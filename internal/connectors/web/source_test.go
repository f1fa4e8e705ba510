package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chunkvec/internal/core/domain"
)

func TestSource_Read(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/doc.md", r.URL.Path)
		_, _ = w.Write([]byte("# Remote\n\nbody"))
	}))
	defer server.Close()

	doc, err := New(Config{}).Read(context.Background(), server.URL+"/doc.md")
	require.NoError(t, err)
	assert.Equal(t, "# Remote\n\nbody", doc.Content)
	assert.Equal(t, server.URL+"/doc.md", doc.URI)
}

func TestSource_Read_Failures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		case "/binary":
			_, _ = w.Write([]byte{0xff, 0xfe})
		}
	}))
	defer server.Close()

	src := New(Config{MaxSize: 32})
	for _, path := range []string{"/missing", "/big", "/binary"} {
		t.Run(path, func(t *testing.T) {
			_, err := src.Read(context.Background(), server.URL+path)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestSource_Read_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := New(Config{}).Read(context.Background(), url+"/doc.md")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSource_Read_InvalidURL(t *testing.T) {
	_, err := New(Config{}).Read(context.Background(), "http://[::1")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
