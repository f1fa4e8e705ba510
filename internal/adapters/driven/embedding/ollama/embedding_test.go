package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chunkvec/internal/core/domain"
)

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})

	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
	assert.Equal(t, DefaultBaseURL, svc.baseURL)
	assert.NoError(t, svc.Close())
}

func TestEmbed_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)
		assert.Equal(t, "segment text", req.Prompt)

		_, _ = w.Write([]byte(`{"embedding":[0.25,-0.5,1]}`))
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{BaseURL: server.URL + "/", Model: "all-minilm", Dimensions: 3})
	vec, err := svc.Embed(context.Background(), "segment text")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1}, vec)
}

func TestEmbed_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   domain.ServiceErrorKind
	}{
		{"model missing", http.StatusNotFound, `{"error":"model not found"}`, domain.ServiceErrorUpstream},
		{"overloaded", http.StatusTooManyRequests, `busy`, domain.ServiceErrorRateLimit},
		{"error field", http.StatusOK, `{"error":"out of memory"}`, domain.ServiceErrorUpstream},
		{"empty vector", http.StatusOK, `{"embedding":[]}`, domain.ServiceErrorResponse},
		{"bad json", http.StatusOK, `[`, domain.ServiceErrorResponse},
		{"dimension mismatch", http.StatusOK, `{"embedding":[1,2]}`, domain.ServiceErrorDimension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			svc := NewEmbeddingService(Config{BaseURL: server.URL, Dimensions: 3})
			_, err := svc.Embed(context.Background(), "text")

			var svcErr *domain.ServiceError
			require.True(t, errors.As(err, &svcErr))
			assert.Equal(t, tt.kind, svcErr.Kind)
			assert.Equal(t, "ollama", svcErr.Provider)
			assert.ErrorIs(t, err, domain.ErrService)
		})
	}
}

func TestEmbed_EmptyText(t *testing.T) {
	svc := NewEmbeddingService(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := svc.Embed(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
