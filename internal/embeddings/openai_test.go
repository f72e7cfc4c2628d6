package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOpenAIServer implements the OpenAI embeddings endpoint, returning
// a deterministic vector per input text.
type fakeOpenAIServer struct {
	mu       sync.Mutex
	requests int
	lastAuth string
	fail     bool
}

func (s *fakeOpenAIServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		s.lastAuth = r.Header.Get("Authorization")
		fail := s.fail
		s.mu.Unlock()

		if fail {
			http.Error(w, `{"error": {"message": "boom"}}`, http.StatusInternalServerError)
			return
		}

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		type datum struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Object string `json:"object"`
			Data   []datum `json:"data"`
			Model  string `json:"model"`
		}{Object: "list", Model: req.Model}
		for i, text := range req.Input {
			resp.Data = append(resp.Data, datum{
				Object:    "embedding",
				Embedding: []float32{float32(len(text)), 0.5},
				Index:     i,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	return mux
}

func (s *fakeOpenAIServer) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *fakeOpenAIServer) lastAuthHeader() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth
}

func (s *fakeOpenAIServer) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func newFakeOpenAIProvider(t *testing.T, cfg OpenAIConfig) (*OpenAIProvider, *fakeOpenAIServer) {
	t.Helper()
	fake := &fakeOpenAIServer{}
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	cfg.BaseURL = server.URL
	provider, err := NewOpenAIProvider(cfg)
	require.NoError(t, err)
	return provider, fake
}

func TestNewOpenAIProvider_RequiresModel(t *testing.T) {
	_, err := NewOpenAIProvider(OpenAIConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOpenAIProvider_Identity(t *testing.T) {
	provider, err := NewOpenAIProvider(OpenAIConfig{Model: "text-embedding-3-small"})
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, "text-embedding-3-small", provider.Model())
	assert.Equal(t, 1536, provider.Dimension())
}

func TestOpenAIProvider_EmbedDocuments(t *testing.T) {
	provider, fake := newFakeOpenAIProvider(t, OpenAIConfig{
		Model:  "BAAI/bge-small-en-v1.5",
		APIKey: "test-key",
	})

	vectors, err := provider.EmbedDocuments(context.Background(), []string{"one", "three"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{3, 0.5}, vectors[0])
	assert.Equal(t, []float32{5, 0.5}, vectors[1])
	assert.Equal(t, "Bearer test-key", fake.lastAuthHeader())
}

func TestOpenAIProvider_EmbedQuery(t *testing.T) {
	provider, fake := newFakeOpenAIProvider(t, OpenAIConfig{Model: "BAAI/bge-small-en-v1.5"})

	vector, err := provider.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 0.5}, vector)
	assert.Equal(t, 1, fake.requestCount())

	// Without an API key the client still authenticates with a
	// placeholder token, which TEI-style servers ignore.
	assert.Equal(t, "Bearer placeholder", fake.lastAuthHeader())
}

func TestOpenAIProvider_BatchSizeSplitsRequests(t *testing.T) {
	provider, fake := newFakeOpenAIProvider(t, OpenAIConfig{
		Model:     "BAAI/bge-small-en-v1.5",
		BatchSize: 2,
	})

	vectors, err := provider.EmbedDocuments(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, 2, fake.requestCount())
}

func TestOpenAIProvider_EmptyInput(t *testing.T) {
	provider, _ := newFakeOpenAIProvider(t, OpenAIConfig{Model: "BAAI/bge-small-en-v1.5"})

	_, err := provider.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = provider.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestOpenAIProvider_ServerErrorWrapped(t *testing.T) {
	provider, fake := newFakeOpenAIProvider(t, OpenAIConfig{Model: "BAAI/bge-small-en-v1.5"})
	fake.setFail(true)

	_, err := provider.EmbedDocuments(context.Background(), []string{"boom"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}
