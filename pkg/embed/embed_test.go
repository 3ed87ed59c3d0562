package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedder(t *testing.T) {
	t.Run("ollama", func(t *testing.T) {
		e, err := NewEmbedder(DefaultOllamaConfig())
		require.NoError(t, err)
		assert.IsType(t, &OllamaEmbedder{}, e)
		assert.Equal(t, 1024, e.Dimensions())
		assert.Equal(t, "mxbai-embed-large", e.Model())
	})

	t.Run("openai requires a key", func(t *testing.T) {
		_, err := NewEmbedder(DefaultOpenAIConfig(""))
		assert.Error(t, err)

		e, err := NewEmbedder(DefaultOpenAIConfig("sk-test"))
		require.NoError(t, err)
		assert.IsType(t, &OpenAIEmbedder{}, e)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewEmbedder(&Config{Provider: "bedrock"})
		assert.Error(t, err)
	})
}

func TestOllamaEmbedder(t *testing.T) {
	var prompts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompts = append(prompts, req.Prompt)

		json.NewEncoder(w).Encode(ollamaResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	cfg := DefaultOllamaConfig()
	cfg.APIURL = server.URL
	e := NewOllama(cfg)

	t.Run("single embed", func(t *testing.T) {
		vec, err := e.Embed(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	})

	t.Run("batch is one request per text", func(t *testing.T) {
		prompts = nil
		vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
		require.NoError(t, err)
		require.Len(t, vecs, 3)
		assert.Equal(t, []string{"a", "b", "c"}, prompts)
	})
}

func TestOllamaEmbedderServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	cfg := DefaultOllamaConfig()
	cfg.APIURL = server.URL

	_, err := NewOllama(cfg).Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestOpenAIEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req openaiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Input, 2)

		// Out-of-order response data; the client must restore input order.
		resp := openaiResponse{}
		resp.Data = append(resp.Data, struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}{Embedding: []float32{2, 2}, Index: 1})
		resp.Data = append(resp.Data, struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}{Embedding: []float32{1, 1}, Index: 0})
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	cfg := DefaultOpenAIConfig("sk-test")
	cfg.APIURL = server.URL
	e := NewOpenAI(cfg)

	vecs, err := e.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{1, 1}, vecs[0])
	assert.Equal(t, []float32{2, 2}, vecs[1])
}
