package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kamdev/ragpipe/internal/core/domain"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := New("test-key", Options{BaseURL: url, RequestsPerSecond: 1000, Burst: 1000})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("  ", Options{})
	if !domain.IsKind(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestEmbedOrdersByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header: %s", got)
		}
		// Deliberately out of order: index must win.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{1}},
				{"index": 0, "embedding": []float32{0}},
			},
		})
	}))
	defer server.Close()

	embedder := NewEmbedder(newTestClient(t, server.URL), "text-embedding-3-small")
	vectors, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if vectors[0][0] != 0 || vectors[1][0] != 1 {
		t.Fatalf("vectors not reordered by index: %v", vectors)
	}
}

func TestGenerateMapsUnauthorizedToInvalidConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	gen := NewGenerator(newTestClient(t, server.URL), "remote", "gpt-4o-mini", 0)
	_, err := gen.Generate(context.Background(), "sys", "prompt")
	if !domain.IsKind(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestGenerateMapsRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer server.Close()

	gen := NewGenerator(newTestClient(t, server.URL), "remote", "gpt-4o-mini", 0)
	_, err := gen.Generate(context.Background(), "sys", "prompt")
	if !domain.IsKind(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestGenerateReadsFirstChoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"grounded answer"}}]}`))
	}))
	defer server.Close()

	gen := NewGenerator(newTestClient(t, server.URL), "remote", "gpt-4o-mini", 0)
	got, err := gen.Generate(context.Background(), "sys", "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "grounded answer" {
		t.Fatalf("unexpected answer: %q", got)
	}
}
