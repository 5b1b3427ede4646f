package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGeminiEmbedder_Embed(t *testing.T) {
	var gotTask string
	var gotText string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		gotTask = req.TaskType
		if len(req.Content.Parts) > 0 {
			gotText = req.Content.Parts[0].Text
		}

		json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float32{0.1, 0.2, 0.3}},
		})
	}))
	defer server.Close()

	e := NewGeminiEmbedder(GeminiConfig{
		APIKey:    "test-key",
		BaseURL:   server.URL,
		Dimension: 3,
	})

	embedding, err := e.Embed(context.Background(), "java developer", TaskQuery)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(embedding) != 3 {
		t.Errorf("expected 3 values, got %d", len(embedding))
	}
	if gotTask != string(TaskQuery) {
		t.Errorf("taskType = %q, want %q", gotTask, TaskQuery)
	}
	if gotText != "java developer" {
		t.Errorf("text = %q", gotText)
	}
}

func TestGeminiEmbedder_EmptyTextUsesPlaceholder(t *testing.T) {
	var gotText string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiEmbedRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Content.Parts) > 0 {
			gotText = req.Content.Parts[0].Text
		}
		json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float32{1}},
		})
	}))
	defer server.Close()

	e := NewGeminiEmbedder(GeminiConfig{APIKey: "k", BaseURL: server.URL, Dimension: 1})

	if _, err := e.Embed(context.Background(), "   ", TaskQuery); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if gotText != PlaceholderText {
		t.Errorf("expected placeholder %q, got %q", PlaceholderText, gotText)
	}
}

func TestGeminiEmbedder_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	e := NewGeminiEmbedder(GeminiConfig{APIKey: "k", BaseURL: server.URL})

	if _, err := e.Embed(context.Background(), "query", TaskQuery); err == nil {
		t.Error("expected error for non-200 response")
	}
}

// failingEmbedder always errors, for exercising the fallback wrapper.
type failingEmbedder struct{ dim int }

func (f *failingEmbedder) Embed(context.Context, string, Task) ([]float32, error) {
	return nil, errors.New("provider down")
}

func (f *failingEmbedder) EmbedBatch(context.Context, []string, Task) ([][]float32, error) {
	return nil, errors.New("provider down")
}

func (f *failingEmbedder) Dimension() int    { return f.dim }
func (f *failingEmbedder) ModelName() string { return "failing" }

func TestZeroFallback_DegradesToZeroVector(t *testing.T) {
	z := WithZeroFallback(&failingEmbedder{dim: 4})

	embedding, err := z.Embed(context.Background(), "anything", TaskQuery)
	if err != nil {
		t.Fatalf("ZeroFallback must never error: %v", err)
	}
	if len(embedding) != 4 {
		t.Fatalf("expected dimension 4, got %d", len(embedding))
	}
	for i, v := range embedding {
		if v != 0 {
			t.Errorf("expected zero vector, got %f at %d", v, i)
		}
	}
}

func TestZeroFallback_Batch(t *testing.T) {
	z := WithZeroFallback(&failingEmbedder{dim: 2})

	results, err := z.EmbedBatch(context.Background(), []string{"a", "b", "c"}, TaskDocument)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if len(r) != 2 {
			t.Errorf("expected dimension 2, got %d", len(r))
		}
	}
}
