package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGeminiClient_Generate(t *testing.T) {
	var gotReq geminiGenerateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{
					"content": map[string]any{
						"parts": []map[string]any{{"text": "3,1,"}, {"text": "2"}},
					},
					"finishReason": "STOP",
				},
			},
		})
	}))
	defer server.Close()

	c := NewGeminiClient("test-key", WithBaseURL(server.URL), WithModel("gemini-1.5-flash"))

	out, err := c.Generate(context.Background(), "rank these", GenerateOptions{Temperature: 0, MaxTokens: 64})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "3,1,2" {
		t.Errorf("expected parts concatenated, got %q", out)
	}
	if len(gotReq.Contents) != 1 || gotReq.Contents[0].Parts[0].Text != "rank these" {
		t.Errorf("unexpected request body: %+v", gotReq)
	}
}

func TestGeminiClient_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer server.Close()

	c := NewGeminiClient("test-key", WithBaseURL(server.URL))

	if _, err := c.Generate(context.Background(), "prompt", GenerateOptions{}); err == nil {
		t.Error("expected error for empty candidates")
	}
}

func TestGeminiClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusForbidden)
	}))
	defer server.Close()

	c := NewGeminiClient("bad-key", WithBaseURL(server.URL))

	if _, err := c.Generate(context.Background(), "prompt", GenerateOptions{}); err == nil {
		t.Error("expected error for non-200 status")
	}
}
