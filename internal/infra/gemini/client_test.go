package gemini_test

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"purpose-ideas/internal/infra/gemini"
)

type capturedRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string  `json:"responseMimeType"`
		Temperature      float64 `json:"temperature"`
		TopP             float64 `json:"topP"`
		ResponseSchema   struct {
			Type  string `json:"type"`
			Items struct {
				Type     string   `json:"type"`
				Required []string `json:"required"`
			} `json:"items"`
		} `json:"responseSchema"`
	} `json:"generationConfig"`
}

func newServer(t *testing.T, text string, status int, captured *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if captured != nil {
			if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
				t.Errorf("decoding request: %v", err)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": status, "message": "backend unavailable", "status": "UNAVAILABLE"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{
					"content": map[string]any{
						"role":  "model",
						"parts": []map[string]string{{"text": text}},
					},
				},
			},
		})
	}))
}

func TestClient_GenerateIdeas(t *testing.T) {
	body := `[{"title":"Lab Shorts","description":"Short lab videos."}]`
	var captured capturedRequest
	server := newServer(t, body, http.StatusOK, &captured)
	defer server.Close()

	client, err := gemini.NewClient(context.Background(), "test-key", gemini.Options{
		Model:   "gemini-test",
		BaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	text, err := client.GenerateIdeas(context.Background(), "my prompt")
	if err != nil {
		t.Fatalf("GenerateIdeas error: %v", err)
	}
	if text != body {
		t.Errorf("text: got %q, want %q", text, body)
	}

	if len(captured.Contents) != 1 || captured.Contents[0].Parts[0].Text != "my prompt" {
		t.Errorf("prompt not sent: %+v", captured.Contents)
	}
	cfg := captured.GenerationConfig
	if cfg.ResponseMimeType != "application/json" {
		t.Errorf("responseMimeType: got %q", cfg.ResponseMimeType)
	}
	if math.Abs(cfg.Temperature-0.8) > 1e-3 {
		t.Errorf("temperature: got %v, want 0.8", cfg.Temperature)
	}
	if math.Abs(cfg.TopP-0.95) > 1e-3 {
		t.Errorf("topP: got %v, want 0.95", cfg.TopP)
	}
	if cfg.ResponseSchema.Type != "ARRAY" || cfg.ResponseSchema.Items.Type != "OBJECT" {
		t.Errorf("schema: got %+v", cfg.ResponseSchema)
	}
	if strings.Join(cfg.ResponseSchema.Items.Required, ",") != "title,description" {
		t.Errorf("required: got %v", cfg.ResponseSchema.Items.Required)
	}
}

func TestClient_ServiceError(t *testing.T) {
	server := newServer(t, "", http.StatusServiceUnavailable, nil)
	defer server.Close()

	client, err := gemini.NewClient(context.Background(), "test-key", gemini.Options{
		Model:   "gemini-test",
		BaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	if _, err := client.GenerateIdeas(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	if _, err := gemini.NewClient(context.Background(), "", gemini.Options{}); err == nil {
		t.Fatal("expected error without API key")
	}
}
