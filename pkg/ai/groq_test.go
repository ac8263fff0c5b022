package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/johnquangdev/meetcore/pkg/config"
)

func TestComplete_Success(t *testing.T) {
	// Mock Groq server
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST got %s", r.Method)
		}
		if r.URL.Path != "/openai/v1/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header %q", got)
		}
		var payload ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if payload.ResponseFormat == nil || payload.ResponseFormat.Type != "json_object" {
			t.Fatalf("expected json_object response format")
		}
		if len(payload.Messages) != 2 || payload.Messages[0].Role != "system" {
			t.Fatalf("unexpected messages %+v", payload.Messages)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"summary\":\"ok\"}"}}]}`))
	}))
	defer ts.Close()

	client := NewGroqClient(&config.GroqConfig{APIKey: "test-key", BaseURL: ts.URL, Model: "test-model"})

	out, err := client.Complete(context.Background(), "system", "prompt")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if out != `{"summary":"ok"}` {
		t.Fatalf("unexpected content %s", out)
	}
}

func TestComplete_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("overloaded"))
	}))
	defer ts.Close()

	client := NewGroqClient(&config.GroqConfig{APIKey: "test-key", BaseURL: ts.URL})

	_, err := client.Complete(context.Background(), "system", "prompt")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "status 503") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer ts.Close()

	client := NewGroqClient(&config.GroqConfig{APIKey: "test-key", BaseURL: ts.URL})

	if _, err := client.Complete(context.Background(), "system", "prompt"); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}

func TestComplete_RespectsContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	client := NewGroqClient(&config.GroqConfig{APIKey: "test-key", BaseURL: ts.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := client.Complete(ctx, "system", "prompt"); err == nil {
		t.Fatalf("expected timeout error")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("context deadline not honored")
	}
}

func TestComplete_NotConfigured(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	client := NewGroqClient(&config.GroqConfig{BaseURL: "http://127.0.0.1:1"})

	if client.Configured() {
		t.Fatalf("expected unconfigured client")
	}
	if _, err := client.Complete(context.Background(), "s", "p"); err == nil {
		t.Fatalf("expected error without api key")
	}
}
