package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLogicClientGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"hello"}`))
	}))
	defer srv.Close()

	c := NewLogicClient(srv.URL, nil)
	text, err := c.Generate(context.Background(), "prompt", "", SamplingParams{Temperature: 0.2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello" {
		t.Fatalf("expected hello, got %q", text)
	}
}

func TestLogicClientNotFoundNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewLogicClient(srv.URL, nil)
	_, err := c.Generate(context.Background(), "prompt", "", SamplingParams{})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call for a non-retryable status, got %d", calls)
	}
}

func TestLogicClientRetriesTransient(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"text":"recovered"}`))
	}))
	defer srv.Close()

	c := NewLogicClient(srv.URL, nil)
	text, err := c.Generate(context.Background(), "prompt", "", SamplingParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "recovered" {
		t.Fatalf("expected recovered, got %q", text)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestEmbedClientSchemaMismatchIsPermanent(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewEmbedClient(srv.URL, nil)
	_, err := c.Embed(context.Background(), []string{"a"}, 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call for a schema-parse failure, got %d", calls)
	}
}

func TestDraftClientChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":"drafted text"}`))
	}))
	defer srv.Close()

	c := NewDraftClient(srv.URL, nil)
	resp, err := c.Chat(context.Background(), ChatRequest{Messages: []ChatMessage{{Role: "user", Content: "go"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "drafted text" {
		t.Fatalf("expected drafted text, got %q", resp.Content)
	}
}
