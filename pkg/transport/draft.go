package transport

import (
	"context"

	"github.com/WessleyAI/wessley-mvp/pkg/resilience"
)

// ChatMessage is a single turn in a chat-style draft request.
type ChatMessage struct {
	Role    string `json:"role"` // system | user | assistant
	Content string `json:"content"`
}

// ChatRequest asks the drafting model to produce manuscript prose.
type ChatRequest struct {
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

// ChatResponse is the drafting model's reply.
type ChatResponse struct {
	Content string `json:"content"`
}

// DraftClient talks to the prose-generation model server used by the drafter stage.
type DraftClient struct {
	c *client
}

// NewDraftClient creates a DraftClient bound to baseURL.
func NewDraftClient(baseURL string, limiter *resilience.Limiter) *DraftClient {
	return &DraftClient{c: newClient(baseURL, limiter)}
}

// BreakerState reports the draft server call path's circuit breaker state.
func (d *DraftClient) BreakerState() resilience.State { return d.c.breakerState() }

// Chat sends a chat-style request and returns the model's reply.
func (d *DraftClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	return doJSON[ChatResponse](ctx, d.c, "/chat", req)
}
