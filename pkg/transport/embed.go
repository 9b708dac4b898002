package transport

import (
	"context"

	"github.com/WessleyAI/wessley-mvp/pkg/resilience"
)

type embedRequest struct {
	Texts     []string `json:"texts"`
	BatchHint int      `json:"batch_hint,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EmbedClient talks to the embedding model server used by the cartographer
// (claim upsert) and critic (conflict neighborhood search) stages.
type EmbedClient struct {
	c *client
}

// NewEmbedClient creates an EmbedClient bound to baseURL.
func NewEmbedClient(baseURL string, limiter *resilience.Limiter) *EmbedClient {
	return &EmbedClient{c: newClient(baseURL, limiter)}
}

// BreakerState reports the embed server call path's circuit breaker state.
func (e *EmbedClient) BreakerState() resilience.State { return e.c.breakerState() }

// Embed returns one embedding vector per input text, in order. batchHint
// suggests (but does not guarantee) the server-side batch size.
func (e *EmbedClient) Embed(ctx context.Context, texts []string, batchHint int) ([][]float32, error) {
	resp, err := doJSON[embedResponse](ctx, e.c, "/embed", embedRequest{Texts: texts, BatchHint: batchHint})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}
