package transport

import (
	"context"

	"github.com/WessleyAI/wessley-mvp/pkg/resilience"
)

// SamplingParams controls generation determinism for the logic server.
type SamplingParams struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type generateRequest struct {
	Prompt      string         `json:"prompt"`
	SchemaRegex string         `json:"schema_regex,omitempty"`
	Sampling    SamplingParams `json:"sampling"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// LogicClient talks to the structured-extraction model server used by the
// cartographer and verifier stages.
type LogicClient struct {
	c *client
}

// NewLogicClient creates a LogicClient bound to baseURL.
func NewLogicClient(baseURL string, limiter *resilience.Limiter) *LogicClient {
	return &LogicClient{c: newClient(baseURL, limiter)}
}

// BreakerState reports the logic server call path's circuit breaker state.
func (l *LogicClient) BreakerState() resilience.State { return l.c.breakerState() }

// Generate produces text constrained to schemaRegex (when non-empty).
func (l *LogicClient) Generate(ctx context.Context, prompt, schemaRegex string, sampling SamplingParams) (string, error) {
	resp, err := doJSON[generateResponse](ctx, l.c, "/generate", generateRequest{
		Prompt:      prompt,
		SchemaRegex: schemaRegex,
		Sampling:    sampling,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
