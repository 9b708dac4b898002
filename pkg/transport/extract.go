package transport

import (
	"context"
	"encoding/base64"

	"github.com/WessleyAI/wessley-mvp/pkg/resilience"
)

type extractRequest struct {
	DataBase64 string `json:"data_base64"`
}

type extractedPage struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

type extractedImage struct {
	Page    int    `json:"page"`
	Path    string `json:"path"`
	Caption string `json:"caption"`
}

type extractResponse struct {
	Markdown string           `json:"markdown"`
	Pages    []extractedPage  `json:"pages"`
	Images   []extractedImage `json:"images"`
}

// ExtractClient talks to the document-extraction model server used by the
// optional ingest stage to turn uploaded PDFs into markdown.
type ExtractClient struct {
	c *client
}

// NewExtractClient creates an ExtractClient bound to baseURL.
func NewExtractClient(baseURL string, limiter *resilience.Limiter) *ExtractClient {
	return &ExtractClient{c: newClient(baseURL, limiter)}
}

// BreakerState reports the extract server call path's circuit breaker state.
func (e *ExtractClient) BreakerState() resilience.State { return e.c.breakerState() }

// Extract returns markdown text plus page and image maps for raw PDF bytes.
func (e *ExtractClient) Extract(ctx context.Context, data []byte) (string, []ExtractedPage, []ExtractedImage, error) {
	resp, err := doJSON[extractResponse](ctx, e.c, "/extract", extractRequest{
		DataBase64: base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return "", nil, nil, err
	}

	pages := make([]ExtractedPage, len(resp.Pages))
	for i, p := range resp.Pages {
		pages[i] = ExtractedPage{Page: p.Page, Text: p.Text}
	}
	images := make([]ExtractedImage, len(resp.Images))
	for i, im := range resp.Images {
		images[i] = ExtractedImage{Page: im.Page, Path: im.Path, Caption: im.Caption}
	}
	return resp.Markdown, pages, images, nil
}

// ExtractedPage mirrors stages.PageMap without introducing an import cycle.
type ExtractedPage struct {
	Page int
	Text string
}

// ExtractedImage mirrors stages.ImageRef without introducing an import cycle.
type ExtractedImage struct {
	Page    int
	Path    string
	Caption string
}
