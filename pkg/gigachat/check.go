package gigachat

import (
	"context"
	"fmt"
	"net/http"

	"gigachat/internal/llmclient"
	"gigachat/pkg/core"
)

// CheckBuilder assembles an AI-text detection request.
type CheckBuilder struct {
	client *Client
	text   *string
	model  core.CheckModel
}

// Check starts an AI-text detection request.
func (c *Client) Check() *CheckBuilder {
	return &CheckBuilder{client: c, model: core.DefaultCheckModel}
}

// WithText sets the text to check.
func (b *CheckBuilder) WithText(text string) *CheckBuilder {
	b.text = &text
	return b
}

// WithModel selects the detection model.
func (b *CheckBuilder) WithModel(model core.CheckModel) *CheckBuilder {
	b.model = model
	return b
}

// Execute sends the request. It fails without a network call when no text was set.
func (b *CheckBuilder) Execute(ctx context.Context) (*core.CheckResponse, error) {
	if b.text == nil {
		return nil, core.NewInvalidRequestError("text is missing", nil)
	}

	var resp core.CheckResponse
	err := b.client.exec.Do(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "ai/check",
		Body:     core.CheckRequest{Input: *b.text, Model: b.model},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("ai check: %w", err)
	}
	return &resp, nil
}
