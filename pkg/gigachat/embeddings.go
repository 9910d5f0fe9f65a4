package gigachat

import (
	"context"
	"fmt"
	"net/http"

	"gigachat/internal/llmclient"
	"gigachat/pkg/core"
)

// Embeddings returns one vector per input text. An empty model uses the
// client's default embedding model.
func (c *Client) Embeddings(ctx context.Context, input core.EmbeddingInput, model core.EmbeddingModel) (*core.EmbeddingResponse, error) {
	if len(input.Texts) == 0 {
		return nil, core.NewInvalidRequestError("embedding input is empty", nil)
	}
	if model == "" {
		model = c.embeddingModel
	}

	var resp core.EmbeddingResponse
	err := c.exec.Do(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "embeddings",
		Body:     core.EmbeddingRequest{Model: model, Input: input},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	return &resp, nil
}
