package gigachat

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"gigachat/internal/llmclient"
	"gigachat/internal/sse"
	"gigachat/pkg/core"
)

const chatCompletionsEndpoint = "chat/completions"

// ChatStream yields the fragments of a streamed completion.
type ChatStream = sse.Stream[core.ChatStreamChunk]

// GenerationBuilder assembles a chat completion request.
type GenerationBuilder struct {
	client *Client
	req    core.ChatRequest
}

// Generate starts a chat completion request using the client's default model.
func (c *Client) Generate() *GenerationBuilder {
	return &GenerationBuilder{
		client: c,
		req:    core.ChatRequest{Model: c.model},
	}
}

// WithModel selects the model. Unknown identifiers are sent as is.
func (b *GenerationBuilder) WithModel(model core.ChatModel) *GenerationBuilder {
	b.req.Model = model
	return b
}

// WithMessages replaces the conversation.
func (b *GenerationBuilder) WithMessages(messages ...core.Message) *GenerationBuilder {
	b.req.Messages = slices.Clone(messages)
	return b
}

// WithTemperature sets the sampling temperature.
func (b *GenerationBuilder) WithTemperature(t float64) *GenerationBuilder {
	b.req.Temperature = &t
	return b
}

// WithTopP sets nucleus sampling.
func (b *GenerationBuilder) WithTopP(p float64) *GenerationBuilder {
	b.req.TopP = &p
	return b
}

// WithMaxTokens caps the completion length.
func (b *GenerationBuilder) WithMaxTokens(n int) *GenerationBuilder {
	b.req.MaxTokens = &n
	return b
}

// WithRepetitionPenalty sets the repetition penalty; 1.0 means none.
func (b *GenerationBuilder) WithRepetitionPenalty(p float64) *GenerationBuilder {
	b.req.RepetitionPenalty = &p
	return b
}

// WithFunctionCall sets the function calling mode.
func (b *GenerationBuilder) WithFunctionCall(fc core.FunctionCall) *GenerationBuilder {
	b.req.FunctionCall = fc
	return b
}

// WithFunctions offers functions to the model.
func (b *GenerationBuilder) WithFunctions(fns ...core.Function) *GenerationBuilder {
	b.req.Functions = fns
	return b
}

// Build returns the request without sending it, e.g. to queue it in a batch.
func (b *GenerationBuilder) Build() (*core.ChatRequest, error) {
	if len(b.req.Messages) == 0 {
		return nil, core.NewInvalidRequestError("messages are required", nil)
	}
	if b.req.FunctionCall.Mode == core.FunctionCallManual && b.req.FunctionCall.Name == "" {
		return nil, core.NewInvalidRequestError("function_call requires a function name", nil)
	}
	req := b.req
	req.Messages = slices.Clone(b.req.Messages)
	return &req, nil
}

// Execute sends the request and waits for the whole completion.
func (b *GenerationBuilder) Execute(ctx context.Context) (*core.ChatResponse, error) {
	req, err := b.Build()
	if err != nil {
		return nil, err
	}

	var resp core.ChatResponse
	err = b.client.exec.Do(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: chatCompletionsEndpoint,
		Body:     req,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	return &resp, nil
}

// ExecuteStream sends the request with streaming enabled. The returned stream
// must be closed, or iterated to the end, to release the connection.
func (b *GenerationBuilder) ExecuteStream(ctx context.Context) (*ChatStream, error) {
	req, err := b.Build()
	if err != nil {
		return nil, err
	}

	body, err := b.client.exec.DoStream(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: chatCompletionsEndpoint,
		Body:     req.WithStreaming(),
		Headers:  map[string]string{"Accept": "text/event-stream"},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion stream: %w", err)
	}
	return sse.NewStream[core.ChatStreamChunk](body, sse.WithLogger(b.client.logger)), nil
}
