package gigachat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigachat/pkg/core"
)

func TestEmbeddings(t *testing.T) {
	fs := newFakeService(t)
	var req core.EmbeddingRequest
	fs.handle("POST embeddings", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&req)
		data := make([]core.Embedding, len(req.Input.Texts))
		for i := range data {
			data[i] = core.Embedding{Embedding: []float32{0.1, 0.2}, Index: i}
		}
		writeJSON(w, core.EmbeddingResponse{Model: req.Model, Data: data})
	})
	c := fs.client(t, WithDefaultEmbeddingModel(core.EmbeddingModelGigaR))

	resp, err := c.Embeddings(context.Background(), core.Texts("one", "two"), "")
	require.NoError(t, err)
	assert.Equal(t, core.EmbeddingModelGigaR, req.Model)
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, 1, resp.Data[1].Index)

	_, err = c.Embeddings(context.Background(), core.Text("x"), "Embeddings")
	require.NoError(t, err)
	assert.Equal(t, core.EmbeddingModel("Embeddings"), req.Model)
}

func TestEmbeddings_EmptyInput(t *testing.T) {
	fs := newFakeService(t)
	c := fs.client(t)

	_, err := c.Embeddings(context.Background(), core.Texts(), "")
	assert.True(t, errors.Is(err, core.ErrInvalidRequest))
}

func TestCheck(t *testing.T) {
	fs := newFakeService(t)
	var calls atomic.Int32
	var req core.CheckRequest
	fs.handle("POST ai/check", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, core.CheckResponse{
			Category:    core.CategoryMixed,
			Characters:  120,
			Tokens:      30,
			AIIntervals: [][2]int{{0, 40}},
		})
	})
	c := fs.client(t)

	_, err := c.Check().Execute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidRequest))
	assert.Contains(t, err.Error(), "text is missing")
	assert.Zero(t, calls.Load(), "no request without text")

	resp, err := c.Check().WithText("Некоторый текст").Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.CategoryMixed, resp.Category)
	assert.Equal(t, [][2]int{{0, 40}}, resp.AIIntervals)
	assert.Equal(t, core.DefaultCheckModel, req.Model)
	assert.Equal(t, "Некоторый текст", req.Input)
}

func TestCheck_EmptyTextIsSent(t *testing.T) {
	fs := newFakeService(t)
	var calls atomic.Int32
	fs.handle("POST ai/check", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, core.CheckResponse{Category: core.CategoryHuman})
	})
	c := fs.client(t)

	_, err := c.Check().WithText("").WithModel(core.CheckModelClassification).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestValidateFunction(t *testing.T) {
	weather, err := core.NewFunction("weather_forecast").
		WithDescription("Weather forecast").
		WithParameters(map[string]any{
			"type":       "object",
			"properties": map[string]any{"location": map[string]any{"type": "string"}},
		}).
		Build()
	require.NoError(t, err)

	tests := []struct {
		name         string
		response     string
		wantWarnings int
		wantRejected bool
		wantErrs     int
	}{
		{
			name:     "clean",
			response: `{"status":200,"message":"Function is valid","json_ai_rules_version":"1.0.5"}`,
		},
		{
			name:         "warnings only",
			response:     `{"status":200,"message":"ok","warnings":[{"description":"few_shot_examples are missing","schema_location":"(root)"}]}`,
			wantWarnings: 1,
		},
		{
			name:         "errors",
			response:     `{"status":200,"message":"Function is invalid","errors":[{"description":"name is bad","schema_location":"name"},{"description":"x","schema_location":"y"}],"warnings":[]}`,
			wantRejected: true,
			wantErrs:     2,
		},
		{
			name:         "empty errors array still rejects",
			response:     `{"status":200,"errors":[]}`,
			wantRejected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFakeService(t)
			var sent core.Function
			fs.handle("POST functions/validate", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewDecoder(r.Body).Decode(&sent)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.response))
			})
			c := fs.client(t)

			warnings, err := c.ValidateFunction(context.Background(), weather)
			assert.Equal(t, "weather_forecast", sent.Name)

			if tt.wantRejected {
				var e *core.Error
				require.True(t, errors.As(err, &e), "got %v", err)
				assert.Equal(t, core.ErrorTypeBadFunction, e.Type)
				assert.Len(t, e.Diagnostics, tt.wantErrs)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, warnings)
			assert.Len(t, warnings, tt.wantWarnings)
		})
	}
}

func TestValidateFunction_RejectedLocally(t *testing.T) {
	tests := []struct {
		name string
		fn   core.Function
	}{
		{"no name", core.Function{}},
		{"built-in", core.BuiltinFunction(core.FunctionText2Image)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFakeService(t)
			called := false
			fs.handle("POST functions/validate", func(w http.ResponseWriter, r *http.Request) {
				called = true
			})
			c := fs.client(t)

			_, err := c.ValidateFunction(context.Background(), tt.fn)
			assert.True(t, errors.Is(err, core.ErrInvalidRequest), "got %v", err)
			assert.False(t, called)
		})
	}
}
