package core

import (
	"encoding/json"
	"fmt"
)

// EmbeddingModel identifies an embedding model; unknown values pass through.
type EmbeddingModel string

const (
	EmbeddingModelBase  EmbeddingModel = "Embeddings"
	EmbeddingModelGigaR EmbeddingModel = "EmbeddingsGigaR"
)

// DefaultEmbeddingModel is used when a request names no model.
const DefaultEmbeddingModel = EmbeddingModelGigaR

// IsKnown reports whether m is one of the catalogued models.
func (m EmbeddingModel) IsKnown() bool {
	return m == EmbeddingModelBase || m == EmbeddingModelGigaR
}

// EmbeddingInput is encoded as a bare string when Single is set, otherwise as an array.
type EmbeddingInput struct {
	Texts  []string
	Single bool
}

// Text embeds one string.
func Text(s string) EmbeddingInput {
	return EmbeddingInput{Texts: []string{s}, Single: true}
}

// Texts embeds several strings in one call.
func Texts(ss ...string) EmbeddingInput {
	return EmbeddingInput{Texts: ss}
}

// MarshalJSON implements json.Marshaler
func (in EmbeddingInput) MarshalJSON() ([]byte, error) {
	if in.Single && len(in.Texts) == 1 {
		return json.Marshal(in.Texts[0])
	}
	if in.Texts == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(in.Texts)
}

// UnmarshalJSON implements json.Unmarshaler
func (in *EmbeddingInput) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*in = Text(s)
		return nil
	}
	var ss []string
	if err := json.Unmarshal(data, &ss); err != nil {
		return fmt.Errorf("embedding input must be a string or an array of strings: %w", err)
	}
	*in = EmbeddingInput{Texts: ss}
	return nil
}

// EmbeddingRequest is the body of an embeddings call
type EmbeddingRequest struct {
	Model EmbeddingModel `json:"model"`
	Input EmbeddingInput `json:"input"`
}

// EmbeddingUsage counts the tokens of one embedded string
type EmbeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
}

// Embedding is one vector in an embeddings response
type Embedding struct {
	Embedding []float32      `json:"embedding"`
	Index     int            `json:"index"`
	Usage     EmbeddingUsage `json:"usage"`
}

// EmbeddingResponse is returned by the embeddings endpoint
type EmbeddingResponse struct {
	Model EmbeddingModel `json:"model"`
	Data  []Embedding    `json:"data"`
}
