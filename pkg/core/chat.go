package core

import (
	"encoding/json"
	"fmt"
)

// ChatModel identifies a generation model. The constants are the catalogue
// known to this package; any other value is passed through unchanged.
type ChatModel string

const (
	// ChatModelLite is the fastest, cheapest model
	ChatModelLite ChatModel = "GigaChat-2"
	// ChatModelPro is tuned for creative and precise tasks
	ChatModelPro ChatModel = "GigaChat-2-Pro"
	// ChatModelMax is the most capable model
	ChatModelMax ChatModel = "GigaChat-2-Max"
)

// DefaultChatModel is used when a request names no model.
const DefaultChatModel = ChatModelMax

// IsKnown reports whether m is one of the catalogued models.
func (m ChatModel) IsKnown() bool {
	switch m {
	case ChatModelLite, ChatModelPro, ChatModelMax:
		return true
	}
	return false
}

// Role of a chat message author
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

// Message represents a single message in the chat.
// Function messages carry the function name and a JSON document encoded as a string in Content.
type Message struct {
	Role         Role                `json:"role"`
	Content      string              `json:"content"`
	Name         string              `json:"name,omitempty"`
	FunctionCall *FunctionCallResult `json:"function_call,omitempty"`
}

// SystemMessage builds a system prompt message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// FunctionMessage builds a message returning a function result to the model.
// result is encoded as JSON and sent as a string.
func FunctionMessage(name string, result any) (Message, error) {
	b, err := json.Marshal(result)
	if err != nil {
		return Message{}, fmt.Errorf("marshal function result: %w", err)
	}
	return Message{Role: RoleFunction, Name: name, Content: string(b)}, nil
}

// FunctionCallResult is a function invocation requested by the model.
type FunctionCallResult struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// FunctionCallMode selects how the model may call functions.
type FunctionCallMode int

const (
	// FunctionCallNone forbids function calls
	FunctionCallNone FunctionCallMode = iota
	// FunctionCallAuto lets the model decide
	FunctionCallAuto
	// FunctionCallManual forces a call to the named function
	FunctionCallManual
)

// FunctionCall is encoded as "none", "auto" or {"name": "..."}.
type FunctionCall struct {
	Mode FunctionCallMode
	Name string
}

// CallFunction forces the model to call the named function.
func CallFunction(name string) FunctionCall {
	return FunctionCall{Mode: FunctionCallManual, Name: name}
}

// MarshalJSON implements json.Marshaler
func (f FunctionCall) MarshalJSON() ([]byte, error) {
	switch f.Mode {
	case FunctionCallAuto:
		return []byte(`"auto"`), nil
	case FunctionCallManual:
		return json.Marshal(struct {
			Name string `json:"name"`
		}{f.Name})
	default:
		return []byte(`"none"`), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler
func (f *FunctionCall) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "none":
			*f = FunctionCall{Mode: FunctionCallNone}
		case "auto":
			*f = FunctionCall{Mode: FunctionCallAuto}
		default:
			return fmt.Errorf("unknown function_call mode %q", s)
		}
		return nil
	}
	var named struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &named); err != nil {
		return fmt.Errorf("function_call: %w", err)
	}
	*f = CallFunction(named.Name)
	return nil
}

// ChatRequest is the body of a chat completion call
type ChatRequest struct {
	Model             ChatModel    `json:"model"`
	Messages          []Message    `json:"messages"`
	FunctionCall      FunctionCall `json:"function_call"`
	Functions         []Function   `json:"functions,omitempty"`
	Temperature       *float64     `json:"temperature,omitempty"`
	TopP              *float64     `json:"top_p,omitempty"`
	Stream            bool         `json:"stream"`
	MaxTokens         *int         `json:"max_tokens,omitempty"`
	RepetitionPenalty *float64     `json:"repetition_penalty,omitempty"`
}

// WithStreaming returns a shallow copy of the request with Stream set to true.
func (r *ChatRequest) WithStreaming() *ChatRequest {
	c := *r
	c.Stream = true
	return &c
}

// FinishReason explains why generation stopped
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonContentFilter FinishReason = "content_filter"
	FinishReasonFunctionCall  FinishReason = "function_call"
	FinishReasonBlacklist     FinishReason = "blacklist"
	FinishReasonError         FinishReason = "error"
)

// Choice represents a single completion choice
type Choice struct {
	Index        int          `json:"index"`
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
}

// Usage represents token usage information.
// PrecachedPromptTokens were served from the context cache and are not billed.
type Usage struct {
	PromptTokens          int `json:"prompt_tokens"`
	CompletionTokens      int `json:"completion_tokens"`
	PrecachedPromptTokens int `json:"precached_prompt_tokens"`
	TotalTokens           int `json:"total_tokens"`
}

// ChatResponse represents the chat completion response
type ChatResponse struct {
	Choices []Choice  `json:"choices"`
	Created UnixTime  `json:"created"`
	Model   ChatModel `json:"model"`
	Usage   Usage     `json:"usage"`
}

// Text returns the content of the first choice, or "" for function messages.
func (r *ChatResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	if r.Choices[0].Message.Role == RoleFunction {
		return ""
	}
	return r.Choices[0].Message.Content
}

// MessageDelta is one incremental piece of a streamed message. The first
// delta of a choice usually carries the role; later ones only content.
type MessageDelta struct {
	Role         Role                `json:"role,omitempty"`
	Content      string              `json:"content"`
	Name         string              `json:"name,omitempty"`
	FunctionCall *FunctionCallResult `json:"function_call,omitempty"`
}

// StreamChoice is a choice inside a streamed fragment
type StreamChoice struct {
	Delta        MessageDelta `json:"delta"`
	Index        int          `json:"index"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
}

// ChatStreamChunk is one SSE fragment of a streamed chat completion
type ChatStreamChunk struct {
	Model   ChatModel      `json:"model"`
	Created UnixTime       `json:"created"`
	Choices []StreamChoice `json:"choices"`
}

// Text concatenates the delta contents of all choices in the chunk.
func (c *ChatStreamChunk) Text() string {
	var s string
	for _, ch := range c.Choices {
		s += ch.Delta.Content
	}
	return s
}
