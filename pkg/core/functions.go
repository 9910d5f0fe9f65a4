package core

import (
	"encoding/json"
	"fmt"
)

// Built-in function names understood by the service.
const (
	FunctionText2Image     = "text2image"
	FunctionGetFileContent = "get_file_content"
	FunctionText2Model3D   = "text2model3d"
)

// Function is either a user-defined function with JSON schemas or a
// built-in function referenced by name only.
type Function struct {
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Parameters       json.RawMessage   `json:"parameters,omitempty"`
	FewShotExamples  []json.RawMessage `json:"few_shot_examples,omitempty"`
	ReturnParameters json.RawMessage   `json:"return_parameters,omitempty"`
}

// BuiltinFunction references a service-provided function.
func BuiltinFunction(name string) Function {
	return Function{Name: name}
}

// IsBuiltin reports whether f carries no schema of its own.
func (f Function) IsBuiltin() bool {
	return len(f.Parameters) == 0
}

// FunctionExample is a few-shot example: a user request and the arguments the model should produce.
type FunctionExample struct {
	Request string `json:"request"`
	Params  any    `json:"params"`
}

// FunctionBuilder assembles a user function from already generated JSON schemas.
type FunctionBuilder struct {
	name        string
	description string
	parameters  any
	returns     any
	examples    []FunctionExample
}

// NewFunction starts a user function definition.
func NewFunction(name string) *FunctionBuilder {
	return &FunctionBuilder{name: name}
}

// WithDescription sets the function description.
func (b *FunctionBuilder) WithDescription(description string) *FunctionBuilder {
	b.description = description
	return b
}

// WithParameters sets the JSON schema of the arguments.
func (b *FunctionBuilder) WithParameters(schema any) *FunctionBuilder {
	b.parameters = schema
	return b
}

// WithReturnParameters sets the JSON schema of the result.
func (b *FunctionBuilder) WithReturnParameters(schema any) *FunctionBuilder {
	b.returns = schema
	return b
}

// WithExample appends a few-shot example.
func (b *FunctionBuilder) WithExample(request string, params any) *FunctionBuilder {
	b.examples = append(b.examples, FunctionExample{Request: request, Params: params})
	return b
}

// Build encodes the schemas and examples.
func (b *FunctionBuilder) Build() (Function, error) {
	if b.name == "" {
		return Function{}, NewInvalidRequestError("function name is required", nil)
	}
	if b.parameters == nil {
		return Function{}, NewInvalidRequestError("function parameters schema is required", nil)
	}
	fn := Function{Name: b.name, Description: b.description}

	var err error
	if fn.Parameters, err = toRaw(b.parameters); err != nil {
		return Function{}, NewInvalidRequestError("failed to encode parameters schema", err)
	}
	if b.returns != nil {
		if fn.ReturnParameters, err = toRaw(b.returns); err != nil {
			return Function{}, NewInvalidRequestError("failed to encode return parameters schema", err)
		}
	}
	for i, ex := range b.examples {
		raw, err := json.Marshal(ex)
		if err != nil {
			return Function{}, NewInvalidRequestError(fmt.Sprintf("failed to encode example %d", i), err)
		}
		fn.FewShotExamples = append(fn.FewShotExamples, raw)
	}
	return fn, nil
}

func toRaw(v any) (json.RawMessage, error) {
	switch s := v.(type) {
	case json.RawMessage:
		return s, nil
	case []byte:
		if !json.Valid(s) {
			return nil, fmt.Errorf("schema is not valid json")
		}
		return json.RawMessage(s), nil
	case string:
		if !json.Valid([]byte(s)) {
			return nil, fmt.Errorf("schema is not valid json")
		}
		return json.RawMessage(s), nil
	}
	return json.Marshal(v)
}

// FunctionDiagnostic is one finding of function validation.
type FunctionDiagnostic struct {
	Description    string `json:"description"`
	SchemaLocation string `json:"schema_location"`
}

// FunctionValidationResponse is the body returned by functions/validate.
// The presence of "errors" marks a rejected function.
type FunctionValidationResponse struct {
	Status             int                  `json:"status"`
	Message            string               `json:"message"`
	JSONAIRulesVersion string               `json:"json_ai_rules_version"`
	Errors             []FunctionDiagnostic `json:"errors,omitempty"`
	Warnings           []FunctionDiagnostic `json:"warnings,omitempty"`
}
