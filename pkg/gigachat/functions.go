package gigachat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"gigachat/internal/llmclient"
	"gigachat/pkg/core"
)

// ValidateFunction asks the service whether fn is a usable function
// definition. It returns the warnings of an accepted function, or a
// bad_function error carrying the diagnostics of a rejected one.
func (c *Client) ValidateFunction(ctx context.Context, fn core.Function) ([]core.FunctionDiagnostic, error) {
	if fn.Name == "" {
		return nil, core.NewInvalidRequestError("function name is required", nil)
	}
	if fn.IsBuiltin() {
		return nil, core.NewInvalidRequestError("built-in function "+fn.Name+" has no schema to validate", nil)
	}

	var resp core.FunctionValidationResponse
	var rejected bool
	err := c.exec.DoWith(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "functions/validate",
		Body:     fn,
	}, func(body []byte) error {
		if err := json.Unmarshal(body, &resp); err != nil {
			return err
		}
		// The verdict is carried by which key is present, not by status.
		rejected = gjson.GetBytes(body, "errors").Exists()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("validate function %s: %w", fn.Name, err)
	}

	if rejected {
		return nil, core.NewBadFunctionError(resp.Errors)
	}
	if resp.Warnings == nil {
		return []core.FunctionDiagnostic{}, nil
	}
	return resp.Warnings, nil
}
