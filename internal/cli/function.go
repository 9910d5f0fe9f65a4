package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gigachat/pkg/core"
)

func (a *App) newFunctionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "function",
		Short: "Work with user function definitions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate file.json",
		Short: "Validate a function definition against the service rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return exitWithCode(ExitValidation, err)
			}
			var fn core.Function
			if err := json.Unmarshal(raw, &fn); err != nil {
				return exitWithCode(ExitValidation, fmt.Errorf("parse %s: %w", args[0], err))
			}

			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}

			warnings, err := client.ValidateFunction(cmd.Context(), fn)
			var apiErr *core.Error
			if errors.As(err, &apiErr) && apiErr.Type == core.ErrorTypeBadFunction {
				for _, d := range apiErr.Diagnostics {
					fmt.Fprintf(a.stdout, "error: %s: %s\n", d.SchemaLocation, d.Description)
				}
				return classify(err)
			}
			if err != nil {
				return classify(err)
			}

			if a.jsonOutput {
				return a.outputJSON(map[string]any{"valid": true, "warnings": warnings})
			}
			for _, w := range warnings {
				fmt.Fprintf(a.stdout, "warning: %s: %s\n", w.SchemaLocation, w.Description)
			}
			fmt.Fprintf(a.stdout, "%s is valid\n", fn.Name)
			return nil
		},
	})
	return cmd
}
