package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"gigachat/pkg/core"
)

func (a *App) newCheckCommand() *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "check [text]",
		Short: "Check whether a text was generated by a model",
		Long: `Check whether a text was generated by a model.
The text is read from the arguments, or from stdin when "-" is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}

			b := client.Check().WithModel(core.CheckModel(model))
			switch {
			case len(args) == 1 && args[0] == "-":
				raw, err := io.ReadAll(a.stdin)
				if err != nil {
					return exitWithCode(ExitValidation, fmt.Errorf("read stdin: %w", err))
				}
				b.WithText(string(raw))
			case len(args) > 0:
				b.WithText(strings.Join(args, " "))
			}

			resp, err := b.Execute(cmd.Context())
			if err != nil {
				return classify(err)
			}
			if a.jsonOutput {
				return a.outputJSON(resp)
			}
			fmt.Fprintf(a.stdout, "category: %s\ncharacters: %d\ntokens: %d\n", resp.Category, resp.Characters, resp.Tokens)
			for _, iv := range resp.AIIntervals {
				fmt.Fprintf(a.stdout, "ai interval: [%d, %d)\n", iv[0], iv[1])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", string(core.DefaultCheckModel), "detection model")
	return cmd
}
