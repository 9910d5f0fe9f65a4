package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"gigachat/pkg/core"
)

func (a *App) newEmbedCommand() *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "embed text...",
		Short: "Compute embeddings, one vector per argument",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := client.Embeddings(cmd.Context(), core.Texts(args...), core.EmbeddingModel(model))
			if err != nil {
				return classify(err)
			}
			if a.jsonOutput {
				return a.outputJSON(resp)
			}
			for _, e := range resp.Data {
				fmt.Fprintf(a.stdout, "%d\t%d dims\t%d tokens\n", e.Index, len(e.Embedding), e.Usage.PromptTokens)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "embedding model (default from config)")
	return cmd
}
