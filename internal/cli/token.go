package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func (a *App) newTokenCommand() *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Exchange the authorization key for a credential",
		Long: `Exchange the authorization key for a short-lived credential and print
its scope and expiry. The credential itself is printed only with --show.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			cred, err := client.Credential(cmd.Context())
			if err != nil {
				return classify(err)
			}

			out := map[string]any{
				"scope":      cred.Scope,
				"expires_at": cred.ExpiresAt.UTC().Format(time.RFC3339),
			}
			if show {
				out["access_token"] = cred.AccessToken
			}
			if a.jsonOutput {
				return a.outputJSON(out)
			}
			fmt.Fprintf(a.stdout, "scope: %s\nexpires: %s (in %s)\n",
				cred.Scope, out["expires_at"], time.Until(cred.ExpiresAt).Round(time.Second))
			if show {
				fmt.Fprintln(a.stdout, cred.AccessToken)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "print the credential")
	return cmd
}
