package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"gigachat/internal/version"
)

func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// No config or credentials are needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.jsonOutput {
				return a.outputJSON(map[string]string{
					"version":   version.Version,
					"commit":    version.Commit,
					"buildDate": version.Date,
					"goVersion": runtime.Version(),
				})
			}
			_, err := cmd.OutOrStdout().Write([]byte(version.Info() + "\n"))
			return err
		},
	}
}
