package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the forge version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if s.format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"version": version,
					"commit":  commit,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "forge version %s (commit: %s)\n", version, commit)
			return nil
		},
	}
}
