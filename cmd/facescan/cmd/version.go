package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/facescan/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ver, commit, date := version.Info()
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "facescan %s (commit: %s, built: %s)\n", ver, commit, date)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
