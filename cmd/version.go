package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/confab/pkg/buildinfo"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	var outputJSON bool

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the version, commit hash, and build time of the confab server.

Examples:
  confab version
  confab version --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildinfo.Get("confab")
			if outputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			cmd.Printf("confab %s\n", buildinfo.String())
			cmd.Printf("go: %s\n", info.GoVersion)
			return nil
		},
	}

	versionCmd.Flags().BoolVar(&outputJSON, "json", false, "machine-readable output")
	return versionCmd
}
