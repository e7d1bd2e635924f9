package commands

import (
	"github.com/spf13/cobra"

	"github.com/opnsense-tools/opnvpn/cmd/opnvpn/handlers"
)

// Profiles returns the command that lists the configured firewall profiles.
func Profiles() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List configured firewall profiles",
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.Profiles(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: opnvpn.yaml)")

	return cmd
}
