package commands

import (
	"github.com/spf13/cobra"

	"github.com/opnsense-tools/opnvpn/cmd/opnvpn/handlers"
)

// Provision returns the command that runs the full provisioning pipeline
// against one firewall profile.
//
// Optional flags:
//
//	--config, -c:  Path to configuration YAML file (default: opnvpn.yaml)
//	--profile, -p: Profile name (default: single profile, or interactive pick)
func Provision() *cobra.Command {
	var (
		configPath  string
		profileName string
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision the VPN service on a firewall",
		Long: `Provision a complete OpenVPN road-warrior setup on an OPNsense firewall.

The run is idempotent: resources created by earlier runs are discovered and
reused, so re-running after a partial failure picks up where it left off.

Examples:
  # Provision using opnvpn.yaml in the current directory
  opnvpn provision

  # Provision a specific profile from a specific config file
  opnvpn provision -c fleet.yaml -p office`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Provision(cmd.Context(), configPath, profileName)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: opnvpn.yaml)")
	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "Profile to provision")

	return cmd
}
