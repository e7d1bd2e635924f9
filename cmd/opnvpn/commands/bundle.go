package commands

import (
	"github.com/spf13/cobra"

	"github.com/opnsense-tools/opnvpn/cmd/opnvpn/handlers"
)

// Bundle returns the command that renders .ovpn client profiles from the
// artifacts a provisioning run exported.
//
// Optional flags:
//
//	--config, -c:  Path to configuration YAML file (default: opnvpn.yaml)
//	--profile, -p: Profile name (default: single profile, or interactive pick)
//	--user, -u:    Render for one user only (default: everyone exported)
func Bundle() *cobra.Command {
	var (
		configPath  string
		profileName string
		userName    string
	)

	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Render client .ovpn profiles from exported artifacts",
		Long: `Render ready-to-import OpenVPN client profiles.

Reads the artifacts a previous 'opnvpn provision' run exported and writes one
self-contained .ovpn file per user, with the CA, the client certificate, the
private key, and the pre-shared tunnel key inlined.

Examples:
  # Bundle every provisioned user
  opnvpn bundle

  # Bundle a single user
  opnvpn bundle -u alice`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Bundle(configPath, profileName, userName)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: opnvpn.yaml)")
	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "Profile whose artifacts to bundle")
	cmd.Flags().StringVarP(&userName, "user", "u", "", "Bundle a single user")

	return cmd
}
