// Package main is the entry point for the opnvpn CLI.
//
// opnvpn provisions a complete road-warrior OpenVPN setup on an OPNsense
// firewall: the user group and accounts, the certificate authority and
// certificates, the pre-shared tunnel key, the server instance, the
// interface assignment, and the firewall rules. Re-running against the same
// appliance converges instead of duplicating.
//
// Commands: provision, bundle, profiles.
//
// For detailed usage information, run:
//
//	opnvpn --help
package main

import (
	"fmt"
	"os"

	"github.com/opnsense-tools/opnvpn/cmd/opnvpn/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
