// Package main is the interface-assignment mutator that runs on the
// appliance itself.
//
// The orchestrator uploads this binary over SSH and executes it under an
// advisory lock. It assigns interface slots to unassigned OpenVPN devices in
// the configuration document, reports per-device outcomes as a line protocol
// on stdout, and prints a contract failure code on stderr when the mutation
// cannot be committed safely.
package main

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/opnsense-tools/opnvpn/internal/ifassign"
)

const (
	defaultConfigPath = "/conf/config.xml"
	defaultBackupDir  = "/conf/backup"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		configPath string
		backupDir  string
		pattern    string
	)

	cmd := &cobra.Command{
		Use:           "opnvpn-ifassign <description>",
		Short:         "Assign interface slots to OpenVPN devices in the appliance configuration",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			devicePattern, err := regexp.Compile(pattern)
			if err != nil {
				return fmt.Errorf("invalid device pattern: %w", err)
			}

			result, err := ifassign.Run(cmd.Context(), ifassign.Config{
				ConfigPath:  configPath,
				BackupDir:   backupDir,
				Pattern:     devicePattern,
				Description: args[0],
			})
			if err != nil {
				var failure *ifassign.Failure
				if errors.As(err, &failure) {
					fmt.Fprintln(cmd.ErrOrStderr(), failure.Code)
				} else {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
				return err
			}
			return ifassign.WriteResult(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", defaultConfigPath, "Path to the live configuration document")
	cmd.Flags().StringVar(&backupDir, "backup-dir", defaultBackupDir, "Directory for the pre-mutation backup")
	cmd.Flags().StringVar(&pattern, "pattern", ifassign.DefaultDevicePattern.String(), "Regexp selecting eligible devices")

	return cmd
}
