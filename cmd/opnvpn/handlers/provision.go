// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command
// definitions in the commands package. Handlers are framework-agnostic and
// can be tested independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/opnsense-tools/opnvpn/internal/config"
	"github.com/opnsense-tools/opnvpn/internal/export"
	"github.com/opnsense-tools/opnvpn/internal/opnsense"
	"github.com/opnsense-tools/opnvpn/internal/platform/ssh"
	"github.com/opnsense-tools/opnvpn/internal/provisioning"
	"github.com/opnsense-tools/opnvpn/internal/util/naming"
)

// mutatorBinaryName is the sibling binary uploaded to the appliance.
const mutatorBinaryName = "opnvpn-ifassign"

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfigFile loads the configuration file.
	loadConfigFile = config.Load

	// selectProfile resolves which profile a run targets.
	selectProfile = config.SelectProfile

	// newExporter creates the artifact writer for the run.
	newExporter = export.NewExporter

	// newAPIClient creates the appliance API client.
	newAPIClient = func(conn config.Connection) provisioning.API {
		var opts []opnsense.Option
		if conn.InsecureTLS {
			opts = append(opts, opnsense.WithInsecureTLS())
		}
		return opnsense.NewClient(conn.APIBaseURL, conn.APIKey, conn.APISecret, opts...)
	}

	// newSSHRunner creates the appliance shell channel.
	newSSHRunner = func(conn config.Connection) (ssh.Runner, error) {
		return ssh.NewClient(ssh.Config{
			Host:     conn.SSHHost,
			Port:     conn.SSHPort,
			User:     conn.SSHUser,
			Password: conn.SSHPassword,
		})
	}

	// runPhases executes the pipeline.
	runPhases = provisioning.RunPhases

	// locateMutator resolves the mutator binary path.
	locateMutator = defaultLocateMutator
)

// Provision runs the full pipeline against the selected profile.
//
// The workflow:
//  1. Loads and validates the configuration, selecting the target profile
//  2. Resolves the interface-assignment mutator binary
//  3. Opens the API and SSH channels to the appliance
//  4. Runs the nine provisioning stages in order
//  5. Prints a summary of handles, slots, and collected warnings
//
// Artifacts are exported per stage into the profile's output directory, so a
// failed run keeps everything the completed stages produced.
func Provision(ctx context.Context, configPath, profileName string) error {
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}
	profile, err := selectProfile(cfg, profileName)
	if err != nil {
		return err
	}
	if len(cfg.Users) == 0 {
		return fmt.Errorf("no users configured; add a users section to the config file")
	}

	mutator, err := locateMutator(cfg.MutatorBinary)
	if err != nil {
		return err
	}

	exporter, err := newExporter(filepath.Join(cfg.OutputDir, naming.SanitizeProfileName(profile.Name)))
	if err != nil {
		return err
	}

	runner, err := newSSHRunner(profile.Connection)
	if err != nil {
		return err
	}

	observer := provisioning.NewLogObserver(logrus.StandardLogger())
	pctx := &provisioning.Context{
		Context:       ctx,
		Profile:       *profile,
		Users:         cfg.Users,
		State:         provisioning.NewState(),
		API:           newAPIClient(profile.Connection),
		SSH:           runner,
		Exporter:      exporter,
		Observer:      observer,
		MutatorBinary: mutator,
	}

	if err := runPhases(pctx, provisioning.DefaultPhases()); err != nil {
		return fmt.Errorf("provisioning %s: %w", profile.Name, err)
	}

	fmt.Print(renderProvisionSummary(profile.Name, pctx.State, exporter.Dir(), observer.Warnings()))
	return nil
}

// defaultLocateMutator uses the configured path when set and otherwise looks
// for the mutator next to the running executable.
func defaultLocateMutator(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("mutator binary %s: %w", configured, err)
		}
		return configured, nil
	}

	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate mutator binary: %w", err)
	}
	sibling := filepath.Join(filepath.Dir(self), mutatorBinaryName)
	if _, err := os.Stat(sibling); err != nil {
		return "", fmt.Errorf("mutator binary not found at %s; build it for the appliance (GOOS=freebsd) and set mutator_binary in the config", sibling)
	}
	return sibling, nil
}
