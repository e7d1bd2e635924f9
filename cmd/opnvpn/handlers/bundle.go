package handlers

import (
	"fmt"
	"path/filepath"

	"github.com/opnsense-tools/opnvpn/internal/bundle"
	"github.com/opnsense-tools/opnvpn/internal/util/naming"
)

// newBuilder is indirected for tests.
var newBuilder = bundle.NewBuilder

// Bundle renders client .ovpn profiles from a previous run's artifacts. An
// empty userName means every user with an exported certificate.
func Bundle(configPath, profileName, userName string) error {
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}
	profile, err := selectProfile(cfg, profileName)
	if err != nil {
		return err
	}

	artifactDir := filepath.Join(cfg.OutputDir, naming.SanitizeProfileName(profile.Name))
	builder := newBuilder(artifactDir, bundle.Params{
		Remote:   profile.Connection.SSHHost,
		Port:     profile.Automation.Firewall.ListenPort,
		Protocol: profile.Automation.Firewall.Protocol,
		KeyMode:  profile.Automation.StaticKeyMode,
	})

	users := []string{userName}
	if userName == "" {
		users, err = builder.Users()
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return fmt.Errorf("no exported client certificates in %s; run 'opnvpn provision' first", artifactDir)
		}
	}

	bundleDir := filepath.Join(artifactDir, "bundles")
	for _, user := range users {
		path, err := builder.Write(user, bundleDir)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
	}
	return nil
}
