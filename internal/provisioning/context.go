package provisioning

import (
	"context"
	"time"

	"github.com/opnsense-tools/opnvpn/internal/config"
	"github.com/opnsense-tools/opnvpn/internal/export"
	"github.com/opnsense-tools/opnvpn/internal/platform/ssh"
	"github.com/opnsense-tools/opnvpn/internal/util/naming"
)

// Context carries everything a stage needs: the selected profile, the user
// list, the clients for both appliance channels, the output writer, and the
// shared State the stages populate.
type Context struct {
	context.Context

	Profile config.Profile
	Users   []config.User

	State    *State
	API      API
	SSH      ssh.Runner
	Exporter *export.Exporter
	Observer Observer

	// MutatorBinary is the local path of the interface-assignment binary
	// uploaded to the appliance.
	MutatorBinary string

	// ScratchDir holds per-run temporary files. The pipeline creates it
	// when empty and removes it when the run ends, pass or fail.
	ScratchDir string

	// Now overrides the clock in tests. Nil means time.Now.
	Now func() time.Time
}

func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Descriptor stamps a fresh descriptor for prefix at the current instant.
func (c *Context) Descriptor(prefix string) string {
	return naming.Descriptor(prefix, c.now())
}
