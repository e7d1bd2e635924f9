package provisioning

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Phase is one provisioning stage.
type Phase interface {
	// Name identifies the stage in logs and error chains.
	Name() string

	// Provision performs the stage's work against the shared context.
	Provision(ctx *Context) error
}

// DefaultPhases returns the stages in their mandatory order. Every stage
// assumes all earlier stages completed.
func DefaultPhases() []Phase {
	return []Phase{
		&GroupPhase{},
		&UsersPhase{},
		&CAPhase{},
		&ClientCertsPhase{},
		&ServerCertPhase{},
		&StaticKeyPhase{},
		&InstancePhase{},
		&InterfacePhase{},
		&FirewallPhase{},
	}
}

// RunPhases executes the stages sequentially and stops at the first failure.
// The scratch directory is removed on every exit path.
func RunPhases(ctx *Context, phases []Phase) error {
	if ctx.ScratchDir == "" {
		dir := filepath.Join(os.TempDir(), "opnvpn-"+uuid.NewString())
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create scratch directory: %w", err)
		}
		ctx.ScratchDir = dir
	}
	defer func() {
		if err := os.RemoveAll(ctx.ScratchDir); err != nil {
			ctx.Observer.Warn("cleanup", "remove scratch directory", err)
		}
	}()

	for i, phase := range phases {
		ctx.Observer.Printf("stage %d/%d: %s", i+1, len(phases), phase.Name())
		if err := phase.Provision(ctx); err != nil {
			return fmt.Errorf("%s: %w", phase.Name(), err)
		}
	}
	return nil
}
