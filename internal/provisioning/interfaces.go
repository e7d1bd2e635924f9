package provisioning

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/opnsense-tools/opnvpn/internal/ifassign"
	"github.com/opnsense-tools/opnvpn/internal/platform/ssh"
)

const (
	remoteMutatorPath = "/tmp/opnvpn-ifassign"
	remoteLockPath    = "/tmp/opnvpn-ifassign.lock"
	mutatorLockWait   = 30 * time.Second
)

// InterfacePhase assigns the VPN tunnel device an interface slot by running
// the mutator binary on the appliance itself, where the configuration
// document lives. The binary is uploaded fresh each run and executed under a
// host-side advisory lock; its stdout line protocol reports which slots are
// new. Zero new slots is a normal outcome on re-runs.
type InterfacePhase struct{}

func (p *InterfacePhase) Name() string { return "interfaces" }

func (p *InterfacePhase) Provision(ctx *Context) error {
	binary, err := os.ReadFile(ctx.MutatorBinary)
	if err != nil {
		return fmt.Errorf("read mutator binary: %w", err)
	}
	if err := ctx.SSH.Upload(ctx, binary, remoteMutatorPath); err != nil {
		return fmt.Errorf("upload mutator: %w", err)
	}

	descr := ctx.Profile.Automation.InterfaceDescription
	command := ssh.LockedCommand(remoteLockPath, mutatorLockWait,
		fmt.Sprintf("%s '%s'", remoteMutatorPath, descr))

	stdout, stderr, err := ctx.SSH.Output(ctx, command)
	if err != nil {
		if code := strings.TrimSpace(stderr); code != "" {
			return fmt.Errorf("interface assignment failed (%s): %w", code, err)
		}
		return fmt.Errorf("interface assignment failed: %w", err)
	}

	result, err := ifassign.ParseResult(strings.NewReader(stdout))
	if err != nil {
		return err
	}
	ctx.State.Slots = append(result.NewSlots, result.ExistingSlots...)

	for _, o := range result.Outcomes {
		switch o.Status {
		case ifassign.StatusSkipped:
			ctx.Observer.Warn(p.Name(), fmt.Sprintf("device %s has no kernel interface yet; slot not assigned", o.Device), nil)
		default:
			ctx.Observer.Resource("interface slot", fmt.Sprintf("%s=%s", o.Slot, o.Device), o.Status == ifassign.StatusAssigned)
		}
	}

	// Reload every reported slot, existing ones included, so assignments
	// made outside this run converge too.
	for _, slot := range ctx.State.Slots {
		reload := fmt.Sprintf("configctl interface reconfigure %s", slot)
		if _, err := ctx.SSH.Run(ctx, reload); err != nil {
			ctx.Observer.Warn(p.Name(), fmt.Sprintf("reconfigure interface %s", slot), err)
		}
	}
	return nil
}
