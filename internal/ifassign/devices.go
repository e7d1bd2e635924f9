package ifassign

import (
	"context"
	"os/exec"
	"strings"
)

// DeviceLister enumerates network devices on the live system. The mutator
// only acts on devices that are both named in the listing and actually
// queryable; a device that disappears between the two checks is skipped.
type DeviceLister interface {
	// List returns all device names known to the system.
	List(ctx context.Context) ([]string, error)

	// Present reports whether the device is queryable right now.
	Present(ctx context.Context, dev string) (bool, error)
}

// SystemLister discovers devices with ifconfig, the way the appliance's own
// tooling does.
type SystemLister struct{}

func (SystemLister) List(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, "ifconfig", "-l").Output()
	if err != nil {
		return nil, err
	}
	return strings.Fields(string(out)), nil
}

func (SystemLister) Present(ctx context.Context, dev string) (bool, error) {
	err := exec.CommandContext(ctx, "ifconfig", dev).Run()
	if err != nil {
		// A non-zero exit means the device is gone; that is an answer, not
		// a failure.
		if _, ok := err.(*exec.ExitError); ok {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
