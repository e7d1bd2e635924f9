package provisioning

import (
	"context"
	"fmt"

	"github.com/opnsense-tools/opnvpn/internal/export"
	"github.com/opnsense-tools/opnvpn/internal/opnsense"
	"github.com/opnsense-tools/opnvpn/internal/resolve"
)

// GroupPhase ensures the VPN access-control group exists. The group name is
// the idempotency key; the numeric gid is recorded for user membership.
type GroupPhase struct{}

func (p *GroupPhase) Name() string { return "group" }

func (p *GroupPhase) Provision(ctx *Context) error {
	a := ctx.Profile.Automation

	row, created, err := resolve.Resolve(ctx, "group",
		ctx.API.SearchGroups,
		func(r opnsense.GroupRow) bool { return r.Name == a.GroupName },
		resolve.First[opnsense.GroupRow],
		func(c context.Context) error {
			_, err := ctx.API.AddGroup(c, opnsense.GroupPayload{
				Name:        a.GroupName,
				Description: a.GroupDescription,
			})
			return err
		},
		resolve.Options{},
	)
	if err != nil {
		return err
	}
	ctx.Observer.Resource("group", a.GroupName, created)

	ref, err := row.Reference()
	if err != nil {
		return fmt.Errorf("group %q: %w", a.GroupName, err)
	}
	ctx.State.GroupRef = ref
	ctx.State.GroupGID = row.GID

	return ctx.Exporter.Write(export.ArtifactGroup, row)
}
