package provisioning

import (
	"context"
	"fmt"

	"github.com/opnsense-tools/opnvpn/internal/export"
	"github.com/opnsense-tools/opnvpn/internal/util/naming"
	"github.com/opnsense-tools/opnvpn/internal/opnsense"
	"github.com/opnsense-tools/opnvpn/internal/resolve"
)

// CAPhase ensures the certificate authority exists. Discovery matches the
// configured prefix against prior runs' timestamped descriptors; among
// several matches the newest validity start wins.
type CAPhase struct{}

func (p *CAPhase) Name() string { return "ca" }

func (p *CAPhase) Provision(ctx *Context) error {
	a := ctx.Profile.Automation
	prefix := a.NamePatterns.CAPrefix

	row, created, err := resolve.Resolve(ctx, "certificate authority",
		ctx.API.SearchCAs,
		func(r opnsense.CARow) bool { return naming.MatchesPrefix(r.Description, prefix) },
		newestCA,
		func(c context.Context) error {
			descriptor := ctx.Descriptor(prefix)
			_, err := ctx.API.AddCA(c, opnsense.CAPayload{
				Description:  descriptor,
				CommonName:   descriptor,
				LifetimeDays: a.Lifetimes.CADays,
			})
			return err
		},
		resolve.Options{},
	)
	if err != nil {
		return err
	}
	ctx.Observer.Resource("ca", row.Description, created)

	ref, err := row.Reference()
	if err != nil {
		return fmt.Errorf("certificate authority %q: %w", row.Description, err)
	}
	ctx.State.CARef = ref
	ctx.State.CACertificate = row.Certificate
	if row.Certificate == "" {
		ctx.Observer.Warn(p.Name(), "listing returned no CA certificate body; client bundles will lack the ca block", nil)
	}

	return ctx.Exporter.Write(export.ArtifactCA, row)
}

func newestCA(rows []opnsense.CARow) opnsense.CARow {
	best := rows[0]
	for _, r := range rows[1:] {
		if r.ValidFromTime().After(best.ValidFromTime()) {
			best = r
		}
	}
	return best
}
