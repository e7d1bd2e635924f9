package provisioning

import (
	"context"
	"fmt"

	"github.com/opnsense-tools/opnvpn/internal/export"
	"github.com/opnsense-tools/opnvpn/internal/opnsense"
	"github.com/opnsense-tools/opnvpn/internal/resolve"
)

// ServerCertPhase ensures the gateway certificate exists under the
// configured common name. Superseded duplicates from earlier runs are pruned
// best-effort after the winner is chosen; a prune failure is a warning, not
// a stage failure.
type ServerCertPhase struct{}

func (p *ServerCertPhase) Name() string { return "server-certificate" }

func (p *ServerCertPhase) Provision(ctx *Context) error {
	a := ctx.Profile.Automation
	caRef, err := ctx.State.RequireCA()
	if err != nil {
		return err
	}
	cn := a.NamePatterns.ServerCN

	row, created, err := resolve.Resolve(ctx, "server certificate",
		ctx.API.SearchCerts,
		func(r opnsense.CertRow) bool { return r.CommonName == cn },
		newestCert,
		func(c context.Context) error {
			_, err := ctx.API.AddCert(c, opnsense.CertPayload{
				Description:  ctx.Descriptor(cn),
				CommonName:   cn,
				CARef:        string(caRef),
				CertType:     "server_cert",
				LifetimeDays: a.Lifetimes.ServerCertDays,
			})
			return err
		},
		resolve.Options{},
	)
	if err != nil {
		return err
	}
	ctx.Observer.Resource("server certificate", cn, created)

	ref, err := row.Reference()
	if err != nil {
		return fmt.Errorf("server certificate %q: %w", cn, err)
	}
	ctx.State.ServerCertRef = ref

	// Export the keeper before touching the duplicates, so a prune failure
	// can never cost the artifact.
	if err := ctx.Exporter.Write(export.ArtifactServerCert, row); err != nil {
		return err
	}

	p.pruneSuperseded(ctx, cn, row.UUID)
	return nil
}

// pruneSuperseded deletes older certificates sharing the common name. Any
// failure here leaves harmless duplicates behind, so it only warns.
func (p *ServerCertPhase) pruneSuperseded(ctx *Context, cn, keepUUID string) {
	rows, err := ctx.API.SearchCerts(ctx)
	if err != nil {
		ctx.Observer.Warn(p.Name(), "list certificates for pruning", err)
		return
	}
	for _, r := range rows {
		if r.CommonName != cn || r.UUID == keepUUID {
			continue
		}
		if err := ctx.API.DeleteCert(ctx, r.UUID); err != nil {
			ctx.Observer.Warn(p.Name(), fmt.Sprintf("prune superseded certificate %s", r.UUID), err)
			continue
		}
		ctx.Observer.Printf("pruned superseded server certificate %s (%s)", r.UUID, r.Description)
	}
}
