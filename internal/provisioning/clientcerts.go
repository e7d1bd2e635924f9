package provisioning

import (
	"context"
	"fmt"

	"github.com/opnsense-tools/opnvpn/internal/export"
	"github.com/opnsense-tools/opnvpn/internal/opnsense"
	"github.com/opnsense-tools/opnvpn/internal/resolve"
)

// ClientCertsPhase ensures a client certificate exists per user. The common
// name is the user name and the idempotency key; among duplicates the newest
// validity start wins. Each certificate is exported as soon as it resolves so
// fresh private keys, which the appliance only returns once, are never lost
// to a later stage failure.
type ClientCertsPhase struct{}

func (p *ClientCertsPhase) Name() string { return "client-certificates" }

func (p *ClientCertsPhase) Provision(ctx *Context) error {
	a := ctx.Profile.Automation
	caRef, err := ctx.State.RequireCA()
	if err != nil {
		return err
	}

	for _, user := range ctx.Users {
		row, created, err := resolve.Resolve(ctx, "client certificate",
			ctx.API.SearchCerts,
			func(r opnsense.CertRow) bool { return r.CommonName == user.Name },
			newestCert,
			func(c context.Context) error {
				_, err := ctx.API.AddCert(c, opnsense.CertPayload{
					Description:  fmt.Sprintf("VPN client certificate for %s", user.Name),
					CommonName:   user.Name,
					CARef:        string(caRef),
					CertType:     "usr_cert",
					LifetimeDays: a.Lifetimes.ClientCertDays,
				})
				return err
			},
			resolve.Options{},
		)
		if err != nil {
			return err
		}
		ctx.Observer.Resource("client certificate", user.Name, created)

		ref, err := row.Reference()
		if err != nil {
			return fmt.Errorf("client certificate for %q: %w", user.Name, err)
		}
		ctx.State.ClientCertRefs[user.Name] = ref
		if row.PrivateKey == "" {
			ctx.Observer.Warn(p.Name(),
				fmt.Sprintf("certificate for %s carries no private key; the bundle for this user will lack the key block", user.Name), nil)
		}

		if err := ctx.Exporter.Write(export.ClientArtifact(user.Name), row); err != nil {
			return err
		}
	}
	return nil
}

func newestCert(rows []opnsense.CertRow) opnsense.CertRow {
	best := rows[0]
	for _, r := range rows[1:] {
		if r.ValidFromTime().After(best.ValidFromTime()) {
			best = r
		}
	}
	return best
}
