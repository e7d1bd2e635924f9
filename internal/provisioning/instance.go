package provisioning

import (
	"context"
	"fmt"
	"strconv"

	"github.com/opnsense-tools/opnvpn/internal/alloc"
	"github.com/opnsense-tools/opnvpn/internal/export"
	"github.com/opnsense-tools/opnvpn/internal/opnsense"
	"github.com/opnsense-tools/opnvpn/internal/resolve"
	"github.com/opnsense-tools/opnvpn/internal/util/naming"
)

// vpnIDMax bounds the service identifier range; the appliance derives the
// ovpnsN device name from it.
const (
	vpnIDMin = 1
	vpnIDMax = 99
)

// InstancePhase ensures the server instance exists, wiring in the CA, the
// gateway certificate, and the pre-shared key from earlier stages. Creation
// allocates the lowest free service identifier. Routing options are applied
// on every run so configuration changes converge, then the service reloads.
type InstancePhase struct{}

func (p *InstancePhase) Name() string { return "instance" }

func (p *InstancePhase) Provision(ctx *Context) error {
	a := ctx.Profile.Automation
	caRef, err := ctx.State.RequireCA()
	if err != nil {
		return err
	}
	certRef, err := ctx.State.RequireServerCert()
	if err != nil {
		return err
	}
	keyRef, err := ctx.State.RequireStaticKey()
	if err != nil {
		return err
	}
	prefix := a.NamePatterns.InstancePrefix

	row, created, err := resolve.Resolve(ctx, "instance",
		ctx.API.SearchInstances,
		func(r opnsense.InstanceRow) bool {
			return r.Role == "server" && naming.MatchesPrefix(r.Description, prefix)
		},
		resolve.First[opnsense.InstanceRow],
		func(c context.Context) error {
			vpnid, err := p.allocateVPNID(c, ctx.API)
			if err != nil {
				return err
			}
			_, err = ctx.API.AddInstance(c, opnsense.InstancePayload{
				Role:          "server",
				Description:   ctx.Descriptor(prefix),
				VPNID:         strconv.Itoa(vpnid),
				Protocol:      a.Firewall.Protocol,
				Port:          a.Firewall.ListenPort,
				DevType:       a.DevType,
				Topology:      a.Topology,
				TunnelNetwork: a.TunnelNetwork,
				CARef:         string(caRef),
				CertRef:       string(certRef),
				TLSKeyRef:     string(keyRef),
				TLSKeyMode:    a.StaticKeyMode,
			})
			return err
		},
		resolve.Options{},
	)
	if err != nil {
		return err
	}
	ctx.Observer.Resource("instance", row.Description, created)

	ref, err := row.Reference()
	if err != nil {
		return fmt.Errorf("instance %q: %w", row.Description, err)
	}
	ctx.State.InstanceRef = ref
	ctx.State.InstanceUUID = row.UUID
	ctx.State.VPNID = row.VPNIDInt()

	if _, err := ctx.API.SetInstance(ctx, row.UUID, opnsense.InstanceOptions{
		LocalNetworks: a.LocalNetwork,
		PushRoutes:    a.LocalNetwork,
		RegisterDNS:   "1",
		Enabled:       "1",
	}); err != nil {
		return fmt.Errorf("apply instance options: %w", err)
	}
	if err := ctx.API.ReconfigureOpenVPN(ctx); err != nil {
		return fmt.Errorf("reload openvpn service: %w", err)
	}

	return ctx.Exporter.Write(export.ArtifactInstance, row)
}

// allocateVPNID picks the lowest service identifier not taken by any
// existing instance, server or client.
func (p *InstancePhase) allocateVPNID(ctx context.Context, api API) (int, error) {
	rows, err := api.SearchInstances(ctx)
	if err != nil {
		return 0, fmt.Errorf("list instances for id allocation: %w", err)
	}
	used := make(map[int]bool, len(rows))
	for _, r := range rows {
		if n := r.VPNIDInt(); n > 0 {
			used[n] = true
		}
	}
	id, err := alloc.FirstFree(used, vpnIDMin, vpnIDMax)
	if err != nil {
		return 0, fmt.Errorf("allocate vpn id: %w", err)
	}
	return id, nil
}
