package provisioning

import (
	"context"
	"fmt"
	"strings"

	"github.com/opnsense-tools/opnvpn/internal/export"
	"github.com/opnsense-tools/opnvpn/internal/opnsense"
	"github.com/opnsense-tools/opnvpn/internal/resolve"
	"github.com/opnsense-tools/opnvpn/internal/util/naming"
)

// StaticKeyPhase ensures the pre-shared tunnel key exists. The appliance
// generates the key material; its first line is checked against the
// well-known header before any later stage references the key. The service
// is reloaded once the key resolves so the material is live even if a later
// stage fails.
type StaticKeyPhase struct{}

func (p *StaticKeyPhase) Name() string { return "static-key" }

func (p *StaticKeyPhase) Provision(ctx *Context) error {
	a := ctx.Profile.Automation
	prefix := a.NamePatterns.StaticKeyPrefix
	mode := staticKeyAPIMode(a.StaticKeyMode)

	row, created, err := resolve.Resolve(ctx, "static key",
		ctx.API.SearchStaticKeys,
		func(r opnsense.StaticKeyRow) bool { return naming.MatchesPrefix(r.Description, prefix) },
		resolve.First[opnsense.StaticKeyRow],
		func(c context.Context) error {
			_, err := ctx.API.AddStaticKey(c, opnsense.StaticKeyPayload{
				Description: ctx.Descriptor(prefix),
				Mode:        mode,
			})
			return err
		},
		resolve.Options{},
	)
	if err != nil {
		return err
	}
	ctx.Observer.Resource("static key", row.Description, created)

	key, err := ctx.API.GetStaticKey(ctx, row.UUID)
	if err != nil {
		return fmt.Errorf("fetch static key %s: %w", row.UUID, err)
	}
	if !strings.HasPrefix(strings.TrimSpace(key.Key), opnsense.StaticKeyHeader) {
		return fmt.Errorf("static key %s: material does not start with %q", row.UUID, opnsense.StaticKeyHeader)
	}

	ref, err := row.Reference()
	if err != nil {
		return fmt.Errorf("static key %q: %w", row.Description, err)
	}
	ctx.State.StaticKeyRef = ref
	ctx.State.StaticKeyUUID = row.UUID

	if err := ctx.API.ReconfigureOpenVPN(ctx); err != nil {
		return fmt.Errorf("reload openvpn service: %w", err)
	}

	return ctx.Exporter.Write(export.ArtifactStaticKey, key)
}

// staticKeyAPIMode maps the configuration spelling to the API's enum.
func staticKeyAPIMode(mode string) string {
	switch mode {
	case "tls-crypt":
		return "crypt"
	case "tls-auth":
		return "auth"
	default:
		return mode
	}
}
