package provisioning

import (
	"context"
	"fmt"
	"strings"

	"github.com/opnsense-tools/opnvpn/internal/opnsense"
	"github.com/opnsense-tools/opnvpn/internal/resolve"
)

// FirewallPhase ensures the two pass rules the service needs: the WAN rule
// admitting handshake traffic to the listen port, and the tunnel rule
// admitting traffic from connected clients. Rule descriptions are derived
// from the configuration only, so re-runs find the same rules. The final
// apply is best-effort; rules are persisted either way.
type FirewallPhase struct{}

func (p *FirewallPhase) Name() string { return "firewall" }

func (p *FirewallPhase) Provision(ctx *Context) error {
	a := ctx.Profile.Automation

	wanDescr := fmt.Sprintf("AutoVPN: allow %s/%s on wan", ruleProtocol(a.Firewall.Protocol), a.Firewall.ListenPort)
	if err := p.ensureRule(ctx, wanDescr, opnsense.RulePayload{
		Interface:       "wan",
		Direction:       "in",
		Protocol:        ruleProtocol(a.Firewall.Protocol),
		SourceNet:       "any",
		DestinationNet:  "any",
		DestinationPort: a.Firewall.ListenPort,
		Description:     wanDescr,
	}); err != nil {
		return err
	}

	tunnelDescr := fmt.Sprintf("AutoVPN: allow tunnel %s", a.TunnelNetwork)
	if err := p.ensureRule(ctx, tunnelDescr, opnsense.RulePayload{
		Interface:      p.tunnelInterface(ctx),
		Direction:      "in",
		Protocol:       "any",
		SourceNet:      a.TunnelNetwork,
		DestinationNet: "any",
		Description:    tunnelDescr,
	}); err != nil {
		return err
	}

	if err := ctx.API.ApplyFirewall(ctx); err != nil {
		ctx.Observer.Warn(p.Name(), "apply filter changes; rules are saved but not yet active", err)
	}
	return nil
}

func (p *FirewallPhase) ensureRule(ctx *Context, descr string, payload opnsense.RulePayload) error {
	_, created, err := resolve.Resolve(ctx, "firewall rule",
		ctx.API.SearchRules,
		func(r opnsense.RuleRow) bool { return r.Description == descr },
		resolve.First[opnsense.RuleRow],
		func(c context.Context) error {
			_, err := ctx.API.AddRule(c, payload)
			return err
		},
		resolve.Options{},
	)
	if err != nil {
		return err
	}
	ctx.Observer.Resource("firewall rule", descr, created)
	return nil
}

// tunnelInterface prefers the slot assigned this run and falls back to the
// built-in openvpn interface group.
func (p *FirewallPhase) tunnelInterface(ctx *Context) string {
	if len(ctx.State.Slots) > 0 {
		return ctx.State.Slots[0]
	}
	return "openvpn"
}

// ruleProtocol converts the instance protocol spelling (udp4, tcp6) into the
// filter API's bare protocol name.
func ruleProtocol(proto string) string {
	return strings.ToUpper(strings.TrimRight(proto, "46"))
}
