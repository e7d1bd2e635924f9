package opnsense

import (
	"context"
	"fmt"
)

// Endpoints of the firewall filter API. Apply has a fallback path because
// older releases expose it under the base controller only.
const (
	pathRuleSearch        = "/api/firewall/filter/search_rule"
	pathRuleAdd           = "/api/firewall/filter/add_rule"
	pathFirewallApply     = "/api/firewall/filter/apply"
	pathFirewallApplyBase = "/api/firewall/filter_base/apply"
)

// RuleRow is one row of the filter rule listing.
type RuleRow struct {
	UUID        string `json:"uuid"`
	Description string `json:"description"`
	Interface   string `json:"interface"`
}

func (r RuleRow) Reference() (Reference, error) {
	return refFrom("", r.UUID, "")
}

// RulePayload creates a pass rule. The exact description doubles as the
// idempotency key, so it must be deterministic across runs.
type RulePayload struct {
	Enabled         string `json:"enabled"`
	Action          string `json:"action"`
	Interface       string `json:"interface"`
	Direction       string `json:"direction"`
	Protocol        string `json:"protocol"`
	SourceNet       string `json:"source_net"`
	DestinationNet  string `json:"destination_net"`
	DestinationPort string `json:"destination_port"`
	Description     string `json:"description"`
}

func (c *Client) SearchRules(ctx context.Context) ([]RuleRow, error) {
	return search[RuleRow](ctx, c, pathRuleSearch)
}

func (c *Client) AddRule(ctx context.Context, p RulePayload) (*AddResult, error) {
	if p.Action == "" {
		p.Action = "pass"
	}
	if p.Enabled == "" {
		p.Enabled = "1"
	}
	return c.add(ctx, pathRuleAdd, map[string]RulePayload{"rule": p})
}

// ApplyFirewall activates pending filter changes, trying the primary apply
// endpoint first and the base controller as a fallback. Both failing is
// reported as one error carrying both causes.
func (c *Client) ApplyFirewall(ctx context.Context) error {
	primaryErr := c.post(ctx, pathFirewallApply, nil, nil)
	if primaryErr == nil {
		return nil
	}
	fallbackErr := c.post(ctx, pathFirewallApplyBase, nil, nil)
	if fallbackErr == nil {
		return nil
	}
	return fmt.Errorf("firewall apply failed on both endpoints: primary: %v; fallback: %w", primaryErr, fallbackErr)
}
