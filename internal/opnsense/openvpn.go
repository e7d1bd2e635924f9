package opnsense

import (
	"context"
	"fmt"
	"strconv"
)

// Endpoints of the OpenVPN API (instances, static keys, service control).
const (
	pathInstanceSearch     = "/api/openvpn/instances/search"
	pathInstanceAdd        = "/api/openvpn/instances/add"
	pathInstanceSet        = "/api/openvpn/instances/set/"
	pathStaticKeySearch    = "/api/openvpn/static_key/search"
	pathStaticKeyAdd       = "/api/openvpn/static_key/add"
	pathStaticKeyGet       = "/api/openvpn/static_key/get/"
	pathServiceReconfigure = "/api/openvpn/service/reconfigure"
)

// StaticKeyHeader is the first line of a well-formed OpenVPN static key
// file. Generated key material is checked against it before any resource
// references the key.
const StaticKeyHeader = "-----BEGIN OpenVPN Static key V1-----"

// InstanceRow is one row of the OpenVPN instance listing.
type InstanceRow struct {
	UUID        string `json:"uuid"`
	VPNID       string `json:"vpnid"`
	Role        string `json:"role"`
	Description string `json:"description"`
}

func (r InstanceRow) Reference() (Reference, error) {
	return refFrom("", r.UUID, r.VPNID)
}

// VPNIDInt parses the numeric service identifier; -1 when absent.
func (r InstanceRow) VPNIDInt() int {
	n, err := strconv.Atoi(r.VPNID)
	if err != nil {
		return -1
	}
	return n
}

// StaticKeyRow is one row of the static key listing.
type StaticKeyRow struct {
	UUID        string `json:"uuid"`
	Description string `json:"descr"`
	Mode        string `json:"mode"`
}

func (r StaticKeyRow) Reference() (Reference, error) {
	return refFrom("", r.UUID, "")
}

// StaticKey is the full representation behind a static key row, including
// the secret key material.
type StaticKey struct {
	Description string `json:"descr"`
	Mode        string `json:"mode"`
	Key         string `json:"key"`
}

// InstancePayload creates a server instance. References point at resources
// created by earlier pipeline stages.
type InstancePayload struct {
	Role          string `json:"role"`
	Description   string `json:"description"`
	VPNID         string `json:"vpnid"`
	Protocol      string `json:"proto"`
	Port          string `json:"port"`
	DevType       string `json:"dev_type"`
	Topology      string `json:"topology"`
	TunnelNetwork string `json:"server"`
	CARef         string `json:"ca"`
	CertRef       string `json:"cert"`
	TLSKeyRef     string `json:"tls_key"`
	TLSKeyMode    string `json:"tls_key_mode"`
}

// InstanceOptions is the second mutation applied after creation: routed
// local networks and behavioral flags.
type InstanceOptions struct {
	LocalNetworks string `json:"local"`
	PushRoutes    string `json:"push_route"`
	RegisterDNS   string `json:"register_dns"`
	Enabled       string `json:"enabled"`
}

// StaticKeyPayload creates a pre-shared tunnel key. The appliance generates
// the key material server-side.
type StaticKeyPayload struct {
	Description string `json:"descr"`
	Mode        string `json:"mode"`
}

func (c *Client) SearchInstances(ctx context.Context) ([]InstanceRow, error) {
	return search[InstanceRow](ctx, c, pathInstanceSearch)
}

func (c *Client) AddInstance(ctx context.Context, p InstancePayload) (*AddResult, error) {
	return c.add(ctx, pathInstanceAdd, map[string]InstancePayload{"instance": p})
}

// SetInstance applies post-creation options to an existing instance.
func (c *Client) SetInstance(ctx context.Context, uuid string, opts InstanceOptions) (*AddResult, error) {
	if uuid == "" {
		return nil, fmt.Errorf("set instance: empty uuid")
	}
	return c.add(ctx, pathInstanceSet+uuid, map[string]InstanceOptions{"instance": opts})
}

func (c *Client) SearchStaticKeys(ctx context.Context) ([]StaticKeyRow, error) {
	return search[StaticKeyRow](ctx, c, pathStaticKeySearch)
}

func (c *Client) AddStaticKey(ctx context.Context, p StaticKeyPayload) (*AddResult, error) {
	return c.add(ctx, pathStaticKeyAdd, map[string]StaticKeyPayload{"statickey": p})
}

// GetStaticKey fetches the full key representation, including the secret
// material.
func (c *Client) GetStaticKey(ctx context.Context, uuid string) (*StaticKey, error) {
	if uuid == "" {
		return nil, fmt.Errorf("get static key: empty uuid")
	}
	var out struct {
		StaticKey StaticKey `json:"statickey"`
	}
	if err := c.get(ctx, pathStaticKeyGet+uuid, &out); err != nil {
		return nil, err
	}
	return &out.StaticKey, nil
}

// ReconfigureOpenVPN asks the appliance to reload the OpenVPN service so
// configuration mutations take effect.
func (c *Client) ReconfigureOpenVPN(ctx context.Context) error {
	return c.post(ctx, pathServiceReconfigure, nil, nil)
}
