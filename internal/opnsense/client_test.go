package opnsense

import (
	"context"
	"errors"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase = "https://firewall.example.com:4443"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := NewClient(testBase, "key", "secret")
	gock.InterceptClient(c.rc.GetClient())
	t.Cleanup(gock.Off)
	return c
}

func TestSearchCAsReturnsRows(t *testing.T) {
	c := newTestClient(t)

	gock.New(testBase).
		Post("/api/trust/ca/search").
		Reply(200).
		JSON(map[string]any{
			"rows": []map[string]any{
				{"uuid": "u1", "refid": "r1", "descr": "AutoCA_VPN_20260101_000000"},
				{"uuid": "u2", "refid": "r2", "descr": "Unrelated CA"},
			},
		})

	rows, err := c.SearchCAs(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "r1", rows[0].RefID)
	assert.Equal(t, "AutoCA_VPN_20260101_000000", rows[0].Description)
}

func TestAddGroupSaved(t *testing.T) {
	c := newTestClient(t)

	gock.New(testBase).
		Post("/api/auth/group/add").
		JSON(map[string]any{"group": map[string]any{"name": "vpn-users", "description": "VPN users (auto-generated)"}}).
		Reply(200).
		JSON(map[string]any{"result": "saved", "uuid": "new-uuid"})

	res, err := c.AddGroup(context.Background(), GroupPayload{
		Name:        "vpn-users",
		Description: "VPN users (auto-generated)",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-uuid", res.UUID)
	assert.True(t, res.Saved())
}

func TestAddRejectedByValidation(t *testing.T) {
	c := newTestClient(t)

	gock.New(testBase).
		Post("/api/auth/group/add").
		Reply(200).
		JSON(map[string]any{"result": "failed", "validations": map[string]any{"group.name": "already in use"}})

	_, err := c.AddGroup(context.Background(), GroupPayload{Name: "vpn-users"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}

func TestHTTPErrorCarriesStatusAndBody(t *testing.T) {
	c := newTestClient(t)

	gock.New(testBase).
		Post("/api/trust/cert/search").
		Reply(401).
		BodyString(`{"message":"authentication failed"}`)

	_, err := c.SearchCerts(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 401, apiErr.Status)
	assert.Contains(t, apiErr.Body, "authentication failed")
	assert.Equal(t, "/api/trust/cert/search", apiErr.Path)
}

func TestApplyFirewallFallsBack(t *testing.T) {
	c := newTestClient(t)

	gock.New(testBase).
		Post("/api/firewall/filter/apply").
		Reply(404)
	gock.New(testBase).
		Post("/api/firewall/filter_base/apply").
		Reply(200).
		JSON(map[string]any{"status": "ok"})

	err := c.ApplyFirewall(context.Background())
	assert.NoError(t, err)
}

func TestApplyFirewallBothEndpointsFail(t *testing.T) {
	c := newTestClient(t)

	gock.New(testBase).
		Post("/api/firewall/filter/apply").
		Reply(500)
	gock.New(testBase).
		Post("/api/firewall/filter_base/apply").
		Reply(500)

	err := c.ApplyFirewall(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both endpoints")
}

func TestGetStaticKeyUnwrapsEnvelope(t *testing.T) {
	c := newTestClient(t)

	gock.New(testBase).
		Get("/api/openvpn/static_key/get/sk-uuid").
		Reply(200).
		JSON(map[string]any{
			"statickey": map[string]any{
				"descr": "AutoTLSKey_20260101_000000",
				"mode":  "crypt",
				"key":   StaticKeyHeader + "\nabcdef\n-----END OpenVPN Static key V1-----",
			},
		})

	key, err := c.GetStaticKey(context.Background(), "sk-uuid")
	require.NoError(t, err)
	assert.Equal(t, "crypt", key.Mode)
	assert.Contains(t, key.Key, StaticKeyHeader)
}
