package provisioning

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opnsense-tools/opnvpn/internal/export"
	"github.com/opnsense-tools/opnvpn/internal/opnsense"
)

func TestUsersPhaseRequiresGroupGID(t *testing.T) {
	ctx := newTestContext(t, newFakeAPI(), newFakeSSH(""))

	err := (&UsersPhase{}).Provision(ctx)
	require.Error(t, err)
	var missing *MissingDependencyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "group-gid", missing.Field)
}

func TestServerCertPrunesSuperseded(t *testing.T) {
	api := newFakeAPI()
	api.certs = []opnsense.CertRow{
		{UUID: "cert-old", RefID: "ref-old", CommonName: "AutoVPN_Gateway", ValidFrom: "2024-01-01 00:00:00"},
		{UUID: "cert-new", RefID: "ref-new", CommonName: "AutoVPN_Gateway", ValidFrom: "2026-01-01 00:00:00"},
		{UUID: "cert-other", RefID: "ref-other", CommonName: "unrelated", ValidFrom: "2020-01-01 00:00:00"},
	}
	ctx := newTestContext(t, api, newFakeSSH(""))
	ctx.State.CARef = "ref-ca"

	require.NoError(t, (&ServerCertPhase{}).Provision(ctx))

	assert.Equal(t, opnsense.Reference("ref-new"), ctx.State.ServerCertRef)
	assert.Equal(t, []string{"cert-old"}, api.deletedCerts)
	assert.Zero(t, api.addCalls["cert"], "existing certificate must be reused")
}

// exportOrderAPI records whether the server-certificate artifact already
// existed when pruning deleted a duplicate.
type exportOrderAPI struct {
	*fakeAPI
	artifactPath    string
	exportedAtPrune bool
}

func (a *exportOrderAPI) DeleteCert(ctx context.Context, uuid string) error {
	if _, err := os.Stat(a.artifactPath); err == nil {
		a.exportedAtPrune = true
	}
	return a.fakeAPI.DeleteCert(ctx, uuid)
}

func TestServerCertExportedBeforePruning(t *testing.T) {
	inner := newFakeAPI()
	inner.certs = []opnsense.CertRow{
		{UUID: "cert-old", RefID: "ref-old", CommonName: "AutoVPN_Gateway", ValidFrom: "2024-01-01 00:00:00"},
		{UUID: "cert-new", RefID: "ref-new", CommonName: "AutoVPN_Gateway", ValidFrom: "2026-01-01 00:00:00"},
	}
	api := &exportOrderAPI{fakeAPI: inner}
	ctx := newTestContext(t, api, newFakeSSH(""))
	ctx.State.CARef = "ref-ca"
	api.artifactPath = filepath.Join(ctx.Exporter.Dir(), export.ArtifactServerCert)

	require.NoError(t, (&ServerCertPhase{}).Provision(ctx))

	require.Equal(t, []string{"cert-old"}, inner.deletedCerts)
	assert.True(t, api.exportedAtPrune, "artifact must exist before duplicates are deleted")
}

func TestStaticKeyTriggersServiceReload(t *testing.T) {
	api := newFakeAPI()
	ctx := newTestContext(t, api, newFakeSSH(""))

	require.NoError(t, (&StaticKeyPhase{}).Provision(ctx))

	assert.Equal(t, 1, api.reconfigured, "key material must go live as part of this stage")
}

func TestStaticKeyRejectsMalformedMaterial(t *testing.T) {
	api := newFakeAPI()
	api.badKeyMaterial = true
	ctx := newTestContext(t, api, newFakeSSH(""))

	err := (&StaticKeyPhase{}).Provision(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not start with")
}

func TestInstanceAllocatesLowestFreeID(t *testing.T) {
	api := newFakeAPI()
	api.instances = []opnsense.InstanceRow{
		{UUID: "i1", VPNID: "1", Role: "server", Description: "manual box"},
		{UUID: "i2", VPNID: "2", Role: "client", Description: "site link"},
		{UUID: "i4", VPNID: "4", Role: "server", Description: "lab"},
	}
	ctx := newTestContext(t, api, newFakeSSH(""))
	ctx.State.CARef = "ref-ca"
	ctx.State.ServerCertRef = "ref-cert"
	ctx.State.StaticKeyRef = "key-0001"

	require.NoError(t, (&InstancePhase{}).Provision(ctx))

	assert.Equal(t, 3, ctx.State.VPNID)
	assert.Equal(t, 1, api.addCalls["instance"])
	assert.Equal(t, 1, api.reconfigured)
}

func TestInstanceAppliesOptionsToExisting(t *testing.T) {
	api := newFakeAPI()
	api.instances = []opnsense.InstanceRow{
		{UUID: "i7", VPNID: "7", Role: "server", Description: "AutoVPN_Server_20250101_000000"},
	}
	ctx := newTestContext(t, api, newFakeSSH(""))
	ctx.State.CARef = "ref-ca"
	ctx.State.ServerCertRef = "ref-cert"
	ctx.State.StaticKeyRef = "key-0001"

	require.NoError(t, (&InstancePhase{}).Provision(ctx))

	assert.Equal(t, 7, ctx.State.VPNID)
	assert.Zero(t, api.addCalls["instance"])
	opts, ok := api.setOptions["i7"]
	require.True(t, ok, "options must converge on every run")
	assert.Equal(t, "1", opts.Enabled)
	assert.Equal(t, ctx.Profile.Automation.LocalNetwork, opts.LocalNetworks)
}

func TestInterfacePhaseSurfacesFailureCode(t *testing.T) {
	runner := newFakeSSH("")
	runner.stderr = "XML_PARSE_FAIL\n"
	runner.outErr = fmt.Errorf("exit status 1")
	ctx := newTestContext(t, newFakeAPI(), runner)

	err := (&InterfacePhase{}).Provision(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "XML_PARSE_FAIL")
}

func TestInterfacePhaseZeroNewSlots(t *testing.T) {
	runner := newFakeSSH("EXISTS dev=ovpns1 slot=opt2\nSUMMARY new=- existing=opt2\n")
	ctx := newTestContext(t, newFakeAPI(), runner)

	require.NoError(t, (&InterfacePhase{}).Provision(ctx))

	assert.Equal(t, []string{"opt2"}, ctx.State.Slots)
	// Existing slots are reloaded too, not only fresh assignments.
	require.Len(t, runner.commands, 2)
	assert.Contains(t, runner.commands[0], "/tmp/opnvpn-ifassign")
	assert.Equal(t, "configctl interface reconfigure opt2", runner.commands[1])
}

func TestInterfacePhaseReloadsEverySlot(t *testing.T) {
	runner := newFakeSSH("ASSIGNED dev=ovpns2 slot=opt5\nEXISTS dev=ovpns1 slot=opt2\nSUMMARY new=opt5 existing=opt2\n")
	ctx := newTestContext(t, newFakeAPI(), runner)

	require.NoError(t, (&InterfacePhase{}).Provision(ctx))

	assert.ElementsMatch(t, []string{"opt5", "opt2"}, ctx.State.Slots)
	require.Len(t, runner.commands, 3)
	assert.Contains(t, runner.commands, "configctl interface reconfigure opt5")
	assert.Contains(t, runner.commands, "configctl interface reconfigure opt2")
}

func TestInterfacePhaseMissingBinary(t *testing.T) {
	ctx := newTestContext(t, newFakeAPI(), newFakeSSH(""))
	ctx.MutatorBinary = "/nonexistent/opnvpn-ifassign"

	err := (&InterfacePhase{}).Provision(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read mutator binary")
}

func TestFirewallApplyFailureIsWarning(t *testing.T) {
	api := newFakeAPI()
	api.failApply = true
	ctx := newTestContext(t, api, newFakeSSH(""))

	require.NoError(t, (&FirewallPhase{}).Provision(ctx))

	warnings := ctx.Observer.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "firewall", warnings[0].Stage)
	assert.Equal(t, 2, api.addCalls["rule"], "rules are still persisted")
}

func TestFirewallTunnelInterfaceFallsBackToGroup(t *testing.T) {
	api := newFakeAPI()
	ctx := newTestContext(t, api, newFakeSSH(""))

	require.NoError(t, (&FirewallPhase{}).Provision(ctx))

	require.Len(t, api.rules, 2)
	assert.Equal(t, "wan", api.rules[0].Interface)
	assert.Equal(t, "openvpn", api.rules[1].Interface)
}

func TestFirewallUsesAssignedSlot(t *testing.T) {
	api := newFakeAPI()
	ctx := newTestContext(t, api, newFakeSSH(""))
	ctx.State.Slots = []string{"opt5"}

	require.NoError(t, (&FirewallPhase{}).Provision(ctx))

	require.Len(t, api.rules, 2)
	assert.Equal(t, "opt5", api.rules[1].Interface)
}

func TestMissingDependencyErrorMessage(t *testing.T) {
	err := error(&MissingDependencyError{Field: "ca"})
	assert.Contains(t, err.Error(), `"ca"`)
	var missing *MissingDependencyError
	assert.True(t, errors.As(err, &missing))
}
