package provisioning

import (
	"context"

	"github.com/opnsense-tools/opnvpn/internal/opnsense"
)

// API is the appliance surface the stages consume. It mirrors the concrete
// client so tests can substitute a fake without HTTP.
type API interface {
	SearchGroups(ctx context.Context) ([]opnsense.GroupRow, error)
	AddGroup(ctx context.Context, p opnsense.GroupPayload) (*opnsense.AddResult, error)
	SearchUsers(ctx context.Context) ([]opnsense.UserRow, error)
	AddUser(ctx context.Context, p opnsense.UserPayload) (*opnsense.AddResult, error)

	SearchCAs(ctx context.Context) ([]opnsense.CARow, error)
	AddCA(ctx context.Context, p opnsense.CAPayload) (*opnsense.AddResult, error)
	SearchCerts(ctx context.Context) ([]opnsense.CertRow, error)
	AddCert(ctx context.Context, p opnsense.CertPayload) (*opnsense.AddResult, error)
	DeleteCert(ctx context.Context, uuid string) error

	SearchInstances(ctx context.Context) ([]opnsense.InstanceRow, error)
	AddInstance(ctx context.Context, p opnsense.InstancePayload) (*opnsense.AddResult, error)
	SetInstance(ctx context.Context, uuid string, opts opnsense.InstanceOptions) (*opnsense.AddResult, error)
	SearchStaticKeys(ctx context.Context) ([]opnsense.StaticKeyRow, error)
	AddStaticKey(ctx context.Context, p opnsense.StaticKeyPayload) (*opnsense.AddResult, error)
	GetStaticKey(ctx context.Context, uuid string) (*opnsense.StaticKey, error)
	ReconfigureOpenVPN(ctx context.Context) error

	SearchRules(ctx context.Context) ([]opnsense.RuleRow, error)
	AddRule(ctx context.Context, p opnsense.RulePayload) (*opnsense.AddResult, error)
	ApplyFirewall(ctx context.Context) error
}

var _ API = (*opnsense.Client)(nil)
