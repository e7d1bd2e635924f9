package provisioning

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opnsense-tools/opnvpn/internal/opnsense"
)

// fakeAPI is an in-memory appliance. Mutations become visible immediately,
// so the post-creation polling resolves on its first attempt.
type fakeAPI struct {
	mu  sync.Mutex
	seq int

	groups    []opnsense.GroupRow
	users     []opnsense.UserRow
	cas       []opnsense.CARow
	certs     []opnsense.CertRow
	keys      []opnsense.StaticKeyRow
	material  map[string]*opnsense.StaticKey
	instances []opnsense.InstanceRow
	rules     []opnsense.RuleRow

	addCalls     map[string]int
	deletedCerts []string
	setOptions   map[string]opnsense.InstanceOptions
	reconfigured int
	applied      int

	// badKeyMaterial makes generated static keys miss the header line.
	badKeyMaterial bool
	failApply      bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		material:   make(map[string]*opnsense.StaticKey),
		addCalls:   make(map[string]int),
		setOptions: make(map[string]opnsense.InstanceOptions),
	}
}

func (f *fakeAPI) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%04d", prefix, f.seq)
}

func (f *fakeAPI) validFrom() string {
	return time.Date(2026, 1, 1, 0, 0, f.seq, 0, time.UTC).Format("2006-01-02 15:04:05")
}

func saved(uuid string) *opnsense.AddResult {
	return &opnsense.AddResult{Result: "saved", UUID: uuid}
}

func (f *fakeAPI) SearchGroups(context.Context) ([]opnsense.GroupRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]opnsense.GroupRow(nil), f.groups...), nil
}

func (f *fakeAPI) AddGroup(_ context.Context, p opnsense.GroupPayload) (*opnsense.AddResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls["group"]++
	id := f.nextID("group")
	f.groups = append(f.groups, opnsense.GroupRow{UUID: id, GID: fmt.Sprintf("20%02d", len(f.groups)+1), Name: p.Name, Description: p.Description})
	return saved(id), nil
}

func (f *fakeAPI) SearchUsers(context.Context) ([]opnsense.UserRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]opnsense.UserRow(nil), f.users...), nil
}

func (f *fakeAPI) AddUser(_ context.Context, p opnsense.UserPayload) (*opnsense.AddResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls["user"]++
	id := f.nextID("user")
	f.users = append(f.users, opnsense.UserRow{UUID: id, Name: p.Name, FullName: p.FullName, Email: p.Email})
	return saved(id), nil
}

func (f *fakeAPI) SearchCAs(context.Context) ([]opnsense.CARow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]opnsense.CARow(nil), f.cas...), nil
}

func (f *fakeAPI) AddCA(_ context.Context, p opnsense.CAPayload) (*opnsense.AddResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls["ca"]++
	id := f.nextID("ca")
	f.cas = append(f.cas, opnsense.CARow{
		UUID: id, RefID: "ref-" + id, Description: p.Description,
		ValidFrom: f.validFrom(), Certificate: "Y2EtcGVt",
	})
	return saved(id), nil
}

func (f *fakeAPI) SearchCerts(context.Context) ([]opnsense.CertRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]opnsense.CertRow(nil), f.certs...), nil
}

func (f *fakeAPI) AddCert(_ context.Context, p opnsense.CertPayload) (*opnsense.AddResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls["cert"]++
	id := f.nextID("cert")
	f.certs = append(f.certs, opnsense.CertRow{
		UUID: id, RefID: "ref-" + id, Description: p.Description, CommonName: p.CommonName,
		CARef: p.CARef, ValidFrom: f.validFrom(), Certificate: "Y3J0LXBlbQ==", PrivateKey: "a2V5LXBlbQ==",
	})
	return saved(id), nil
}

func (f *fakeAPI) DeleteCert(_ context.Context, uuid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.certs[:0]
	for _, r := range f.certs {
		if r.UUID != uuid {
			kept = append(kept, r)
		}
	}
	f.certs = kept
	f.deletedCerts = append(f.deletedCerts, uuid)
	return nil
}

func (f *fakeAPI) SearchInstances(context.Context) ([]opnsense.InstanceRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]opnsense.InstanceRow(nil), f.instances...), nil
}

func (f *fakeAPI) AddInstance(_ context.Context, p opnsense.InstancePayload) (*opnsense.AddResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls["instance"]++
	id := f.nextID("instance")
	f.instances = append(f.instances, opnsense.InstanceRow{UUID: id, VPNID: p.VPNID, Role: p.Role, Description: p.Description})
	return saved(id), nil
}

func (f *fakeAPI) SetInstance(_ context.Context, uuid string, opts opnsense.InstanceOptions) (*opnsense.AddResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setOptions[uuid] = opts
	return saved(uuid), nil
}

func (f *fakeAPI) SearchStaticKeys(context.Context) ([]opnsense.StaticKeyRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]opnsense.StaticKeyRow(nil), f.keys...), nil
}

func (f *fakeAPI) AddStaticKey(_ context.Context, p opnsense.StaticKeyPayload) (*opnsense.AddResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls["statickey"]++
	id := f.nextID("key")
	f.keys = append(f.keys, opnsense.StaticKeyRow{UUID: id, Description: p.Description, Mode: p.Mode})
	material := opnsense.StaticKeyHeader + "\ndeadbeef\n-----END OpenVPN Static key V1-----\n"
	if f.badKeyMaterial {
		material = "not a key"
	}
	f.material[id] = &opnsense.StaticKey{Description: p.Description, Mode: p.Mode, Key: material}
	return saved(id), nil
}

func (f *fakeAPI) GetStaticKey(_ context.Context, uuid string) (*opnsense.StaticKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.material[uuid]
	if !ok {
		return nil, fmt.Errorf("no such static key %s", uuid)
	}
	return key, nil
}

func (f *fakeAPI) ReconfigureOpenVPN(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconfigured++
	return nil
}

func (f *fakeAPI) SearchRules(context.Context) ([]opnsense.RuleRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]opnsense.RuleRow(nil), f.rules...), nil
}

func (f *fakeAPI) AddRule(_ context.Context, p opnsense.RulePayload) (*opnsense.AddResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls["rule"]++
	id := f.nextID("rule")
	f.rules = append(f.rules, opnsense.RuleRow{UUID: id, Description: p.Description, Interface: p.Interface})
	return saved(id), nil
}

func (f *fakeAPI) ApplyFirewall(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failApply {
		return fmt.Errorf("apply endpoint unavailable")
	}
	f.applied++
	return nil
}

// fakeSSH records uploads and commands and replays canned mutator output.
type fakeSSH struct {
	uploads  map[string][]byte
	commands []string

	stdout string
	stderr string
	outErr error
	runErr error
}

func newFakeSSH(stdout string) *fakeSSH {
	return &fakeSSH{uploads: make(map[string][]byte), stdout: stdout}
}

func (s *fakeSSH) Run(_ context.Context, command string) (string, error) {
	s.commands = append(s.commands, command)
	return "", s.runErr
}

func (s *fakeSSH) Output(_ context.Context, command string) (string, string, error) {
	s.commands = append(s.commands, command)
	return s.stdout, s.stderr, s.outErr
}

func (s *fakeSSH) Upload(_ context.Context, data []byte, remotePath string) error {
	s.uploads[remotePath] = append([]byte(nil), data...)
	return nil
}

func quietObserver() *LogObserver {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewLogObserver(log)
}
