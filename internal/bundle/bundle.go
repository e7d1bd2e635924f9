// Package bundle assembles ready-to-import OpenVPN client profiles from the
// artifacts a provisioning run exported. All key material is inlined, so one
// .ovpn file per user is the only thing that needs to reach the client.
package bundle

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/opnsense-tools/opnvpn/internal/export"
	"github.com/opnsense-tools/opnvpn/internal/opnsense"
	"github.com/opnsense-tools/opnvpn/internal/util/naming"
)

// Params describe the server endpoint the profiles point at.
type Params struct {
	Remote   string
	Port     string
	Protocol string // instance spelling, e.g. udp4
	KeyMode  string // tls-crypt or tls-auth
}

const profileTemplate = `client
dev tun
proto {{.Proto}}
remote {{.Remote}} {{.Port}}
resolv-retry infinite
nobind
persist-key
persist-tun
remote-cert-tls server
auth-user-pass
verb 3
{{- if .KeyDirection}}
key-direction {{.KeyDirection}}
{{- end}}
<ca>
{{.CA}}</ca>
<cert>
{{.Cert}}</cert>
<key>
{{.Key}}</key>
<{{.KeyTag}}>
{{.TLSKey}}</{{.KeyTag}}>
`

var profileTmpl = template.Must(template.New("ovpn").Parse(profileTemplate))

// Builder renders profiles out of one artifact directory.
type Builder struct {
	dir    string
	params Params
}

// NewBuilder binds a builder to the directory a provisioning run exported
// into.
func NewBuilder(artifactDir string, p Params) *Builder {
	return &Builder{dir: artifactDir, params: p}
}

// Users lists the user names with an exported client certificate, sorted.
func (b *Builder) Users() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("read artifact directory %s: %w", b.dir, err)
	}
	var users []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "client-") && strings.HasSuffix(name, ".json") {
			users = append(users, strings.TrimSuffix(strings.TrimPrefix(name, "client-"), ".json"))
		}
	}
	sort.Strings(users)
	return users, nil
}

// Build renders the profile for one user.
func (b *Builder) Build(user string) ([]byte, error) {
	var ca opnsense.CARow
	if err := b.readArtifact(export.ArtifactCA, &ca); err != nil {
		return nil, err
	}
	var cert opnsense.CertRow
	if err := b.readArtifact(export.ClientArtifact(user), &cert); err != nil {
		return nil, err
	}
	var key opnsense.StaticKey
	if err := b.readArtifact(export.ArtifactStaticKey, &key); err != nil {
		return nil, err
	}

	caPEM, err := decodePEM(ca.Certificate)
	if err != nil {
		return nil, fmt.Errorf("ca certificate: %w", err)
	}
	certPEM, err := decodePEM(cert.Certificate)
	if err != nil {
		return nil, fmt.Errorf("certificate for %s: %w", user, err)
	}
	if cert.PrivateKey == "" {
		return nil, fmt.Errorf("no private key exported for %s; the appliance only returns it on creation", user)
	}
	keyPEM, err := decodePEM(cert.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("private key for %s: %w", user, err)
	}

	data := struct {
		Proto, Remote, Port   string
		CA, Cert, Key, TLSKey string
		KeyTag, KeyDirection  string
	}{
		Proto:  wireProtocol(b.params.Protocol),
		Remote: b.params.Remote,
		Port:   b.params.Port,
		CA:     ensureTrailingNewline(caPEM),
		Cert:   ensureTrailingNewline(certPEM),
		Key:    ensureTrailingNewline(keyPEM),
		TLSKey: ensureTrailingNewline(key.Key),
		KeyTag: "tls-crypt",
	}
	if b.params.KeyMode == "tls-auth" {
		data.KeyTag = "tls-auth"
		data.KeyDirection = "1"
	}

	var out strings.Builder
	if err := profileTmpl.Execute(&out, data); err != nil {
		return nil, fmt.Errorf("render profile for %s: %w", user, err)
	}
	return []byte(out.String()), nil
}

// Write renders the profile and stores it as <user>.ovpn under outDir.
func (b *Builder) Write(user, outDir string) (string, error) {
	profile, err := b.Build(user)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return "", fmt.Errorf("create bundle directory %s: %w", outDir, err)
	}
	path := filepath.Join(outDir, naming.SanitizeProfileName(user)+".ovpn")
	if err := os.WriteFile(path, profile, 0o600); err != nil {
		return "", fmt.Errorf("write profile %s: %w", path, err)
	}
	return path, nil
}

func (b *Builder) readArtifact(name string, out any) error {
	data, err := os.ReadFile(filepath.Join(b.dir, name))
	if err != nil {
		return fmt.Errorf("read artifact %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode artifact %s: %w", name, err)
	}
	return nil
}

// decodePEM accepts the appliance's base64-wrapped PEM as well as raw PEM.
func decodePEM(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("empty material")
	}
	if strings.Contains(s, "-----BEGIN") {
		return s, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("material is neither PEM nor base64: %w", err)
	}
	if !strings.Contains(string(decoded), "-----BEGIN") {
		return "", fmt.Errorf("decoded material is not PEM")
	}
	return string(decoded), nil
}

// wireProtocol maps the instance protocol spelling to the client directive.
func wireProtocol(proto string) string {
	switch proto {
	case "udp4", "udp6":
		return "udp"
	case "tcp4", "tcp6":
		return "tcp"
	default:
		if proto == "" {
			return "udp"
		}
		return proto
	}
}

func ensureTrailingNewline(s string) string {
	if !strings.HasSuffix(s, "\n") {
		return s + "\n"
	}
	return s
}
