// Package export persists the authoritative remote representation of every
// provisioned resource to the run's output directory.
//
// The files are consumed verbatim by client bundle assembly, so each write
// stores exactly what the appliance returned, including secret material
// such as private keys and the pre-shared tunnel key, under a fixed,
// resource-kind-specific name. Writes are one-way; nothing here reads the
// files back.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Fixed artifact names. Client certificates use ClientArtifact(user).
const (
	ArtifactGroup      = "group.json"
	ArtifactCA         = "ca.json"
	ArtifactServerCert = "server-cert.json"
	ArtifactStaticKey  = "static-key.json"
	ArtifactInstance   = "instance.json"
)

// ClientArtifact returns the artifact name for a user's client certificate.
func ClientArtifact(user string) string {
	return fmt.Sprintf("client-%s.json", user)
}

// Exporter writes artifacts into one run's output directory.
type Exporter struct {
	dir string
}

// NewExporter creates the output directory and returns an exporter bound to
// it.
func NewExporter(dir string) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return &Exporter{dir: dir}, nil
}

// Dir returns the output directory.
func (e *Exporter) Dir() string { return e.dir }

// Write persists one resource representation under the given artifact name.
// The last successful write for a name reflects the resource actually in
// use by this run.
func (e *Exporter) Write(name string, resource any) error {
	data, err := json.MarshalIndent(resource, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact %s: %w", name, err)
	}
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	return nil
}
