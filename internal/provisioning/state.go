package provisioning

import (
	"fmt"

	"github.com/opnsense-tools/opnvpn/internal/opnsense"
)

// State holds the shared results of provisioning stages. It is
// progressively populated as each stage completes; once a handle is set it
// is never cleared within the run. Stages that depend on a handle use the
// require helpers to fail fast with a named-field error instead of passing
// an empty reference downstream.
type State struct {
	// Group results.
	GroupRef opnsense.Reference
	GroupGID string

	// Trust results.
	CARef         opnsense.Reference
	CACertificate string // base64 PEM; may be empty (advisory)
	ServerCertRef opnsense.Reference

	// Per-user client certificate references.
	ClientCertRefs map[string]opnsense.Reference

	// OpenVPN results.
	StaticKeyRef  opnsense.Reference
	StaticKeyUUID string
	InstanceRef   opnsense.Reference
	InstanceUUID  string
	VPNID         int

	// Interface slots touched by the remote mutation, new and existing.
	Slots []string
}

// NewState returns an empty state.
func NewState() *State {
	return &State{ClientCertRefs: make(map[string]opnsense.Reference)}
}

// MissingDependencyError names the handle a stage needed but found unset.
type MissingDependencyError struct {
	Field string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("required handle %q not populated by an earlier stage", e.Field)
}

func (s *State) requireRef(field string, ref opnsense.Reference) (opnsense.Reference, error) {
	if ref == "" {
		return "", &MissingDependencyError{Field: field}
	}
	return ref, nil
}

// RequireCA returns the certificate-authority reference or a missing-
// dependency error.
func (s *State) RequireCA() (opnsense.Reference, error) {
	return s.requireRef("ca", s.CARef)
}

// RequireServerCert returns the server-certificate reference.
func (s *State) RequireServerCert() (opnsense.Reference, error) {
	return s.requireRef("server-certificate", s.ServerCertRef)
}

// RequireStaticKey returns the pre-shared-key reference.
func (s *State) RequireStaticKey() (opnsense.Reference, error) {
	return s.requireRef("static-key", s.StaticKeyRef)
}

// RequireGroup returns the group reference.
func (s *State) RequireGroup() (opnsense.Reference, error) {
	return s.requireRef("group", s.GroupRef)
}
