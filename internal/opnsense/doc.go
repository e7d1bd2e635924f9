// Package opnsense is a thin client for the OPNsense management API.
//
// All operations are single-resource: searches are POSTs with a search
// phrase returning a rows array, mutations are POSTs with one top-level
// object keyed by resource kind. Authentication is HTTP Basic with the API
// key/secret pair. The client performs no retries of mutations; transient
// visibility of just-created resources is the caller's concern (see
// internal/resolve).
package opnsense
