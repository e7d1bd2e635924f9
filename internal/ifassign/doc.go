// Package ifassign assigns logical interface slots to OpenVPN devices in
// the appliance's configuration document.
//
// It is built to run on the appliance itself (see cmd/opnvpn-ifassign) and
// follows a strict Backup → Discover → Plan → Write → Validate → Commit
// sequence. The live document is never mutated in place: changes land in a
// candidate file that is re-parsed before an atomic rename replaces the
// live path, and any failure after backup restores the pre-mutation state.
//
// Results cross the SSH channel as a line-oriented protocol; the parser for
// that protocol lives here too so producer and consumer cannot drift.
package ifassign
