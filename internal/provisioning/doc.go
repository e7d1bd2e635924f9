// Package provisioning runs the ordered stages that turn a profile into a
// working VPN service on the appliance.
//
// The nine stages are strictly sequential: each one resolves or creates its
// resources, records the resulting handles in the shared State, and later
// stages fail fast when a handle they depend on is absent. The first stage
// failure aborts the run; the scratch directory is removed on both terminal
// outcomes. Resources committed by earlier stages are left in place; a
// re-run resolves them instead of duplicating them.
package provisioning
