// Package alloc computes free identifier slots for remote resources.
//
// Two policies exist because the resources they serve have different
// compatibility constraints. VPN instance ids may reuse gaps freely, so the
// lowest free id in the legal range is taken. Logical interface slots must
// never be renumbered or reused once allocated, because firewall rules and
// other configuration reference slots by name; those always advance past the
// highest number ever observed.
//
// Both policies are pure functions of the used set, which keeps re-runs of
// the provisioning pipeline deterministic.
package alloc

import "fmt"

// FirstFree returns the lowest integer in [lo, hi] that is absent from used.
// It fails when the range is exhausted.
func FirstFree(used map[int]bool, lo, hi int) (int, error) {
	if lo > hi {
		return 0, fmt.Errorf("invalid range %d..%d", lo, hi)
	}
	for id := lo; id <= hi; id++ {
		if !used[id] {
			return id, nil
		}
	}
	return 0, fmt.Errorf("no free identifier in range %d..%d", lo, hi)
}

// NextSlot returns one past the highest slot number in used, never reusing a
// lower gap. An empty set yields 1.
func NextSlot(used map[int]bool) int {
	max := 0
	for n := range used {
		if n > max {
			max = n
		}
	}
	return max + 1
}
