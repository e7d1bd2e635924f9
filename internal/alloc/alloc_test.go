package alloc

import "testing"

func TestFirstFree(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		used    []int
		lo, hi  int
		want    int
		wantErr bool
	}{
		{name: "gap is taken", used: []int{1, 2, 4}, lo: 1, hi: 99, want: 3},
		{name: "empty set", used: nil, lo: 1, hi: 99, want: 1},
		{name: "dense prefix", used: []int{1, 2, 3}, lo: 1, hi: 99, want: 4},
		{name: "exhausted", used: rangeInts(1, 99), lo: 1, hi: 99, wantErr: true},
		{name: "inverted range", used: nil, lo: 5, hi: 1, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			used := make(map[int]bool, len(tt.used))
			for _, n := range tt.used {
				used[n] = true
			}
			got, err := FirstFree(used, tt.lo, tt.hi)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("FirstFree() = %d, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("FirstFree() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("FirstFree() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNextSlot(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		used []int
		want int
	}{
		{name: "never reuses gaps", used: []int{1, 3}, want: 4},
		{name: "empty document", used: nil, want: 1},
		{name: "single slot", used: []int{7}, want: 8},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			used := make(map[int]bool, len(tt.used))
			for _, n := range tt.used {
				used[n] = true
			}
			if got := NextSlot(used); got != tt.want {
				t.Errorf("NextSlot(%v) = %d, want %d", tt.used, got, tt.want)
			}
		})
	}
}

// NextSlot must be stable across repeated calls in the same run as long as
// each allocation is recorded in the used set.
func TestNextSlotMonotonicAcrossCalls(t *testing.T) {
	t.Parallel()
	used := map[int]bool{1: true, 3: true}
	first := NextSlot(used)
	if first != 4 {
		t.Fatalf("first allocation = %d, want 4", first)
	}
	used[first] = true
	if got := NextSlot(used); got != 5 {
		t.Errorf("second allocation = %d, want 5", got)
	}
}

func rangeInts(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		out = append(out, n)
	}
	return out
}
