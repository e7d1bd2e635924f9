package naming

import (
	"testing"
	"time"
)

func TestDescriptor(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 8, 23, 14, 5, 9, 0, time.UTC)
	got := Descriptor("AutoCA_VPN", at)
	want := "AutoCA_VPN_20260823_140509"
	if got != want {
		t.Errorf("Descriptor() = %q, want %q", got, want)
	}
}

func TestMatchesPrefix(t *testing.T) {
	t.Parallel()
	tests := []struct {
		label  string
		prefix string
		want   bool
	}{
		{"AutoCA_VPN_20260823_140509", "AutoCA_VPN", true},
		{"AutoCA_VPN", "AutoCA_VPN", true},
		{"AutoCA_VPN2_20260823_140509", "AutoCA_VPN", false},
		{"OtherCA_20260823_140509", "AutoCA_VPN", false},
		{"", "AutoCA_VPN", false},
	}
	for _, tt := range tests {
		if got := MatchesPrefix(tt.label, tt.prefix); got != tt.want {
			t.Errorf("MatchesPrefix(%q, %q) = %v, want %v", tt.label, tt.prefix, got, tt.want)
		}
	}
}

func TestSanitizeProfileName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"Default", "default"},
		{"Office HQ (backup)", "office_hq__backup_"},
		{"fw-01.example.com", "fw-01.example.com"},
		{"  ", "default"},
	}
	for _, tt := range tests {
		if got := SanitizeProfileName(tt.in); got != tt.want {
			t.Errorf("SanitizeProfileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
