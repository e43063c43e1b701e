package util

import "testing"

func TestSanitizeHeader(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"alice", "alice"},
		{"  alice  ", "alice"},
		{"alice\r\nBcc: mallory@example.com", "aliceBcc: mallory@example.com"},
		{"tab\there", "tabhere"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeHeader(tt.in); got != tt.want {
			t.Errorf("SanitizeHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValueOr(t *testing.T) {
	if got := ValueOr("", "unknown"); got != "unknown" {
		t.Errorf("ValueOr(empty) = %q, want unknown", got)
	}
	if got := ValueOr("u-1", "unknown"); got != "u-1" {
		t.Errorf("ValueOr(u-1) = %q, want u-1", got)
	}
}
