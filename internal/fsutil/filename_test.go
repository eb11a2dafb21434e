package fsutil

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"pruned", "pruned"},
		{"split-2", "split-2"},
		{"../../etc/passwd", "etc_passwd"},
		{"a  b//c", "a_b_c"},
		{"under__score", "under_score"},
		{"", "unknown"},
		{"...", "unknown"},
		{"naïve stage", "na_ve_stage"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := SanitizeFilename(strings.Repeat("x", 500)); len(got) != maxFilenameLen {
		t.Errorf("long name not truncated: len %d", len(got))
	}
}
