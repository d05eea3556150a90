package validate

import (
	"strings"
	"testing"
)

func TestActionLog(t *testing.T) {
	cases := []struct {
		name       string
		actionType int
		detail     string
		violations int
	}{
		{"valid", 0, "solved a challenge", 0},
		{"negative type", -1, "solved a challenge", 1},
		{"empty detail", 1, "", 1},
		{"detail at limit", 1, strings.Repeat("a", MaxActionDetailLen), 0},
		{"detail over limit", 1, strings.Repeat("a", MaxActionDetailLen+1), 1},
		{"everything wrong", -5, "", 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ActionLog(tc.actionType, tc.detail)
			if len(got) != tc.violations {
				t.Fatalf("ActionLog() = %v, want %d violations", got, tc.violations)
			}
		})
	}
}
