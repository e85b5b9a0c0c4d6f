package server

import "testing"

func TestPhaseNotice(t *testing.T) {
	cases := []struct {
		label string
		dead  []string
		want  string
	}{
		{"Day 1", nil, "Day 1 has started!"},
		{"Night 0", []string{}, "Night 0 has started!"},
		{"Day 3", []string{"Ada"}, "Day 3: Ada has died"},
		{"Night 2", []string{"Ada", "Ben"}, "Night 2: Ada and Ben have died"},
		{"Night 2", []string{"Ada", "Ben", "Cas"}, "Night 2: Ada, Ben and Cas have died"},
	}
	for _, tc := range cases {
		if got := phaseNotice(tc.label, tc.dead); got != tc.want {
			t.Errorf("phaseNotice(%q, %v) = %q, want %q", tc.label, tc.dead, got, tc.want)
		}
	}
}
