package taxonomy

import (
	"slices"
	"testing"
)

func TestMatchLevels(t *testing.T) {
	t.Parallel()

	c := mustParse(t, testYAML)

	tests := []struct {
		name string
		text string
		want []Level
	}{
		{"none", "just chatting", nil},
		{"empty", "", nil},
		{"single", "prod is down 🔴", []Level{"high"}},
		{"both in config order", "🔴 then 🟢", []Level{"low", "high"}},
		{"substring not token", "x🔴x", []Level{"high"}},
		{"repeated marker counted once", "🔴🔴", []Level{"high"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := c.MatchLevels(tt.text); !slices.Equal(got, tt.want) {
				t.Errorf("MatchLevels(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestMatchStatuses(t *testing.T) {
	t.Parallel()

	c := mustParse(t, testYAML)

	tests := []struct {
		name      string
		reactions []string
		want      []Status
	}{
		{"nil", nil, nil},
		{"unrelated", []string{":tada:"}, nil},
		{"unicode marker normalized", []string{":✅:"}, []Status{"resolved"}},
		{"colon marker", []string{":eyes:"}, []Status{"seen"}},
		{"both", []string{":eyes:", ":✅:"}, []Status{"resolved", "seen"}},
		{"bare name does not match", []string{"eyes"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := c.MatchStatuses(tt.reactions); !slices.Equal(got, tt.want) {
				t.Errorf("MatchStatuses(%v) = %v, want %v", tt.reactions, got, tt.want)
			}
		})
	}
}
