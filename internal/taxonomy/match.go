package taxonomy

import (
	"slices"
	"strings"
)

// MatchLevels returns every level whose marker appears anywhere in text, in
// configuration order.
func (c *Config) MatchLevels(text string) []Level {
	var out []Level
	if text == "" {
		return out
	}
	for _, l := range c.levels {
		if strings.Contains(text, c.levelMarker[l]) {
			out = append(out, l)
		}
	}
	return out
}

// MatchStatuses returns every status whose reaction marker is present in
// reactions, in configuration order. reactions are in ":name:" form.
func (c *Config) MatchStatuses(reactions []string) []Status {
	var out []Status
	if len(reactions) == 0 {
		return out
	}
	for _, s := range c.statuses {
		if slices.Contains(reactions, c.statusReaction[s]) {
			out = append(out, s)
		}
	}
	return out
}
