package triage

import (
	"fmt"
	"time"

	"github.com/linnemanlabs/triagebot/internal/chat"
	"github.com/linnemanlabs/triagebot/internal/taxonomy"
)

// Mode selects the mode-specific enrichment applied after the shared fields.
type Mode string

const (
	ModeTriage  Mode = "triage"
	ModeGeneric Mode = "generic"
)

// ParseMode validates a mode name. An empty name selects ModeTriage.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeTriage:
		return ModeTriage, nil
	case ModeGeneric:
		return ModeGeneric, nil
	default:
		return "", fmt.Errorf("unknown stats type %q", s)
	}
}

// EnrichedMessage is a raw message plus the fields derived for analysis.
// The embedded Message is a copy; mutating it never affects the input.
type EnrichedMessage struct {
	chat.Message

	Channel                 chat.Channel
	AllReactions            []string
	ThreadedReplyCount      int
	ThreadedReplyUsersCount int
	PostedByAutomation      bool

	// Triage mode. The flag maps hold every configured tag.
	Levels      []taxonomy.Level
	Statuses    []taxonomy.Status
	LevelFlags  map[taxonomy.Level]bool
	StatusFlags map[taxonomy.Status]bool

	// Generic mode.
	ReactionCounts map[string]int
}

// HasLevel reports whether level matched this message.
func (m *EnrichedMessage) HasLevel(l taxonomy.Level) bool {
	return m.LevelFlags[l]
}

// HasStatus reports whether status matched this message.
func (m *EnrichedMessage) HasStatus(s taxonomy.Status) bool {
	return m.StatusFlags[s]
}

// RunSummary describes one job tick.
type RunSummary struct {
	RunID             string        `json:"run_id"`
	Job               string        `json:"job"`
	StartedAt         time.Time     `json:"started_at"`
	Duration          time.Duration `json:"duration"`
	Workspaces        int           `json:"workspaces"`
	WorkspaceFailures int           `json:"workspace_failures"`
	Channels          int           `json:"channels"`
	Notifications     int           `json:"notifications"`
	Matches           int           `json:"matches"`
	IncompleteFetches int           `json:"incomplete_fetches"`
}
