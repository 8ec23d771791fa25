package triage

import (
	"slices"

	"github.com/linnemanlabs/triagebot/internal/chat"
	"github.com/linnemanlabs/triagebot/internal/taxonomy"
)

// Enricher derives analysis fields from raw messages using a fixed taxonomy.
type Enricher struct {
	tax *taxonomy.Config
}

// NewEnricher creates an Enricher for tax.
func NewEnricher(tax *taxonomy.Config) *Enricher {
	return &Enricher{tax: tax}
}

// Enrich drops the bot's own messages (when botID is set) and annotates the
// rest, preserving input order. Unknown modes get only the shared fields.
func (e *Enricher) Enrich(msgs []chat.Message, channel chat.Channel, botID string, mode Mode) []EnrichedMessage {
	out := make([]EnrichedMessage, 0, len(msgs))
	for i := range msgs {
		if botID != "" && msgs[i].BotID == botID {
			continue
		}
		out = append(out, e.enrichOne(&msgs[i], channel, mode))
	}
	return out
}

func (e *Enricher) enrichOne(raw *chat.Message, channel chat.Channel, mode Mode) EnrichedMessage {
	m := EnrichedMessage{
		Message:                 cloneMessage(raw),
		Channel:                 channel,
		AllReactions:            make([]string, 0, len(raw.Reactions)),
		ThreadedReplyCount:      raw.ReplyCount,
		ThreadedReplyUsersCount: raw.ReplyUsersCount,
	}
	for _, r := range raw.Reactions {
		m.AllReactions = append(m.AllReactions, ":"+r.Name+":")
	}

	if m.SubType == chat.SubTypeBotMessage {
		m.User = m.BotID
		m.PostedByAutomation = m.BotProfile != nil && m.BotProfile.IsWorkflowBot
	}

	switch mode {
	case ModeTriage:
		e.enrichTriage(&m)
	case ModeGeneric:
		m.ReactionCounts = make(map[string]int, len(m.Reactions))
		for _, r := range m.Reactions {
			m.ReactionCounts[r.Name] = r.Count
		}
	}
	return m
}

func (e *Enricher) enrichTriage(m *EnrichedMessage) {
	m.Levels = e.tax.MatchLevels(m.Text)
	m.Statuses = e.tax.MatchStatuses(m.AllReactions)

	m.LevelFlags = make(map[taxonomy.Level]bool, len(e.tax.Levels()))
	for _, l := range e.tax.Levels() {
		m.LevelFlags[l] = slices.Contains(m.Levels, l)
	}
	m.StatusFlags = make(map[taxonomy.Status]bool, len(e.tax.Statuses()))
	for _, s := range e.tax.Statuses() {
		m.StatusFlags[s] = slices.Contains(m.Statuses, s)
	}
}

func cloneMessage(raw *chat.Message) chat.Message {
	c := *raw
	if raw.BotProfile != nil {
		bp := *raw.BotProfile
		c.BotProfile = &bp
	}
	if raw.Reactions != nil {
		c.Reactions = make([]chat.Reaction, len(raw.Reactions))
		for i, r := range raw.Reactions {
			r.Users = slices.Clone(r.Users)
			c.Reactions[i] = r
		}
	}
	return c
}

// ReactionNames returns the sorted union of reaction names across msgs.
func ReactionNames(msgs []EnrichedMessage) []string {
	seen := make(map[string]struct{})
	for i := range msgs {
		for _, r := range msgs[i].Reactions {
			seen[r.Name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
