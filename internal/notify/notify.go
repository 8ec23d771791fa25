// Package notify composes and posts the per-channel triage summary.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/triagebot/internal/chat"
)

// Report is the input for one channel notification.
type Report struct {
	ChannelID     string
	LookbackHours int
	// LevelMarkers and StatusMarkers are the human-readable markers of the
	// job's levels to report on and statuses that suppress reporting.
	LevelMarkers  []string
	StatusMarkers []string
	// Count is the number of messages that survived the job filter.
	Count int
}

// Compose renders the notification text for r.
func Compose(r Report) string {
	levels := strings.Join(r.LevelMarkers, "/")
	statuses := strings.Join(r.StatusMarkers, "/")

	if r.Count <= 0 {
		return fmt.Sprintf(
			":tada: Nice job, <#%s>! There are 0 messages from the past %d hours that are either %s and don't have either %s",
			r.ChannelID, r.LookbackHours, levels, statuses,
		)
	}

	count := "There is *1 message*"
	if r.Count > 1 {
		count = fmt.Sprintf("There are *%d messages*", r.Count)
	}
	return fmt.Sprintf(
		":wave: Hi there, <#%s>. %s from the past %d hours that are either %s and don't have either %s that need your attention.",
		r.ChannelID, count, r.LookbackHours, levels, statuses,
	)
}

// Notifier posts composed reports through a workspace-scoped chat client.
type Notifier struct {
	logger log.Logger
}

// New creates a Notifier.
func New(logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{logger: logger}
}

// Notify composes r and sends it to r.ChannelID.
func (n *Notifier) Notify(ctx context.Context, client chat.Client, r Report) error {
	text := Compose(r)
	if err := client.SendMessage(ctx, r.ChannelID, text); err != nil {
		return fmt.Errorf("send notification to %s: %w", r.ChannelID, err)
	}
	n.logger.Info(ctx, "notification sent",
		"channel_id", r.ChannelID,
		"matches", r.Count,
	)
	return nil
}
