package triage

import (
	"slices"

	"github.com/linnemanlabs/triagebot/internal/taxonomy"
)

// Filter keeps the messages that carry at least one of the job's report
// levels and none of its suppressing statuses, in input order.
func Filter(msgs []EnrichedMessage, job taxonomy.JobSpec) []EnrichedMessage {
	out := make([]EnrichedMessage, 0, len(msgs))
	for i := range msgs {
		if reportable(&msgs[i], job) {
			out = append(out, msgs[i])
		}
	}
	return out
}

func reportable(m *EnrichedMessage, job taxonomy.JobSpec) bool {
	hasLevel := slices.ContainsFunc(m.Levels, func(l taxonomy.Level) bool {
		return slices.Contains(job.ReportOnLevels, l)
	})
	if !hasLevel {
		return false
	}
	return !slices.ContainsFunc(m.Statuses, func(s taxonomy.Status) bool {
		return slices.Contains(job.SuppressOnStatuses, s)
	})
}
