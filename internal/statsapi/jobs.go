package statsapi

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/triagebot/internal/taxonomy"
)

type jobView struct {
	Name               string            `json:"name"`
	Expression         string            `json:"expression"`
	LookbackHours      int               `json:"hours_to_look_back"`
	ReportOnLevels     []taxonomy.Level  `json:"report_on_levels"`
	SuppressOnStatuses []taxonomy.Status `json:"report_on_does_not_have_status"`
	Next               *time.Time        `json:"next_run,omitempty"`
}

func (a *API) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	entries := a.jobs.Entries()
	out := make([]jobView, 0, len(entries))
	for _, e := range entries {
		v := jobView{
			Name:               e.Job.Name,
			Expression:         e.Job.Expression,
			LookbackHours:      e.Job.LookbackHours,
			ReportOnLevels:     e.Job.ReportOnLevels,
			SuppressOnStatuses: e.Job.SuppressOnStatuses,
		}
		if !e.Next.IsZero() {
			next := e.Next
			v.Next = &next
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

func (a *API) handleTrigger(w http.ResponseWriter, r *http.Request) {
	n := a.jobs.Trigger(r.Context())

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.Int("triagebot.jobs.triggered", n))

	if a.onTrigger != nil {
		a.onTrigger(n)
	}
	a.logger.Info(r.Context(), "scheduled jobs triggered manually", "jobs", n)
	writeJSON(w, http.StatusAccepted, map[string]int{"triggered": n})
}
