// Package statsapi serves the bot's HTTP API: job listing and manual
// trigger, channel CSV export, and workspace credential registration.
package statsapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/triagebot/internal/scheduler"
	"github.com/linnemanlabs/triagebot/internal/taxonomy"
	"github.com/linnemanlabs/triagebot/internal/triage"
	"github.com/linnemanlabs/triagebot/internal/workspace"
)

// JobRunner lists and manually triggers scheduled jobs.
type JobRunner interface {
	Entries() []scheduler.Entry
	Trigger(ctx context.Context) int
}

// StatsService builds enriched channel history on demand.
type StatsService interface {
	ChannelStats(ctx context.Context, workspaceID, channelID string, hours int, mode triage.Mode) (*triage.ChannelStats, error)
	Taxonomy() *taxonomy.Config
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger    log.Logger
	jobs      JobRunner
	stats     StatsService
	store     workspace.Store
	onTrigger func(n int)
}

// Option configures an API.
type Option func(*API)

// WithTriggerHook is called after each manual trigger with the number of jobs started.
func WithTriggerHook(fn func(n int)) Option {
	return func(a *API) { a.onTrigger = fn }
}

// New creates a new API handler.
func New(logger log.Logger, jobs JobRunner, stats StatsService, store workspace.Store, opts ...Option) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if jobs == nil {
		panic(xerrors.New("job runner is required"))
	}
	if stats == nil {
		panic(xerrors.New("stats service is required"))
	}
	if store == nil {
		panic(xerrors.New("workspace store is required"))
	}
	a := &API{
		logger: logger,
		jobs:   jobs,
		stats:  stats,
		store:  store,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/jobs", a.handleListJobs)
		r.Post("/jobs/trigger", a.handleTrigger)
		r.Get("/workspaces/{workspaceID}/channels/{channelID}/export", a.handleExport)
		r.Put("/workspaces/{workspaceID}", a.handlePutWorkspace)
		r.Delete("/workspaces/{workspaceID}", a.handleDeleteWorkspace)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
