package triage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/triagebot/internal/chat"
	"github.com/linnemanlabs/triagebot/internal/history"
	"github.com/linnemanlabs/triagebot/internal/notify"
	"github.com/linnemanlabs/triagebot/internal/taxonomy"
	"github.com/linnemanlabs/triagebot/internal/workspace"
)

const tracerName = "github.com/linnemanlabs/triagebot/internal/triage"

// channelListLimit mirrors the page size the bot asks for when listing its channels.
const channelListLimit = 100

// ErrJobInFlight is returned by RunJob when a tick of the same job is still running.
var ErrJobInFlight = errors.New("job already in flight")

// errNoCredential marks a listed workspace that has no stored bot credential.
var errNoCredential = errors.New("no credential stored for workspace")

// DispatchHooks are optional callbacks fired during a job tick.
type DispatchHooks struct {
	// OnWorkspace fires after each workspace with outcome "ok" or "error".
	OnWorkspace func(job, outcome string)
	// OnChannel fires after each channel's notification attempt.
	OnChannel func(job string, matches int, complete bool)
	// OnComplete fires once per tick, including ticks skipped as in flight.
	OnComplete func(job, status string, duration float64)
}

// Dispatcher runs job ticks: every workspace, every channel the bot is in,
// Fetch → Enrich → Filter → notify.
type Dispatcher struct {
	store     workspace.Store
	newClient chat.ClientFactory
	fetcher   *history.Fetcher
	enricher  *Enricher
	tax       *taxonomy.Config
	notifier  *notify.Notifier
	logger    log.Logger
	hooks     DispatchHooks
	now       func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHooks installs metric callbacks.
func WithHooks(h DispatchHooks) DispatcherOption {
	return func(d *Dispatcher) { d.hooks = h }
}

// WithClock overrides time.Now for lookback windows.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a Dispatcher. store, newClient and tax are required.
func NewDispatcher(store workspace.Store, newClient chat.ClientFactory, tax *taxonomy.Config, logger log.Logger, opts ...DispatcherOption) *Dispatcher {
	if store == nil {
		panic(xerrors.New("workspace store is required"))
	}
	if newClient == nil {
		panic(xerrors.New("chat client factory is required"))
	}
	if tax == nil {
		panic(xerrors.New("taxonomy is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	d := &Dispatcher{
		store:     store,
		newClient: newClient,
		fetcher:   history.NewFetcher(logger),
		enricher:  NewEnricher(tax),
		tax:       tax,
		notifier:  notify.New(logger),
		logger:    logger,
		now:       time.Now,
		inFlight:  make(map[string]struct{}),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Dispatcher) acquire(job string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inFlight[job]; busy {
		return false
	}
	d.inFlight[job] = struct{}{}
	return true
}

func (d *Dispatcher) release(job string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, job)
}

// RunJob executes one tick of job. Per-workspace faults are logged and
// counted in the summary; only a failure to enumerate workspaces, or an
// overlapping tick, is returned as an error.
func (d *Dispatcher) RunJob(ctx context.Context, job taxonomy.JobSpec) (*RunSummary, error) {
	begin := time.Now()
	if !d.acquire(job.Name) {
		d.logger.Warn(ctx, "skipping job tick, previous tick still running", "job", job.Name)
		d.complete(job.Name, "skipped", 0)
		return nil, fmt.Errorf("run %s: %w", job.Name, ErrJobInFlight)
	}
	defer d.release(job.Name)

	start := d.now()
	sum := &RunSummary{
		RunID:     ulid.Make().String(),
		Job:       job.Name,
		StartedAt: start,
	}
	L := d.logger.With("job", job.Name, "run_id", sum.RunID)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "triage.run", trace.WithAttributes(
		attribute.String("triagebot.job", job.Name),
		attribute.String("triagebot.run.id", sum.RunID),
		attribute.Int("triagebot.lookback_hours", job.LookbackHours),
	))
	defer span.End()

	L.Info(ctx, "job tick started", "lookback_hours", job.LookbackHours)

	workspaces, err := d.store.List(ctx)
	if err != nil {
		err = fmt.Errorf("list workspaces: %w", err)
		L.Error(ctx, err, "job tick aborted")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.complete(job.Name, "error", time.Since(begin).Seconds())
		return nil, err
	}

	oldest := history.OldestFor(start, job.LookbackHours)
	for _, ws := range workspaces {
		sum.Workspaces++
		if err := d.runWorkspace(ctx, L, job, ws, oldest, sum); err != nil {
			sum.WorkspaceFailures++
			L.Error(ctx, err, "workspace processing failed", "workspace_id", ws.ID)
			d.workspaceDone(job.Name, "error")
			continue
		}
		d.workspaceDone(job.Name, "ok")
	}

	sum.Duration = time.Since(begin)
	span.SetAttributes(
		attribute.Int("triagebot.workspaces", sum.Workspaces),
		attribute.Int("triagebot.workspace_failures", sum.WorkspaceFailures),
		attribute.Int("triagebot.notifications", sum.Notifications),
	)
	L.Info(ctx, "job tick complete",
		"workspaces", sum.Workspaces,
		"workspace_failures", sum.WorkspaceFailures,
		"channels", sum.Channels,
		"notifications", sum.Notifications,
		"matches", sum.Matches,
		"incomplete_fetches", sum.IncompleteFetches,
		"duration", sum.Duration.Seconds(),
	)
	d.complete(job.Name, "complete", sum.Duration.Seconds())
	return sum, nil
}

// runWorkspace processes every channel of one workspace with a client built
// from that workspace's own credential. The client does not outlive the call.
func (d *Dispatcher) runWorkspace(ctx context.Context, L log.Logger, job taxonomy.JobSpec, ws workspace.Workspace, oldest time.Time, sum *RunSummary) (err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "triage.workspace", trace.WithAttributes(
		attribute.String("triagebot.workspace.id", ws.ID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	cred, ok, err := d.store.Credential(ctx, ws.ID)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	if !ok {
		return errNoCredential
	}
	client := d.newClient(cred.BotToken)
	self, err := botID(ctx, client, cred)
	if err != nil {
		return err
	}

	channels, err := client.ListChannels(ctx, chat.ListChannelsParams{
		ExcludeArchived: true,
		Types:           []string{"public_channel"},
		Limit:           channelListLimit,
	})
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}

	L = L.With("workspace_id", ws.ID)
	for _, ch := range channels {
		if ch.IsArchived {
			continue
		}
		sum.Channels++
		if err := d.runChannel(ctx, L, client, job, ch, self, oldest, sum); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) runChannel(ctx context.Context, L log.Logger, client chat.Client, job taxonomy.JobSpec, ch chat.Channel, botID string, oldest time.Time, sum *RunSummary) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "triage.channel", trace.WithAttributes(
		attribute.String("triagebot.channel.id", ch.ID),
	))
	defer span.End()

	res := d.fetcher.FetchHistory(ctx, client, ch.ID, oldest)
	if !res.Complete {
		sum.IncompleteFetches++
		L.Warn(ctx, "channel history incomplete, reporting on partial data",
			"channel_id", ch.ID,
			"pages", res.Pages,
			"messages", len(res.Messages),
			"error", res.Err,
		)
	}

	enriched := d.enricher.Enrich(res.Messages, ch, botID, ModeTriage)
	matched := Filter(enriched, job)

	span.SetAttributes(
		attribute.Int("triagebot.messages", len(res.Messages)),
		attribute.Int("triagebot.matches", len(matched)),
		attribute.Bool("triagebot.history.complete", res.Complete),
	)
	L.Info(ctx, "channel analyzed",
		"channel_id", ch.ID,
		"messages", len(res.Messages),
		"matches", len(matched),
	)

	err := d.notifier.Notify(ctx, client, notify.Report{
		ChannelID:     ch.ID,
		LookbackHours: job.LookbackHours,
		LevelMarkers:  d.tax.LevelMarkers(job.ReportOnLevels),
		StatusMarkers: d.tax.StatusMarkers(job.SuppressOnStatuses),
		Count:         len(matched),
	})
	if d.hooks.OnChannel != nil {
		d.hooks.OnChannel(job.Name, len(matched), res.Complete)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	sum.Notifications++
	sum.Matches += len(matched)
	return nil
}

func (d *Dispatcher) workspaceDone(job, outcome string) {
	if d.hooks.OnWorkspace != nil {
		d.hooks.OnWorkspace(job, outcome)
	}
}

func (d *Dispatcher) complete(job, status string, seconds float64) {
	if d.hooks.OnComplete != nil {
		d.hooks.OnComplete(job, status, seconds)
	}
}
