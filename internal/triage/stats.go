package triage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/triagebot/internal/chat"
	"github.com/linnemanlabs/triagebot/internal/history"
	"github.com/linnemanlabs/triagebot/internal/taxonomy"
	"github.com/linnemanlabs/triagebot/internal/workspace"
)

// ErrUnknownWorkspace is returned when no credential is stored for a workspace.
var ErrUnknownWorkspace = errors.New("unknown workspace")

// ChannelStats is the enriched history of one channel over a lookback window.
type ChannelStats struct {
	WorkspaceID   string
	Channel       chat.Channel
	LookbackHours int
	Mode          Mode
	Messages      []EnrichedMessage
	// Complete is false when the history fetch stopped on a fault.
	Complete bool
}

// Stats runs Fetch and Enrich on demand, without filtering or notifying.
type Stats struct {
	store     workspace.Store
	newClient chat.ClientFactory
	fetcher   *history.Fetcher
	enricher  *Enricher
	tax       *taxonomy.Config
	logger    log.Logger
	now       func() time.Time
}

// NewStats creates a Stats service.
func NewStats(store workspace.Store, newClient chat.ClientFactory, tax *taxonomy.Config, logger log.Logger) *Stats {
	if store == nil || newClient == nil || tax == nil {
		panic(xerrors.New("stats requires a store, client factory and taxonomy"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Stats{
		store:     store,
		newClient: newClient,
		fetcher:   history.NewFetcher(logger),
		enricher:  NewEnricher(tax),
		tax:       tax,
		logger:    logger,
		now:       time.Now,
	}
}

// Taxonomy returns the taxonomy the messages are enriched against.
func (s *Stats) Taxonomy() *taxonomy.Config {
	return s.tax
}

// ChannelStats fetches and enriches the past hours of channelID in workspaceID.
func (s *Stats) ChannelStats(ctx context.Context, workspaceID, channelID string, hours int, mode Mode) (*ChannelStats, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "triage.channel_stats", trace.WithAttributes(
		attribute.String("triagebot.workspace.id", workspaceID),
		attribute.String("triagebot.channel.id", channelID),
		attribute.String("triagebot.stats.mode", string(mode)),
	))
	defer span.End()

	cred, ok, err := s.store.Credential(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if !ok {
		return nil, ErrUnknownWorkspace
	}

	client := s.newClient(cred.BotToken)
	self, err := botID(ctx, client, cred)
	if err != nil {
		return nil, err
	}
	ch := chat.Channel{ID: channelID}

	res := s.fetcher.FetchHistory(ctx, client, channelID, history.OldestFor(s.now(), hours))
	if !res.Complete {
		s.logger.Warn(ctx, "channel stats built from partial history",
			"workspace_id", workspaceID,
			"channel_id", channelID,
			"error", res.Err,
		)
	}

	msgs := s.enricher.Enrich(res.Messages, ch, self, mode)
	span.SetAttributes(
		attribute.Int("triagebot.messages", len(msgs)),
		attribute.Bool("triagebot.history.complete", res.Complete),
	)
	return &ChannelStats{
		WorkspaceID:   workspaceID,
		Channel:       ch,
		LookbackHours: hours,
		Mode:          mode,
		Messages:      msgs,
		Complete:      res.Complete,
	}, nil
}
