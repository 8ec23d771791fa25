package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/linnemanlabs/go-core/log"

	tc "github.com/linnemanlabs/triagebot/internal/cfg"
	"github.com/linnemanlabs/triagebot/internal/postgres"
	"github.com/linnemanlabs/triagebot/internal/scheduler"
	"github.com/linnemanlabs/triagebot/internal/taxonomy"
	"github.com/linnemanlabs/triagebot/internal/triage"
	"github.com/linnemanlabs/triagebot/internal/workspace"
	"github.com/linnemanlabs/triagebot/internal/workspace/memstore"
	"github.com/linnemanlabs/triagebot/internal/workspace/pgstore"
)

// newWorkspaceStore picks the postgres store when databaseURL is set and the
// in-memory store otherwise. The returned close func is always non-nil.
func newWorkspaceStore(ctx context.Context, L log.Logger, databaseURL string) (workspace.Store, func(), error) {
	if databaseURL == "" {
		L.Info(ctx, "using in-memory workspace store (no database-url configured)")
		return memstore.New(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres pool: %w", err)
	}
	s, err := pgstore.New(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pgstore init: %w", err)
	}
	L.Info(ctx, "using postgres workspace store")
	return s, pool.Close, nil
}

// bootstrapWorkspace registers the workspace named by the bootstrap flags, if any.
func bootstrapWorkspace(ctx context.Context, store workspace.Store, c *tc.Config) error {
	if c.BootstrapWorkspaceID == "" {
		return nil
	}
	return store.Put(ctx,
		&workspace.Workspace{ID: c.BootstrapWorkspaceID, InstalledAt: time.Now().UTC()},
		&workspace.Credential{
			WorkspaceID: c.BootstrapWorkspaceID,
			BotToken:    c.BootstrapBotToken,
			BotID:       c.BootstrapBotID,
		},
	)
}

// jobRunner is the part of the dispatcher the scheduler drives.
type jobRunner interface {
	RunJob(ctx context.Context, job taxonomy.JobSpec) (*triage.RunSummary, error)
}

// runJobFunc adapts the dispatcher to the scheduler. An overlapping tick has
// already been logged by the dispatcher and is not reported again.
func runJobFunc(d jobRunner) scheduler.RunFunc {
	return func(ctx context.Context, job taxonomy.JobSpec) error {
		_, err := d.RunJob(postgres.WithSource(ctx, "scheduler"), job)
		if errors.Is(err, triage.ErrJobInFlight) {
			return nil
		}
		return err
	}
}

func notifySystemd() error {
	// systemd will set NOTIFY_SOCKET to a unix socket path if we were started under systemd with type=notify
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set, skipping systemd notify")
	}
	conn, err := net.Dial("unixgram", addr) //nolint:gosec,noctx // addr is from NOTIFY_SOCKET set by systemd, net has no context dial for unixgram
	if err != nil {
		return fmt.Errorf("systemd notify failed: dial failed: %w", err)
	}
	defer func() { _ = conn.Close() }()
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		return fmt.Errorf("systemd notify failed: write failed: %w", err)
	}
	return nil
}
