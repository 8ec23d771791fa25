// Package pgstore provides a PostgreSQL implementation of workspace.Store.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/triagebot/internal/postgres"
	"github.com/linnemanlabs/triagebot/internal/workspace"
)

var tracer = otel.Tracer("github.com/linnemanlabs/triagebot/internal/workspace/pgstore")

//go:embed schema.sql
var schema string

// Store persists workspaces and bot credentials in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on pool and returns a ready Store. The caller owns
// the pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(postgres.WithOperation(ctx, "pgstore.migrate"), schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	ctx = postgres.WithOperation(ctx, name)
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// List returns all workspaces ordered by ID.
func (s *Store) List(ctx context.Context) ([]workspace.Workspace, error) {
	ctx, span := startSpan(ctx, "pgstore.List", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT id, name, installed_at FROM workspaces ORDER BY id`)
	if err != nil {
		return nil, fail(span, fmt.Errorf("query workspaces: %w", err))
	}
	defer rows.Close()

	var out []workspace.Workspace
	for rows.Next() {
		var ws workspace.Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.InstalledAt); err != nil {
			return nil, fail(span, fmt.Errorf("scan workspace: %w", err))
		}
		out = append(out, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("iterate workspaces: %w", err))
	}
	span.SetAttributes(attribute.Int("triagebot.workspaces", len(out)))
	return out, nil
}

// Credential retrieves the bot credential for a workspace.
func (s *Store) Credential(ctx context.Context, workspaceID string) (*workspace.Credential, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.Credential", "SELECT")
	defer span.End()

	cred := workspace.Credential{WorkspaceID: workspaceID}
	err := s.pool.QueryRow(ctx,
		`SELECT bot_token, bot_id, bot_user_id FROM workspaces WHERE id = $1`,
		workspaceID,
	).Scan(&cred.BotToken, &cred.BotID, &cred.BotUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fail(span, fmt.Errorf("scan credential: %w", err))
	}
	return &cred, true, nil
}

// Put inserts or updates a workspace and its credential.
func (s *Store) Put(ctx context.Context, ws *workspace.Workspace, cred *workspace.Credential) error {
	ctx, span := startSpan(ctx, "pgstore.Put", "UPSERT")
	defer span.End()

	installedAt := ws.InstalledAt
	query := `INSERT INTO workspaces (id, name, bot_token, bot_id, bot_user_id, installed_at)
	VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
	ON CONFLICT (id) DO UPDATE SET
		name        = EXCLUDED.name,
		bot_token   = EXCLUDED.bot_token,
		bot_id      = EXCLUDED.bot_id,
		bot_user_id = EXCLUDED.bot_user_id,
		updated_at  = now()`

	var installed any
	if !installedAt.IsZero() {
		installed = installedAt
	}
	if _, err := s.pool.Exec(ctx, query, ws.ID, ws.Name, cred.BotToken, cred.BotID, cred.BotUserID, installed); err != nil {
		return fail(span, fmt.Errorf("upsert workspace: %w", err))
	}
	return nil
}

// Delete removes a workspace and reports whether it existed.
func (s *Store) Delete(ctx context.Context, workspaceID string) (bool, error) {
	ctx, span := startSpan(ctx, "pgstore.Delete", "DELETE")
	defer span.End()

	tag, err := s.pool.Exec(ctx, `DELETE FROM workspaces WHERE id = $1`, workspaceID)
	if err != nil {
		return false, fail(span, fmt.Errorf("delete workspace: %w", err))
	}
	return tag.RowsAffected() > 0, nil
}
