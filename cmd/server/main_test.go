package main

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"github.com/linnemanlabs/go-core/log"

	tc "github.com/linnemanlabs/triagebot/internal/cfg"
	"github.com/linnemanlabs/triagebot/internal/taxonomy"
	"github.com/linnemanlabs/triagebot/internal/triage"
	"github.com/linnemanlabs/triagebot/internal/workspace/memstore"
)

func TestNotifySystemd_NoSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	err := notifySystemd()
	if err == nil {
		t.Fatal("expected error when NOTIFY_SOCKET is empty")
	}
	if !strings.Contains(err.Error(), "NOTIFY_SOCKET not set") {
		t.Errorf("error = %q, want substring %q", err, "NOTIFY_SOCKET not set")
	}
}

func TestNotifySystemd_InvalidPath(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", filepath.Join(t.TempDir(), "nonexistent.sock"))

	err := notifySystemd()
	if err == nil {
		t.Fatal("expected error for nonexistent socket")
	}
	if !strings.Contains(err.Error(), "dial failed") {
		t.Errorf("error = %q, want substring %q", err, "dial failed")
	}
}

func TestNotifySystemd_Success(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "notify.sock")

	// Create a real unixgram listener.
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(context.Background(), "unixgram", sockPath)
	if err != nil {
		t.Fatalf("listen unixgram: %v", err)
	}
	defer func() { _ = conn.Close() }()

	t.Setenv("NOTIFY_SOCKET", sockPath)

	if err := notifySystemd(); err != nil {
		t.Fatalf("notifySystemd() = %v, want nil", err)
	}

	buf := make([]byte, 256)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read from socket: %v", err)
	}

	got := string(buf[:n])
	if got != "READY=1" {
		t.Errorf("payload = %q, want %q", got, "READY=1")
	}
}

func TestNewWorkspaceStore_Memory(t *testing.T) {
	store, closeFn, err := newWorkspaceStore(context.Background(), log.Nop(), "")
	if err != nil {
		t.Fatalf("newWorkspaceStore: %v", err)
	}
	defer closeFn()
	if _, ok := store.(*memstore.Store); !ok {
		t.Errorf("store = %T, want *memstore.Store", store)
	}
}

func TestBootstrapWorkspace(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	if err := bootstrapWorkspace(ctx, store, &tc.Config{}); err != nil {
		t.Fatalf("bootstrap without id: %v", err)
	}
	wss, _ := store.List(ctx)
	if len(wss) != 0 {
		t.Fatalf("workspaces = %d, want 0", len(wss))
	}

	c := &tc.Config{BootstrapWorkspaceID: "T1", BootstrapBotToken: "xoxb-1", BootstrapBotID: "B1"}
	if err := bootstrapWorkspace(ctx, store, c); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	cred, ok, err := store.Credential(ctx, "T1")
	if err != nil || !ok {
		t.Fatalf("Credential(T1) = ok %v, err %v", ok, err)
	}
	if cred.BotToken != "xoxb-1" || cred.BotID != "B1" {
		t.Errorf("credential = %+v", cred)
	}
}

type stubRunner struct {
	err error
}

func (s *stubRunner) RunJob(_ context.Context, _ taxonomy.JobSpec) (*triage.RunSummary, error) {
	return &triage.RunSummary{}, s.err
}

func TestRunJobFunc(t *testing.T) {
	job := taxonomy.JobSpec{Name: "daily"}

	if err := runJobFunc(&stubRunner{})(context.Background(), job); err != nil {
		t.Errorf("success: err = %v", err)
	}
	if err := runJobFunc(&stubRunner{err: triage.ErrJobInFlight})(context.Background(), job); err != nil {
		t.Errorf("in-flight tick should be swallowed, got %v", err)
	}
	boom := errors.New("boom")
	if err := runJobFunc(&stubRunner{err: boom})(context.Background(), job); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}
