package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/triagebot/internal/workspace"
)

func put(t *testing.T, s *Store, id, token string) {
	t.Helper()
	err := s.Put(context.Background(),
		&workspace.Workspace{ID: id, Name: "ws " + id, InstalledAt: time.Unix(1700000000, 0)},
		&workspace.Credential{BotToken: token, BotID: "B-" + id},
	)
	if err != nil {
		t.Fatalf("Put(%s): %v", id, err)
	}
}

func TestStore_PutAndCredential(t *testing.T) {
	t.Parallel()

	s := New()
	put(t, s, "T1", "xoxb-1")

	cred, ok, err := s.Credential(context.Background(), "T1")
	if err != nil {
		t.Fatalf("Credential: %v", err)
	}
	if !ok {
		t.Fatal("expected credential to be found")
	}
	if cred.BotToken != "xoxb-1" || cred.BotID != "B-T1" {
		t.Errorf("credential = %+v", cred)
	}
	if cred.WorkspaceID != "T1" {
		t.Errorf("WorkspaceID = %q, want T1", cred.WorkspaceID)
	}
}

func TestStore_CredentialMissing(t *testing.T) {
	t.Parallel()

	_, ok, err := New().Credential(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Credential: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing workspace")
	}
}

func TestStore_ListSorted(t *testing.T) {
	t.Parallel()

	s := New()
	for _, id := range []string{"T3", "T1", "T2"} {
		put(t, s, id, "tok-"+id)
	}

	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for i, want := range []string{"T1", "T2", "T3"} {
		if list[i].ID != want {
			t.Errorf("list[%d].ID = %q, want %q", i, list[i].ID, want)
		}
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	s := New()
	put(t, s, "T1", "xoxb-1")

	cred, _, _ := s.Credential(context.Background(), "T1")
	cred.BotToken = "mutated"

	again, _, _ := s.Credential(context.Background(), "T1")
	if again.BotToken != "xoxb-1" {
		t.Errorf("stored token changed to %q via returned copy", again.BotToken)
	}
}

func TestStore_PutReplaces(t *testing.T) {
	t.Parallel()

	s := New()
	put(t, s, "T1", "old")
	put(t, s, "T1", "new")

	cred, _, _ := s.Credential(context.Background(), "T1")
	if cred.BotToken != "new" {
		t.Errorf("BotToken = %q, want new", cred.BotToken)
	}
	list, _ := s.List(context.Background())
	if len(list) != 1 {
		t.Errorf("len(list) = %d, want 1", len(list))
	}
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()

	s := New()
	put(t, s, "T1", "xoxb-1")

	ok, err := s.Delete(context.Background(), "T1")
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v; want true, nil", ok, err)
	}
	ok, err = s.Delete(context.Background(), "T1")
	if err != nil || ok {
		t.Fatalf("second Delete = %v, %v; want false, nil", ok, err)
	}
	if _, found, _ := s.Credential(context.Background(), "T1"); found {
		t.Error("credential still present after delete")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := New()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("T%d", n)
			_ = s.Put(context.Background(), &workspace.Workspace{ID: id}, &workspace.Credential{BotToken: id})
			_, _, _ = s.Credential(context.Background(), id)
			_, _ = s.List(context.Background())
		}(i)
	}
	wg.Wait()

	list, _ := s.List(context.Background())
	if len(list) != 50 {
		t.Errorf("len(list) = %d, want 50", len(list))
	}
}
