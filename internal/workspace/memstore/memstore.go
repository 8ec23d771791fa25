// Package memstore provides an in-memory implementation of workspace.Store.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/linnemanlabs/triagebot/internal/workspace"
)

type entry struct {
	ws   workspace.Workspace
	cred workspace.Credential
}

// Store holds workspaces in memory. Suitable for dev/testing.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry // workspace ID -> entry
}

// New initializes an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// List returns copies of all workspaces ordered by ID.
func (s *Store) List(_ context.Context) ([]workspace.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]workspace.Workspace, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.ws)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Credential returns a copy of the workspace's credential.
func (s *Store) Credential(_ context.Context, workspaceID string) (*workspace.Credential, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[workspaceID]
	if !ok {
		return nil, false, nil
	}
	cp := e.cred
	return &cp, true, nil
}

// Put stores copies of the workspace and credential, replacing any existing entry.
func (s *Store) Put(_ context.Context, ws *workspace.Workspace, cred *workspace.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &entry{ws: *ws, cred: *cred}
	e.cred.WorkspaceID = ws.ID
	s.entries[ws.ID] = e
	return nil
}

// Delete removes a workspace. It reports whether the workspace existed.
func (s *Store) Delete(_ context.Context, workspaceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[workspaceID]
	delete(s.entries, workspaceID)
	return ok, nil
}
