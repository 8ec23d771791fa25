// Package workspace defines installed chat workspaces and the store that
// holds their bot credentials.
package workspace

import (
	"context"
	"time"
)

// Workspace is one installation of the bot.
type Workspace struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	InstalledAt time.Time `json:"installed_at"`
}

// Credential is the bot identity for a workspace. It must not be retained
// past the work it was fetched for.
type Credential struct {
	WorkspaceID string `json:"-"`
	BotToken    string `json:"-"`
	BotID       string `json:"bot_id"`
	BotUserID   string `json:"bot_user_id,omitempty"`
}

// Store is the persistence interface for workspaces and their credentials.
type Store interface {
	List(ctx context.Context) ([]Workspace, error)
	Credential(ctx context.Context, workspaceID string) (*Credential, bool, error)
	Put(ctx context.Context, ws *Workspace, cred *Credential) error
	Delete(ctx context.Context, workspaceID string) (bool, error)
}
