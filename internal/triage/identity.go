package triage

import (
	"context"
	"errors"
	"fmt"

	"github.com/linnemanlabs/triagebot/internal/chat"
	"github.com/linnemanlabs/triagebot/internal/workspace"
)

// ErrNoBotID is returned when a workspace's bot id is neither stored nor
// resolvable. The self-filter depends on it.
var ErrNoBotID = errors.New("bot id unknown for workspace")

// botID returns the stored bot id, or asks the platform when none is stored.
func botID(ctx context.Context, client chat.Client, cred *workspace.Credential) (string, error) {
	if cred.BotID != "" {
		return cred.BotID, nil
	}
	id, ok := client.(chat.Identifier)
	if !ok {
		return "", ErrNoBotID
	}
	resolved, err := id.BotID(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoBotID, err)
	}
	if resolved == "" {
		return "", ErrNoBotID
	}
	return resolved, nil
}
