package statsapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/triagebot/internal/workspace"
)

type putWorkspaceRequest struct {
	Name      string `json:"name"`
	BotToken  string `json:"bot_token"`
	BotID     string `json:"bot_id"`
	BotUserID string `json:"bot_user_id"`
}

func (a *API) handlePutWorkspace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workspaceID")

	var req putWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.BotToken == "" {
		writeError(w, http.StatusBadRequest, "bot_token is required")
		return
	}
	if req.BotID == "" {
		writeError(w, http.StatusBadRequest, "bot_id is required")
		return
	}

	ws := &workspace.Workspace{ID: id, Name: req.Name, InstalledAt: time.Now().UTC()}
	cred := &workspace.Credential{
		WorkspaceID: id,
		BotToken:    req.BotToken,
		BotID:       req.BotID,
		BotUserID:   req.BotUserID,
	}
	if err := a.store.Put(r.Context(), ws, cred); err != nil {
		a.logger.Error(r.Context(), err, "failed to store workspace", "workspace_id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.logger.Info(r.Context(), "workspace registered", "workspace_id", id, "bot_id", req.BotID)
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (a *API) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workspaceID")

	ok, err := a.store.Delete(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to delete workspace", "workspace_id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	a.logger.Info(r.Context(), "workspace removed", "workspace_id", id)
	w.WriteHeader(http.StatusNoContent)
}
