package statsapi

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/triagebot/internal/export"
	"github.com/linnemanlabs/triagebot/internal/triage"
)

// DefaultLookbackHours is used when an export request omits hours.
const DefaultLookbackHours = 168

// LookbackOptions are the windows an export may ask for.
var LookbackOptions = []int{12, 24, 72, 168, 720}

func parseHours(s string) (int, error) {
	if s == "" {
		return DefaultLookbackHours, nil
	}
	h, err := strconv.Atoi(s)
	if err != nil || !slices.Contains(LookbackOptions, h) {
		return 0, fmt.Errorf("hours must be one of %v", LookbackOptions)
	}
	return h, nil
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceID")
	channelID := chi.URLParam(r, "channelID")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("triagebot.workspace.id", workspaceID),
		attribute.String("triagebot.channel.id", channelID),
	)

	hours, err := parseHours(r.URL.Query().Get("hours"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, err := triage.ParseMode(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "type must be triage or generic")
		return
	}

	st, err := a.stats.ChannelStats(r.Context(), workspaceID, channelID, hours, mode)
	if errors.Is(err, triage.ErrUnknownWorkspace) {
		writeError(w, http.StatusNotFound, "workspace not found")
		return
	}
	if errors.Is(err, triage.ErrNoBotID) {
		a.logger.Warn(r.Context(), "workspace bot id unknown, refusing export",
			"workspace_id", workspaceID, "error", err)
		writeError(w, http.StatusConflict, "workspace bot id unknown, re-register the workspace with bot_id")
		return
	}
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to build channel stats",
			"workspace_id", workspaceID, "channel_id", channelID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	body := export.ToCSV(st.Messages, mode, a.stats.Taxonomy())
	if body == "" {
		a.logger.Warn(r.Context(), "csv export produced no output",
			"workspace_id", workspaceID, "channel_id", channelID, "messages", len(st.Messages))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	span.SetAttributes(
		attribute.Int("triagebot.messages", len(st.Messages)),
		attribute.Bool("triagebot.history.complete", st.Complete),
	)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s-%s-%dh.csv"`, channelID, mode, hours))
	w.Header().Set("X-History-Complete", strconv.FormatBool(st.Complete))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
