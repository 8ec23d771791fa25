package slackclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
)

// slack-go decodes bot_profile without is_workflow_bot, so conversations.history
// responses are also read here for that one field.

type workflowBotsKey struct{}

// workflowBots collects the timestamps of messages posted by workflow bots.
type workflowBots struct {
	mu sync.Mutex
	ts map[string]bool
}

func withWorkflowBots(ctx context.Context, wb *workflowBots) context.Context {
	return context.WithValue(ctx, workflowBotsKey{}, wb)
}

func (wb *workflowBots) has(ts string) bool {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	return wb.ts[ts]
}

func (wb *workflowBots) record(body []byte) {
	var resp struct {
		Messages []struct {
			TS         string `json:"ts"`
			BotProfile *struct {
				IsWorkflowBot bool `json:"is_workflow_bot"`
			} `json:"bot_profile"`
		} `json:"messages"`
	}
	// a malformed body is reported by slack-go's own decode
	if err := json.Unmarshal(body, &resp); err != nil {
		return
	}
	wb.mu.Lock()
	defer wb.mu.Unlock()
	if wb.ts == nil {
		wb.ts = make(map[string]bool)
	}
	for _, m := range resp.Messages {
		if m.BotProfile != nil && m.BotProfile.IsWorkflowBot {
			wb.ts[m.TS] = true
		}
	}
}

// doer is the HTTP client shape slack-go accepts.
type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// historyTap copies conversations.history bodies into the workflowBots
// attached to the request context.
type historyTap struct {
	next doer
}

func (t historyTap) Do(req *http.Request) (*http.Response, error) {
	resp, err := t.next.Do(req)
	if err != nil || resp == nil || resp.Body == nil {
		return resp, err
	}
	wb, ok := req.Context().Value(workflowBotsKey{}).(*workflowBots)
	if !ok || !strings.HasSuffix(req.URL.Path, "conversations.history") {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	wb.record(body)
	return resp, nil
}
