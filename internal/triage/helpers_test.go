package triage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/linnemanlabs/triagebot/internal/chat"
	"github.com/linnemanlabs/triagebot/internal/taxonomy"
	"github.com/linnemanlabs/triagebot/internal/workspace"
	"github.com/linnemanlabs/triagebot/internal/workspace/memstore"
)

const testTaxonomy = `
levels:
  - tag: low
    marker: "🟢"
  - tag: high
    marker: "🔴"
statuses:
  - tag: resolved
    marker: "✅"
  - tag: seen
    marker: ":eyes:"
scheduled_jobs:
  - name: daily
    expression: "0 9 * * *"
    hours_to_look_back: 24
    report_on_levels: [high]
    report_on_does_not_have_status: [resolved]
`

func testTax(t *testing.T) *taxonomy.Config {
	t.Helper()
	tax, err := taxonomy.Parse([]byte(testTaxonomy))
	if err != nil {
		t.Fatalf("taxonomy.Parse: %v", err)
	}
	return tax
}

func dailyJob(t *testing.T, tax *taxonomy.Config) taxonomy.JobSpec {
	t.Helper()
	jobs := tax.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(jobs))
	}
	return jobs[0]
}

// fakeClient is a chat.Client bound to one token.
type fakeClient struct {
	token string

	mu       sync.Mutex
	channels []chat.Channel
	history  map[string][]chat.Message
	listErr  error
	fetchErr error
	sendErr  error
	sent     []sentMessage
	block    chan struct{}
	// identity is what auth.test reports; empty means the lookup fails.
	identity string
	lookups  int
}

type sentMessage struct {
	token   string
	channel string
	text    string
}

func (c *fakeClient) FetchHistoryPage(ctx context.Context, req chat.HistoryRequest) (*chat.HistoryPage, error) {
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	return &chat.HistoryPage{Messages: c.history[req.ChannelID]}, nil
}

func (c *fakeClient) ListChannels(context.Context, chat.ListChannelsParams) ([]chat.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.channels, nil
}

func (c *fakeClient) SendMessage(_ context.Context, channelID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, sentMessage{token: c.token, channel: channelID, text: text})
	return nil
}

func (c *fakeClient) BotID(context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	if c.identity == "" {
		return "", errors.New("not_authed")
	}
	return c.identity, nil
}

func (c *fakeClient) messages() []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentMessage(nil), c.sent...)
}

// fakePlatform hands out the preconfigured client for each token and
// records the order tokens were requested in.
type fakePlatform struct {
	mu      sync.Mutex
	clients map[string]*fakeClient
	tokens  []string
}

func newPlatform(clients ...*fakeClient) *fakePlatform {
	p := &fakePlatform{clients: make(map[string]*fakeClient)}
	for _, c := range clients {
		p.clients[c.token] = c
	}
	return p
}

func (p *fakePlatform) factory(token string) chat.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens = append(p.tokens, token)
	if c, ok := p.clients[token]; ok {
		return c
	}
	return &fakeClient{token: token, listErr: errors.New("invalid_auth")}
}

func (p *fakePlatform) requested() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.tokens...)
}

func seedStore(t *testing.T, creds ...workspace.Credential) *memstore.Store {
	t.Helper()
	s := memstore.New()
	for i := range creds {
		c := creds[i]
		if err := s.Put(context.Background(), &workspace.Workspace{ID: c.WorkspaceID}, &c); err != nil {
			t.Fatalf("seed %s: %v", c.WorkspaceID, err)
		}
	}
	return s
}

type failingStore struct {
	workspace.Store
	err error
}

func (f failingStore) List(context.Context) ([]workspace.Workspace, error) {
	return nil, f.err
}
