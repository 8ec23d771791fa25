package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/triagebot/internal/chat"
)

// pagedClient serves history pages in order and records each request.
type pagedClient struct {
	mu       sync.Mutex
	pages    []*chat.HistoryPage
	errAt    int
	err      error
	requests []chat.HistoryRequest
}

func (p *pagedClient) FetchHistoryPage(_ context.Context, req chat.HistoryRequest) (*chat.HistoryPage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := len(p.requests)
	p.requests = append(p.requests, req)
	if p.err != nil && idx == p.errAt {
		return nil, p.err
	}
	if idx >= len(p.pages) {
		return &chat.HistoryPage{}, nil
	}
	return p.pages[idx], nil
}

func (p *pagedClient) ListChannels(context.Context, chat.ListChannelsParams) ([]chat.Channel, error) {
	return nil, nil
}

func (p *pagedClient) SendMessage(context.Context, string, string) error { return nil }

func msgs(ts ...string) []chat.Message {
	out := make([]chat.Message, 0, len(ts))
	for _, s := range ts {
		out = append(out, chat.Message{TS: s})
	}
	return out
}

func timestamps(ms []chat.Message) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.TS)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFetchHistory_ConcatenatesAllPages(t *testing.T) {
	t.Parallel()

	client := &pagedClient{pages: []*chat.HistoryPage{
		{Messages: msgs("5", "4"), HasMore: true, NextCursor: "c1"},
		{Messages: msgs("3", "2"), HasMore: true, NextCursor: "c2"},
		{Messages: msgs("1"), HasMore: false},
		{Messages: msgs("never")},
	}}

	oldest := time.Unix(1700000000, 0)
	res := NewFetcher(log.Nop()).FetchHistory(context.Background(), client, "C1", oldest)

	if !res.Complete {
		t.Error("Complete = false, want true")
	}
	if res.Err != nil {
		t.Errorf("Err = %v, want nil", res.Err)
	}
	if res.Pages != 3 {
		t.Errorf("Pages = %d, want 3", res.Pages)
	}
	if got := timestamps(res.Messages); !equal(got, []string{"5", "4", "3", "2", "1"}) {
		t.Errorf("messages = %v, want [5 4 3 2 1]", got)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.requests) != 3 {
		t.Fatalf("requests = %d, want exactly 3", len(client.requests))
	}
	wantCursors := []string{"", "c1", "c2"}
	for i, req := range client.requests {
		if req.Cursor != wantCursors[i] {
			t.Errorf("request %d cursor = %q, want %q", i, req.Cursor, wantCursors[i])
		}
		if req.Oldest != "1700000000" {
			t.Errorf("request %d oldest = %q, want 1700000000", i, req.Oldest)
		}
		if req.ChannelID != "C1" {
			t.Errorf("request %d channel = %q, want C1", i, req.ChannelID)
		}
	}
}

func TestFetchHistory_EmptyWindow(t *testing.T) {
	t.Parallel()

	client := &pagedClient{pages: []*chat.HistoryPage{{HasMore: false}}}
	res := NewFetcher(nil).FetchHistory(context.Background(), client, "C1", time.Now())

	if !res.Complete {
		t.Error("Complete = false, want true")
	}
	if res.Messages == nil || len(res.Messages) != 0 {
		t.Errorf("Messages = %#v, want empty non-nil slice", res.Messages)
	}
}

func TestFetchHistory_FaultReturnsPartial(t *testing.T) {
	t.Parallel()

	boom := errors.New("ratelimited")
	client := &pagedClient{
		pages: []*chat.HistoryPage{
			{Messages: msgs("3", "2"), HasMore: true, NextCursor: "c1"},
		},
		errAt: 1,
		err:   boom,
	}

	res := NewFetcher(log.Nop()).FetchHistory(context.Background(), client, "C1", time.Now())

	if res.Complete {
		t.Error("Complete = true, want false after fault")
	}
	if !errors.Is(res.Err, boom) {
		t.Errorf("Err = %v, want %v", res.Err, boom)
	}
	if got := timestamps(res.Messages); !equal(got, []string{"3", "2"}) {
		t.Errorf("messages = %v, want partial [3 2]", got)
	}
}

func TestFetchHistory_FaultOnFirstPage(t *testing.T) {
	t.Parallel()

	client := &pagedClient{errAt: 0, err: errors.New("invalid_auth")}
	res := NewFetcher(log.Nop()).FetchHistory(context.Background(), client, "C1", time.Now())

	if res.Complete {
		t.Error("Complete = true, want false")
	}
	if len(res.Messages) != 0 {
		t.Errorf("Messages = %v, want empty", res.Messages)
	}
	if res.Pages != 0 {
		t.Errorf("Pages = %d, want 0", res.Pages)
	}
}

func TestFetchHistory_MissingCursorIsIncomplete(t *testing.T) {
	t.Parallel()

	client := &pagedClient{pages: []*chat.HistoryPage{
		{Messages: msgs("1"), HasMore: true},
		{Messages: msgs("never")},
	}}
	res := NewFetcher(log.Nop()).FetchHistory(context.Background(), client, "C1", time.Now())

	if res.Complete {
		t.Error("Complete = true, want false when more pages are unreachable")
	}
	if !errors.Is(res.Err, ErrMissingCursor) {
		t.Errorf("Err = %v, want ErrMissingCursor", res.Err)
	}
	if res.Pages != 1 {
		t.Errorf("Pages = %d, want 1", res.Pages)
	}
	if got := timestamps(res.Messages); !equal(got, []string{"1"}) {
		t.Errorf("messages = %v, want [1]", got)
	}
}

func TestOldestFor(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got := OldestFor(now, 24)
	want := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("OldestFor = %v, want %v", got, want)
	}
	if s := FormatOldest(got); s != "1772280000" {
		t.Errorf("FormatOldest = %q, want 1772280000", s)
	}
}
