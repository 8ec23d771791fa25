// Package history pages through a channel's message history.
package history

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/triagebot/internal/chat"
)

// ErrMissingCursor is set on a Result when the platform reported more pages
// but gave no cursor to reach them.
var ErrMissingCursor = errors.New("history has more pages but no next cursor")

// Result is the outcome of a full-history fetch. When Complete is false the
// fetch stopped on Err and Messages holds only what arrived before the fault.
type Result struct {
	Messages []chat.Message
	Complete bool
	Pages    int
	Err      error
}

// Fetcher accumulates every page of a channel's history within a window.
type Fetcher struct {
	logger log.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(logger log.Logger) *Fetcher {
	if logger == nil {
		logger = log.Nop()
	}
	return &Fetcher{logger: logger}
}

// OldestFor returns the start of a lookback window of hours ending at now.
func OldestFor(now time.Time, hours int) time.Time {
	return now.Add(-time.Duration(hours) * time.Hour)
}

// FormatOldest renders t as the whole-second unix timestamp the platform
// accepts as a history lower bound.
func FormatOldest(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

// FetchHistory pages backward through channelID from oldest until the
// platform reports no more pages. Messages keep the platform's order.
// Request failures are logged and end the fetch early; they are reported
// on the Result, never returned as an error.
func (f *Fetcher) FetchHistory(ctx context.Context, client chat.Client, channelID string, oldest time.Time) Result {
	L := f.logger.With("channel", channelID)
	req := chat.HistoryRequest{
		ChannelID: channelID,
		Oldest:    FormatOldest(oldest),
	}

	res := Result{Messages: []chat.Message{}}
	for {
		page, err := client.FetchHistoryPage(ctx, req)
		if err != nil {
			L.Error(ctx, err, "history fetch failed, returning partial history",
				"pages", res.Pages,
				"messages", len(res.Messages),
				"cursor", req.Cursor,
			)
			res.Err = err
			return res
		}
		res.Pages++
		res.Messages = append(res.Messages, page.Messages...)

		if !page.HasMore {
			break
		}
		if page.NextCursor == "" {
			L.Warn(ctx, "history reported more pages without a cursor, returning partial history",
				"pages", res.Pages,
				"messages", len(res.Messages),
			)
			res.Err = ErrMissingCursor
			return res
		}
		req.Cursor = page.NextCursor
	}

	res.Complete = true
	return res
}
