// Package slackclient adapts the Slack Web API to chat.Client.
package slackclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/linnemanlabs/go-core/log"
	"github.com/slack-go/slack"

	"github.com/linnemanlabs/triagebot/internal/chat"
)

const historyPageLimit = 200

// Client talks to one Slack workspace with one bot token.
type Client struct {
	api *slack.Client
}

// Option configures a Client.
type Option func(*options)

type options struct {
	apiURL string
	logger log.Logger
}

// WithAPIURL points the client at a different Slack API base URL. The URL
// must end with a slash.
func WithAPIURL(u string) Option {
	return func(o *options) { o.apiURL = u }
}

// WithLogger routes slack-go's debug output through logger.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a client for a single bot token.
func New(token string, opts ...Option) *Client {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	slackOpts := []slack.Option{slack.OptionHTTPClient(historyTap{next: &http.Client{}})}
	if o.apiURL != "" {
		slackOpts = append(slackOpts, slack.OptionAPIURL(o.apiURL))
	}
	if o.logger != nil {
		slackOpts = append(slackOpts, slack.OptionLog(&logAdapter{logger: o.logger.With("component", "slack-api")}))
	}

	return &Client{api: slack.New(token, slackOpts...)}
}

// Factory returns a chat.ClientFactory that builds a fresh Client per token.
func Factory(opts ...Option) chat.ClientFactory {
	return func(token string) chat.Client {
		return New(token, opts...)
	}
}

// FetchHistoryPage implements chat.Client via conversations.history.
func (c *Client) FetchHistoryPage(ctx context.Context, req chat.HistoryRequest) (*chat.HistoryPage, error) {
	wb := &workflowBots{}
	resp, err := c.api.GetConversationHistoryContext(withWorkflowBots(ctx, wb), &slack.GetConversationHistoryParameters{
		ChannelID: req.ChannelID,
		Oldest:    req.Oldest,
		Cursor:    req.Cursor,
		Inclusive: true,
		Limit:     historyPageLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("slack: conversations.history %s: %w", req.ChannelID, err)
	}

	page := &chat.HistoryPage{
		Messages:   make([]chat.Message, 0, len(resp.Messages)),
		HasMore:    resp.HasMore,
		NextCursor: resp.ResponseMetaData.NextCursor,
	}
	for i := range resp.Messages {
		m := convertMessage(&resp.Messages[i])
		if m.BotProfile != nil {
			m.BotProfile.IsWorkflowBot = wb.has(m.TS)
		}
		page.Messages = append(page.Messages, m)
	}
	return page, nil
}

// ListChannels implements chat.Client via users.conversations for the bot
// identity behind the token, following cursors until exhausted.
func (c *Client) ListChannels(ctx context.Context, params chat.ListChannelsParams) ([]chat.Channel, error) {
	var out []chat.Channel
	cursor := ""
	for {
		channels, next, err := c.api.GetConversationsForUserContext(ctx, &slack.GetConversationsForUserParameters{
			Types:           params.Types,
			Limit:           params.Limit,
			ExcludeArchived: params.ExcludeArchived,
			Cursor:          cursor,
		})
		if err != nil {
			return nil, fmt.Errorf("slack: users.conversations: %w", err)
		}
		for i := range channels {
			out = append(out, chat.Channel{
				ID:         channels[i].ID,
				Name:       channels[i].Name,
				IsArchived: channels[i].IsArchived,
			})
		}
		if next == "" {
			return out, nil
		}
		cursor = next
	}
}

// SendMessage implements chat.Client via chat.postMessage.
func (c *Client) SendMessage(ctx context.Context, channelID, text string) error {
	if _, _, err := c.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("slack: chat.postMessage %s: %w", channelID, err)
	}
	return nil
}

// BotID implements chat.Identifier via auth.test.
func (c *Client) BotID(ctx context.Context) (string, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack: auth.test: %w", err)
	}
	if resp.BotID == "" {
		return "", fmt.Errorf("slack: auth.test: no bot id for user %s", resp.UserID)
	}
	return resp.BotID, nil
}

func convertMessage(m *slack.Message) chat.Message {
	out := chat.Message{
		TS:              m.Timestamp,
		Type:            m.Type,
		SubType:         m.SubType,
		User:            m.User,
		BotID:           m.BotID,
		Team:            m.Team,
		Text:            m.Text,
		ReplyCount:      m.ReplyCount,
		ReplyUsersCount: m.ReplyUsersCount,
	}
	if m.BotProfile != nil {
		out.BotProfile = &chat.BotProfile{
			ID:   m.BotProfile.ID,
			Name: m.BotProfile.Name,
		}
	}
	if len(m.Reactions) > 0 {
		out.Reactions = make([]chat.Reaction, 0, len(m.Reactions))
		for _, r := range m.Reactions {
			out.Reactions = append(out.Reactions, chat.Reaction{
				Name:  r.Name,
				Count: r.Count,
				Users: r.Users,
			})
		}
	}
	return out
}

// logAdapter adapts log.Logger to slack-go's Output-style logger.
type logAdapter struct {
	logger log.Logger
}

func (a *logAdapter) Output(_ int, s string) error {
	a.logger.Info(context.Background(), s)
	return nil
}
