// Package chat defines the chat-platform shapes the triage pipeline consumes
// and the narrow client interface it reaches the platform through.
package chat

import "context"

// SubTypeBotMessage marks a message posted by an integration rather than a person.
const SubTypeBotMessage = "bot_message"

// Reaction is one emoji reaction on a message.
type Reaction struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Users []string `json:"users,omitempty"`
}

// BotProfile describes the integration that posted a message.
type BotProfile struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	IsWorkflowBot bool   `json:"is_workflow_bot,omitempty"`
}

// Message is a raw channel message as returned by the platform.
type Message struct {
	TS              string      `json:"ts"`
	Type            string      `json:"type,omitempty"`
	SubType         string      `json:"subtype,omitempty"`
	User            string      `json:"user,omitempty"`
	BotID           string      `json:"bot_id,omitempty"`
	Team            string      `json:"team,omitempty"`
	Text            string      `json:"text,omitempty"`
	BotProfile      *BotProfile `json:"bot_profile,omitempty"`
	Reactions       []Reaction  `json:"reactions,omitempty"`
	ReplyCount      int         `json:"reply_count,omitempty"`
	ReplyUsersCount int         `json:"reply_users_count,omitempty"`
}

// Channel is a conversation the bot can read from and post to.
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	IsArchived bool   `json:"is_archived,omitempty"`
}

// HistoryRequest asks for one page of a channel's history.
type HistoryRequest struct {
	ChannelID string
	// Oldest is the inclusive lower bound, in platform timestamp format.
	Oldest string
	Cursor string
}

// HistoryPage is one page of channel history.
type HistoryPage struct {
	Messages   []Message
	HasMore    bool
	NextCursor string
}

// ListChannelsParams narrows the set of channels returned by ListChannels.
type ListChannelsParams struct {
	ExcludeArchived bool
	Types           []string
	Limit           int
}

// Client is the chat platform as seen by the pipeline. A Client is bound to
// exactly one workspace credential for its whole lifetime.
type Client interface {
	FetchHistoryPage(ctx context.Context, req HistoryRequest) (*HistoryPage, error)
	ListChannels(ctx context.Context, params ListChannelsParams) ([]Channel, error)
	SendMessage(ctx context.Context, channelID, text string) error
}

// Identifier is implemented by clients that can look up the bot identity
// behind their token.
type Identifier interface {
	BotID(ctx context.Context) (string, error)
}

// ClientFactory builds a Client bound to a single bot token.
type ClientFactory func(token string) Client
