// Package messenger delivers direct messages to chat users. The production
// implementation speaks the Discord REST API; a noop stands in when no bot
// token is configured.
package messenger

import (
	"context"
	"errors"
)

// ErrRecipientUnreachable marks a recipient that cannot receive DMs: they
// left the server, blocked the bot, or closed their DMs. Dispatch treats
// these as per-recipient failures, never as pipeline faults.
var ErrRecipientUnreachable = errors.New("recipient unreachable")

// Embed is a rich message card. Field names follow the Discord wire format
// so the REST client can marshal it directly.
type Embed struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	URL         string  `json:"url,omitempty"`
	Color       int     `json:"color,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Thumbnail   *Image  `json:"thumbnail,omitempty"`
	Footer      *Footer `json:"footer,omitempty"`
}

// Field is a labelled value inside an embed.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Image references an embed image by URL.
type Image struct {
	URL string `json:"url"`
}

// Footer is the small print at the bottom of an embed.
type Footer struct {
	Text string `json:"text"`
}

// Messenger sends direct messages to individual users.
type Messenger interface {
	SendDirectMessage(ctx context.Context, userID string, embed Embed) error
}

// Noop discards every message. Used when no bot token is configured, which
// keeps the rest of the pipeline testable without chat credentials.
type Noop struct{}

func (Noop) SendDirectMessage(context.Context, string, Embed) error { return nil }
