package domain

import "strconv"

// Update is the subset of a Telegram webhook update the bridge cares about.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is an inbound Telegram message.
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// Chat identifies the Telegram chat a message belongs to.
type Chat struct {
	ID int64 `json:"id"`
}

// Identifier returns the stable string form of the chat ID used as the
// correlation key across both stores. It returns "" when the transport did
// not supply a usable chat identity.
func (c Chat) Identifier() string {
	if c.ID == 0 {
		return ""
	}
	return strconv.FormatInt(c.ID, 10)
}

// LinkButton is an inline URL button attached to an outbound reply.
type LinkButton struct {
	Label string
	URL   string
}

// ReplyOptions carries optional presentation settings for an outbound reply.
type ReplyOptions struct {
	LinkButton *LinkButton
}
