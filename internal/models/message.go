package models

import (
	"time"
)

// UserSenderID is the sentinel sender id for messages written by the user.
const UserSenderID = "user"

// MessageOrigin records where a message's content came from. Fallback marks
// the fixed error reply committed when the generation backend was
// unreachable, so the UI can style it without matching on the text itself.
type MessageOrigin string

const (
	OriginUser     MessageOrigin = "user"
	OriginModel    MessageOrigin = "model"
	OriginFallback MessageOrigin = "fallback"
)

// ChatMessage is one entry of a conversation. Messages are immutable once
// created; a conversation is an append-only sequence keyed by character id.
type ChatMessage struct {
	ID        string        `json:"id"`
	SenderID  string        `json:"senderId"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
	IsUser    bool          `json:"isUser"`
	Origin    MessageOrigin `json:"origin"`
}
