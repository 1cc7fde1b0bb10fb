package source

import (
	"context"
	"strings"
	"time"
)

// SourceType identifies the message source
type SourceType string

const (
	SourceTypeWhatsApp SourceType = "whatsapp"
	SourceTypeTelegram SourceType = "telegram"
	SourceTypeAPI      SourceType = "api"
)

// Message represents a direct message from any chat transport
type Message struct {
	SourceType SourceType
	Identifier string // WhatsApp chat JID / Telegram user ID / API user id
	SenderName string
	Text       string
	Timestamp  time.Time
}

// UserKey is the conversation key of the message's author, unique across transports.
func (m Message) UserKey() string {
	return UserKey(m.SourceType, m.Identifier)
}

// UserKey joins a source type and a transport address into a conversation key.
func UserKey(t SourceType, identifier string) string {
	return string(t) + ":" + identifier
}

// ParseUserKey splits a conversation key back into its source and address.
func ParseUserKey(key string) (SourceType, string, bool) {
	t, identifier, ok := strings.Cut(key, ":")
	if !ok || t == "" || identifier == "" {
		return "", "", false
	}
	return SourceType(t), identifier, true
}

// Sender delivers text back to a chat address on one transport.
type Sender interface {
	Send(ctx context.Context, recipient, text string) error
}
