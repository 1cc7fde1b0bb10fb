package whatsapp

import (
	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/omriShneor/reminder_agent/internal/logger"
	"github.com/omriShneor/reminder_agent/internal/source"
)

// Handler forwards direct text messages to the assistant
type Handler struct {
	messageChan chan source.Message
	log         zerolog.Logger
}

func NewHandler() *Handler {
	return &Handler{
		messageChan: make(chan source.Message, 100),
		log:         logger.For("whatsapp"),
	}
}

func (h *Handler) MessageChan() <-chan source.Message {
	return h.messageChan
}

func (h *Handler) HandleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		h.handleMessage(v)
	}
}

func (h *Handler) handleMessage(msg *events.Message) {
	// Only direct messages from others
	if msg.Info.IsGroup || msg.Info.IsFromMe {
		return
	}

	text := extractText(msg)
	if text == "" {
		return
	}

	chat := msg.Info.Chat.ToNonAD()
	senderName := msg.Info.PushName
	if senderName == "" {
		senderName = msg.Info.Sender.User
	}

	h.log.Debug().Str("chat", chat.String()).Str("text", text).Msg("Direct message")

	select {
	case h.messageChan <- source.Message{
		SourceType: source.SourceTypeWhatsApp,
		Identifier: chat.String(),
		SenderName: senderName,
		Text:       text,
		Timestamp:  msg.Info.Timestamp,
	}:
	default:
		h.log.Warn().Str("chat", chat.String()).Msg("Message channel full, dropping message")
	}
}

// extractText returns the typed text of a message. Media captions are not
// reminder requests and are skipped.
func extractText(msg *events.Message) string {
	m := msg.Message

	if m.GetConversation() != "" {
		return m.GetConversation()
	}

	if ext := m.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}

	return ""
}
