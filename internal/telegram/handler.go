package telegram

import (
	"strconv"
	"sync"
	"time"

	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"

	"github.com/omriShneor/reminder_agent/internal/logger"
	"github.com/omriShneor/reminder_agent/internal/source"
)

// Handler turns incoming direct messages into source messages. Groups and
// channels are ignored.
type Handler struct {
	messageChan chan source.Message
	mu          sync.RWMutex
	users       map[int64]*tg.User // Cache of user info
	log         zerolog.Logger
}

// NewHandler creates a new Telegram message handler
func NewHandler() *Handler {
	return &Handler{
		messageChan: make(chan source.Message, 100),
		users:       make(map[int64]*tg.User),
		log:         logger.For("telegram"),
	}
}

// MessageChan returns the channel for receiving messages
func (h *Handler) MessageChan() <-chan source.Message {
	return h.messageChan
}

// HandleUpdate processes a Telegram update
func (h *Handler) HandleUpdate(update tg.UpdatesClass) {
	switch u := update.(type) {
	case *tg.Updates:
		h.cacheUsers(u.Users)
		for _, upd := range u.Updates {
			h.handleSingleUpdate(upd)
		}
	case *tg.UpdatesCombined:
		h.cacheUsers(u.Users)
		for _, upd := range u.Updates {
			h.handleSingleUpdate(upd)
		}
	case *tg.UpdateShort:
		h.handleSingleUpdate(u.Update)
	case *tg.UpdateShortMessage:
		h.handleShortMessage(u)
	}
}

func (h *Handler) cacheUsers(users []tg.UserClass) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			h.users[user.ID] = user
		}
	}
}

func (h *Handler) user(id int64) (*tg.User, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	user, ok := h.users[id]
	return user, ok
}

// Peer returns the input peer for a user seen in an earlier update
func (h *Handler) Peer(userID int64) (tg.InputPeerClass, bool) {
	user, ok := h.user(userID)
	if !ok {
		return nil, false
	}
	return user.AsInputPeer(), true
}

func (h *Handler) handleSingleUpdate(update tg.UpdateClass) {
	if msg, ok := update.(*tg.UpdateNewMessage); ok {
		h.handleNewMessage(msg.Message)
	}
}

func (h *Handler) handleNewMessage(msg tg.MessageClass) {
	message, ok := msg.(*tg.Message)
	if !ok || message.Out || message.Message == "" {
		return
	}

	peer, ok := message.PeerID.(*tg.PeerUser)
	if !ok {
		return
	}

	h.dispatch(peer.UserID, message.Message, message.Date)
}

func (h *Handler) handleShortMessage(msg *tg.UpdateShortMessage) {
	if msg.Out || msg.Message == "" {
		return
	}
	h.dispatch(msg.UserID, msg.Message, msg.Date)
}

func (h *Handler) dispatch(userID int64, text string, date int) {
	senderName := "User " + strconv.FormatInt(userID, 10)
	if user, ok := h.user(userID); ok {
		senderName = getUserName(user)
	}

	h.log.Debug().Str("sender", senderName).Str("text", truncateText(text, 100)).Msg("Direct message")

	select {
	case h.messageChan <- source.Message{
		SourceType: source.SourceTypeTelegram,
		Identifier: strconv.FormatInt(userID, 10),
		SenderName: senderName,
		Text:       text,
		Timestamp:  time.Unix(int64(date), 0),
	}:
	default:
		h.log.Warn().Int64("user_id", userID).Msg("Message channel full, dropping message")
	}
}

// getUserName returns a display name for a user
func getUserName(user *tg.User) string {
	if user.FirstName != "" {
		if user.LastName != "" {
			return user.FirstName + " " + user.LastName
		}
		return user.FirstName
	}
	if user.Username != "" {
		return "@" + user.Username
	}
	return "User " + strconv.FormatInt(user.ID, 10)
}

// truncateText shortens text for logging
func truncateText(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
