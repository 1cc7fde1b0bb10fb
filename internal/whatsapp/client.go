package whatsapp

import (
	"context"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/omriShneor/reminder_agent/internal/logger"
)

// messageSender is the part of whatsmeow.Client used for replies
type messageSender interface {
	SendMessage(ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error)
}

type Client struct {
	WAClient  *whatsmeow.Client
	handler   *Handler
	container *sqlstore.Container
	sender    messageSender
	log       zerolog.Logger

	mu     sync.RWMutex
	lastQR string
}

// Status is the pairing state shown by the API
type Status struct {
	LoggedIn  bool   `json:"logged_in"`
	Connected bool   `json:"connected"`
	QRDataURL string `json:"qr_data_url,omitempty"`
}

func NewClient(handler *Handler, dbPath string) (*Client, error) {
	log := logger.For("whatsapp")
	dbLog := waLog.Zerolog(log.With().Str("module", "database").Logger().Level(zerolog.WarnLevel))
	clientLog := waLog.Zerolog(log.With().Str("module", "client").Logger().Level(zerolog.InfoLevel))

	container, err := sqlstore.New(context.Background(), "sqlite3", "file:"+dbPath+"?_foreign_keys=on", dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get device store: %w", err)
	}

	waClient := whatsmeow.NewClient(deviceStore, clientLog)

	c := &Client{
		WAClient:  waClient,
		handler:   handler,
		container: container,
		sender:    waClient,
		log:       log,
	}

	if handler != nil {
		waClient.AddEventHandler(handler.HandleEvent)
	}

	return c, nil
}

// Connect connects with the stored device or starts QR pairing. Each QR code
// is written to qrPath and kept for Status until pairing finishes.
func (c *Client) Connect(ctx context.Context, qrPath string) error {
	if c.IsLoggedIn() {
		if err := c.WAClient.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		c.log.Info().Msg("WhatsApp connected")
		return nil
	}

	qrChan, err := c.WAClient.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get QR channel: %w", err)
	}

	// Connect triggers QR generation
	if err := c.WAClient.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	go func() {
		for evt := range qrChan {
			switch evt.Event {
			case "code":
				c.setQR(evt.Code)
				if err := WriteQR(evt.Code, qrPath); err != nil {
					c.log.Error().Err(err).Msg("Failed to write QR code")
					continue
				}
				c.log.Info().Str("path", qrPath).Msg("Scan the QR code to pair WhatsApp")
			case "success":
				c.setQR("")
				c.log.Info().Msg("WhatsApp paired successfully")
				return
			case "timeout":
				c.setQR("")
				c.log.Warn().Msg("WhatsApp QR code expired, restart to try again")
				return
			}
		}
	}()

	return nil
}

func (c *Client) setQR(code string) {
	c.mu.Lock()
	c.lastQR = code
	c.mu.Unlock()
}

// Status reports pairing and connection state
func (c *Client) Status() Status {
	c.mu.RLock()
	code := c.lastQR
	c.mu.RUnlock()

	status := Status{
		LoggedIn:  c.IsLoggedIn(),
		Connected: c.WAClient.IsConnected(),
	}
	if code != "" {
		if dataURL, err := GenerateQRDataURL(code); err == nil {
			status.QRDataURL = dataURL
		}
	}
	return status
}

func (c *Client) Disconnect() {
	c.WAClient.Disconnect()
}

func (c *Client) IsLoggedIn() bool {
	return c.WAClient.Store.ID != nil
}

// Send replies to a chat JID
func (c *Client) Send(ctx context.Context, recipient, text string) error {
	jid, err := types.ParseJID(recipient)
	if err != nil {
		return fmt.Errorf("invalid whatsapp jid %q: %w", recipient, err)
	}

	if _, err := c.sender.SendMessage(ctx, jid, &waE2E.Message{Conversation: proto.String(text)}); err != nil {
		return fmt.Errorf("failed to send whatsapp message: %w", err)
	}
	return nil
}

// Handler returns the message handler
func (c *Client) Handler() *Handler {
	return c.handler
}
