package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"

	"github.com/omriShneor/reminder_agent/internal/logger"
)

// ErrUnknownPeer is returned when replying to a user the bot has not heard from
var ErrUnknownPeer = errors.New("telegram user not seen yet")

// Client manages the Telegram bot connection
type Client struct {
	apiID       int
	apiHash     string
	botToken    string
	sessionPath string
	client      *telegram.Client
	api         *tg.Client
	handler     *Handler
	connected   bool
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	updatesChan chan tg.UpdatesClass
	log         zerolog.Logger
}

// ClientConfig holds configuration for the Telegram client
type ClientConfig struct {
	APIID       int
	APIHash     string
	BotToken    string
	SessionPath string
	Handler     *Handler
}

// NewClient creates a new Telegram client
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIID == 0 || cfg.APIHash == "" {
		return nil, fmt.Errorf("Telegram API ID and API Hash are required")
	}
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("Telegram bot token is required")
	}
	if cfg.Handler == nil {
		cfg.Handler = NewHandler()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		apiID:       cfg.APIID,
		apiHash:     cfg.APIHash,
		botToken:    cfg.BotToken,
		sessionPath: cfg.SessionPath,
		handler:     cfg.Handler,
		ctx:         ctx,
		cancel:      cancel,
		updatesChan: make(chan tg.UpdatesClass, 100),
		log:         logger.For("telegram"),
	}, nil
}

// Handler returns the message handler
func (c *Client) Handler() *Handler {
	return c.handler
}

// Connect starts the client and signs in as the bot
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.client != nil {
		c.mu.Unlock()
		return nil
	}

	client := telegram.NewClient(c.apiID, c.apiHash, telegram.Options{
		SessionStorage: newSessionStorage(c.sessionPath),
		UpdateHandler:  c,
	})
	c.client = client
	c.mu.Unlock()

	ready := make(chan error, 1)
	go func() {
		err := client.Run(c.ctx, func(ctx context.Context) error {
			status, err := client.Auth().Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get auth status: %w", err)
			}

			if !status.Authorized {
				if _, err := client.Auth().Bot(ctx, c.botToken); err != nil {
					return fmt.Errorf("failed to sign in as bot: %w", err)
				}
			}

			c.mu.Lock()
			c.api = client.API()
			c.connected = true
			c.mu.Unlock()
			ready <- nil

			<-ctx.Done()
			return ctx.Err()
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			c.log.Error().Err(err).Msg("Telegram client stopped")
			select {
			case ready <- err:
			default:
			}
		}

		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	select {
	case err := <-ready:
		if err != nil {
			return err
		}
		c.log.Info().Msg("Telegram bot connected")
		return nil
	case <-time.After(15 * time.Second):
		return fmt.Errorf("timeout waiting for Telegram client to connect")
	}
}

// Disconnect closes the Telegram connection
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.connected = false
}

// IsConnected returns whether the bot is signed in
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Handle implements telegram.UpdateHandler
func (c *Client) Handle(ctx context.Context, u tg.UpdatesClass) error {
	select {
	case c.updatesChan <- u:
	default:
		c.log.Warn().Msg("Updates channel full, dropping update")
	}
	return nil
}

// StartUpdateLoop starts processing updates
func (c *Client) StartUpdateLoop() {
	go func() {
		for {
			select {
			case <-c.ctx.Done():
				return
			case update := <-c.updatesChan:
				c.handler.HandleUpdate(update)
			}
		}
	}()
}

// Send replies to a Telegram user by numeric id
func (c *Client) Send(ctx context.Context, recipient, text string) error {
	userID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram user id %q: %w", recipient, err)
	}

	peer, ok := c.handler.Peer(userID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPeer, userID)
	}

	c.mu.RLock()
	api := c.api
	c.mu.RUnlock()
	if api == nil {
		return fmt.Errorf("telegram client not connected")
	}

	if _, err := message.NewSender(api).To(peer).Text(ctx, text); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
