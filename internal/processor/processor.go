package processor

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/omriShneor/reminder_agent/internal/conversation"
	"github.com/omriShneor/reminder_agent/internal/logger"
	"github.com/omriShneor/reminder_agent/internal/metrics"
	"github.com/omriShneor/reminder_agent/internal/source"
)

const (
	defaultWorkerCount = 2
	defaultTurnTimeout = 30 * time.Second
	workerQueueSize    = 64
)

// Conversation runs one chat turn
type Conversation interface {
	Handle(ctx context.Context, msg conversation.Message) conversation.Result
}

// Config tunes the worker pool
type Config struct {
	WorkerCount int
	TurnTimeout time.Duration
}

// Processor feeds transport messages through the conversation and sends the
// replies back. Messages of one user always land on the same worker, so a
// user's turns run in arrival order.
type Processor struct {
	conversation Conversation
	senders      map[source.SourceType]source.Sender
	workerCount  int
	turnTimeout  time.Duration
	queues       []chan source.Message
	log          zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	feeds  sync.WaitGroup
}

// New creates a new message processor
func New(conv Conversation, cfg Config) *Processor {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaultWorkerCount
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = defaultTurnTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	queues := make([]chan source.Message, cfg.WorkerCount)
	for i := range queues {
		queues[i] = make(chan source.Message, workerQueueSize)
	}

	return &Processor{
		conversation: conv,
		senders:      make(map[source.SourceType]source.Sender),
		workerCount:  cfg.WorkerCount,
		turnTimeout:  cfg.TurnTimeout,
		queues:       queues,
		log:          logger.For("processor"),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// RegisterSender sets where replies for a source type go. Must be called
// before Start.
func (p *Processor) RegisterSender(t source.SourceType, s source.Sender) {
	p.senders[t] = s
}

// Start begins processing messages from the given channels
func (p *Processor) Start(inputs ...<-chan source.Message) error {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.processLoop(p.queues[i])
	}

	for _, in := range inputs {
		p.feeds.Add(1)
		go p.feed(in)
	}

	p.log.Info().Int("workers", p.workerCount).Int("inputs", len(inputs)).Msg("Message processor started")
	return nil
}

// Stop gracefully shuts down the processor
func (p *Processor) Stop() {
	p.log.Info().Msg("Stopping message processor...")
	p.cancel()
	p.feeds.Wait()
	p.wg.Wait()
	p.log.Info().Msg("Message processor stopped")
}

// feed routes messages from one transport to the worker owning each user
func (p *Processor) feed(in <-chan source.Message) {
	defer p.feeds.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case p.queues[p.shard(msg.UserKey())] <- msg:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

func (p *Processor) shard(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.workerCount))
}

// processLoop handles the messages of the users owned by one worker
func (p *Processor) processLoop(queue <-chan source.Message) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case msg := <-queue:
			p.processMessage(msg)
		}
	}
}

// processMessage runs one turn and sends the reply back to the transport
func (p *Processor) processMessage(msg source.Message) {
	metrics.InboundMessages.WithLabelValues(string(msg.SourceType)).Inc()

	ctx, cancel := context.WithTimeout(p.ctx, p.turnTimeout)
	defer cancel()

	userKey := msg.UserKey()
	res := p.conversation.Handle(ctx, conversation.Message{UserID: userKey, Text: msg.Text})

	p.log.Debug().
		Str("user_id", userKey).
		Str("text", truncate(msg.Text, 50)).
		Str("outcome", string(res.Outcome)).
		Str("state", res.State).
		Msg("Processed message")

	sender, ok := p.senders[msg.SourceType]
	if !ok {
		p.log.Warn().Str("source", string(msg.SourceType)).Msg("No sender registered, dropping reply")
		return
	}

	if err := sender.Send(ctx, msg.Identifier, res.Reply.Text); err != nil {
		p.log.Error().Err(err).Str("user_id", userKey).Msg("Failed to send reply")
	}
}

// truncate shortens a string to maxLen runes, adding "..." if truncated
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
