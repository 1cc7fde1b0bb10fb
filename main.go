package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/omriShneor/reminder_agent/internal/canister"
	"github.com/omriShneor/reminder_agent/internal/config"
	"github.com/omriShneor/reminder_agent/internal/conversation"
	"github.com/omriShneor/reminder_agent/internal/database"
	"github.com/omriShneor/reminder_agent/internal/gcal"
	"github.com/omriShneor/reminder_agent/internal/logger"
	"github.com/omriShneor/reminder_agent/internal/notify"
	"github.com/omriShneor/reminder_agent/internal/processor"
	"github.com/omriShneor/reminder_agent/internal/scheduler"
	"github.com/omriShneor/reminder_agent/internal/server"
	"github.com/omriShneor/reminder_agent/internal/source"
	"github.com/omriShneor/reminder_agent/internal/telegram"
	"github.com/omriShneor/reminder_agent/internal/timeutil"
	"github.com/omriShneor/reminder_agent/internal/whatsapp"
)

func main() {
	cfg := config.LoadFromEnv()
	logger.Init(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	// Phase 1: Core infrastructure
	db, err := database.New(cfg.DBPath)
	if err != nil {
		fatal("creating database", err)
	}
	defer db.Close()

	loc, fallback := timeutil.ResolveLocation(cfg.Timezone)
	if fallback && cfg.Timezone != "" {
		log.Warn().Str("timezone", cfg.Timezone).Msg("Unknown timezone, using local time")
	}

	gcalClient := initGCal(cfg)
	creator, err := initReminderBackend(cfg, db, gcalClient)
	if err != nil {
		fatal("configuring reminder backend", err)
	}

	// Phase 2: Conversation
	phrases := conversation.PhrasebookFor(cfg.ReplyLocale)
	store := conversation.NewStore(conversation.WithEviction(conversation.Policies{
		conversation.LRU{MaxSessions: cfg.MaxSessions},
		conversation.IdleTimeout{TTL: cfg.SessionIdleTTL},
	}))
	engine := conversation.NewEngine(store, creator,
		conversation.WithPhrasebook(phrases),
		conversation.WithClock(timeutil.In(loc)),
		conversation.WithLocation(loc),
		conversation.WithNotifier(initNotifyService(cfg, phrases)),
		conversation.WithMaxConsecutiveFaults(cfg.MaxTurnFailures),
	)

	// Phase 3: Transports
	proc := processor.New(engine, processor.Config{WorkerCount: cfg.WorkerCount, TurnTimeout: cfg.TurnTimeout})

	var sched *scheduler.Scheduler
	if cfg.ReminderBackend == config.BackendSQLite {
		sched, err = scheduler.New(db, store, phrases, scheduler.Config{
			DueSpec:   cfg.DueCheckSpec,
			SweepSpec: cfg.SessionSweep,
			BatchSize: cfg.DueBatchSize,
		})
	} else {
		// reminders live elsewhere, only sessions need sweeping here
		sched, err = scheduler.New(nil, store, phrases, scheduler.Config{SweepSpec: cfg.SessionSweep})
	}
	if err != nil {
		fatal("configuring scheduler", err)
	}

	var inputs []<-chan source.Message

	tgClient := initTelegram(cfg)
	if tgClient != nil {
		proc.RegisterSender(source.SourceTypeTelegram, tgClient)
		sched.RegisterSender(source.SourceTypeTelegram, tgClient)
		inputs = append(inputs, tgClient.Handler().MessageChan())
	}

	waClient := initWhatsApp(cfg)
	if waClient != nil {
		proc.RegisterSender(source.SourceTypeWhatsApp, waClient)
		sched.RegisterSender(source.SourceTypeWhatsApp, waClient)
		inputs = append(inputs, waClient.Handler().MessageChan())
	}

	if err := proc.Start(inputs...); err != nil {
		fatal("starting message processor", err)
	}
	sched.Start()

	// Phase 4: HTTP API
	srv := server.New(server.ServerConfig{
		DB:         db,
		Chat:       engine,
		Sessions:   store,
		WAClient:   waClient,
		TGClient:   tgClient,
		GCalClient: gcalClient,
		Backend:    cfg.ReminderBackend,
		Port:       cfg.HTTPPort,
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	waitForShutdown(proc, sched, srv, waClient, tgClient)
}

func initReminderBackend(cfg *config.Config, db *database.DB, gcalClient *gcal.Client) (conversation.ReminderCreator, error) {
	switch cfg.ReminderBackend {
	case config.BackendSQLite:
		return conversation.Instrument(config.BackendSQLite, db), nil
	case config.BackendCanister:
		if cfg.CanisterID == "" {
			return nil, errors.New("ALFRED_CANISTER_ID is required for the canister backend")
		}
		log.Info().Str("url", cfg.CanisterURL).Str("canister", cfg.CanisterID).Msg("Saving reminders to canister")
		return conversation.Instrument(config.BackendCanister, canister.NewClient(cfg.CanisterURL, cfg.CanisterID)), nil
	case config.BackendGCal:
		if gcalClient == nil {
			return nil, errors.New("Google Calendar credentials are required for the gcal backend")
		}
		if !gcalClient.IsAuthenticated() {
			log.Warn().Msg("Google Calendar not authorized yet, POST /api/gcal/connect to authorize")
		}
		return conversation.Instrument(config.BackendGCal, gcalClient), nil
	default:
		return nil, errors.New("unknown reminder backend " + cfg.ReminderBackend)
	}
}

func initGCal(cfg *config.Config) *gcal.Client {
	client, err := gcal.NewClient(cfg.GoogleCredentialsFile, cfg.GoogleTokenFile, cfg.GCalCalendarID)
	if err != nil {
		log.Info().Err(err).Msg("Google Calendar not configured")
		return nil
	}
	return client
}

func initNotifyService(cfg *config.Config, phrases conversation.Phrasebook) conversation.SavedNotifier {
	var emailNotifier notify.Notifier
	if n := notify.NewResendNotifier(cfg.ResendAPIKey, cfg.EmailFrom); n != nil {
		emailNotifier = n
	}

	service := notify.NewService(emailNotifier, cfg.NotifyEmail, phrases)
	if !service.IsEmailAvailable() {
		log.Info().Msg("Email confirmations disabled (RESEND_API_KEY and ALFRED_NOTIFY_EMAIL required)")
		return nil
	}
	log.Info().Msg("Email confirmations configured (Resend)")
	return service
}

func initTelegram(cfg *config.Config) *telegram.Client {
	if !cfg.TelegramEnabled() {
		log.Info().Msg("Telegram: Not configured (ALFRED_TELEGRAM_API_ID, ALFRED_TELEGRAM_API_HASH and ALFRED_TELEGRAM_BOT_TOKEN required)")
		return nil
	}

	tgClient, err := telegram.NewClient(telegram.ClientConfig{
		APIID:       cfg.TelegramAPIID,
		APIHash:     cfg.TelegramAPIHash,
		BotToken:    cfg.TelegramBotToken,
		SessionPath: cfg.TelegramSessionPath,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create Telegram client")
		return nil
	}

	if err := tgClient.Connect(); err != nil {
		log.Warn().Err(err).Msg("Failed to connect Telegram")
	}
	tgClient.StartUpdateLoop()

	return tgClient
}

func initWhatsApp(cfg *config.Config) *whatsapp.Client {
	if !cfg.WhatsAppEnabled {
		return nil
	}

	waClient, err := whatsapp.NewClient(whatsapp.NewHandler(), cfg.WhatsAppDBPath)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create WhatsApp client")
		return nil
	}

	if err := waClient.Connect(context.Background(), cfg.WhatsAppQRPath); err != nil {
		log.Warn().Err(err).Msg("Failed to connect WhatsApp")
	}
	return waClient
}

func fatal(context string, err error) {
	log.Fatal().Err(err).Msgf("Error %s", context)
}

func waitForShutdown(proc *processor.Processor, sched *scheduler.Scheduler, srv *server.Server, waClient *whatsapp.Client, tgClient *telegram.Client) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown")
	}
	sched.Stop()
	proc.Stop()
	if tgClient != nil {
		tgClient.Disconnect()
	}
	if waClient != nil {
		waClient.Disconnect()
	}
}
