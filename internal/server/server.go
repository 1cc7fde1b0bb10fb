package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/omriShneor/reminder_agent/internal/conversation"
	"github.com/omriShneor/reminder_agent/internal/database"
	"github.com/omriShneor/reminder_agent/internal/gcal"
	"github.com/omriShneor/reminder_agent/internal/logger"
	"github.com/omriShneor/reminder_agent/internal/telegram"
	"github.com/omriShneor/reminder_agent/internal/whatsapp"
)

// Chat runs one conversation turn
type Chat interface {
	Handle(ctx context.Context, msg conversation.Message) conversation.Result
}

// Sessions exposes the conversation session store
type Sessions interface {
	Snapshot(userID string) (conversation.SessionInfo, bool)
	Forget(userID string) bool
	Len() int
}

type Server struct {
	db         *database.DB
	chat       Chat
	sessions   Sessions
	waClient   *whatsapp.Client
	tgClient   *telegram.Client
	gcalClient *gcal.Client
	backend    string
	httpSrv    *http.Server
	port       int
	log        zerolog.Logger
}

// ServerConfig holds the server's collaborators. Transport and calendar
// clients are optional.
type ServerConfig struct {
	DB         *database.DB
	Chat       Chat
	Sessions   Sessions
	WAClient   *whatsapp.Client
	TGClient   *telegram.Client
	GCalClient *gcal.Client
	Backend    string
	Port       int
}

func New(cfg ServerConfig) *Server {
	s := &Server{
		db:         cfg.DB,
		chat:       cfg.Chat,
		sessions:   cfg.Sessions,
		waClient:   cfg.WAClient,
		tgClient:   cfg.TGClient,
		gcalClient: cfg.GCalClient,
		backend:    cfg.Backend,
		port:       cfg.Port,
		log:        logger.For("server"),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.corsMiddleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Health check and metrics
	mux.HandleFunc("GET /health", s.handleHealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Conversation API
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/sessions/{userID}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{userID}", s.handleDeleteSession)

	// Reminders API
	mux.HandleFunc("GET /api/reminders", s.handleListReminders)
	mux.HandleFunc("DELETE /api/reminders/{ref}", s.handleCancelReminder)

	// Google Calendar API
	mux.HandleFunc("GET /api/gcal/status", s.handleGCalStatus)
	mux.HandleFunc("GET /api/gcal/calendars", s.handleGCalListCalendars)
	mux.HandleFunc("POST /api/gcal/connect", s.handleGCalConnect)
	mux.HandleFunc("GET "+gcal.CallbackPath, s.handleOAuthCallback)

	// Transports
	mux.HandleFunc("GET /api/whatsapp/status", s.handleWhatsAppStatus)
	mux.HandleFunc("GET /api/telegram/status", s.handleTelegramStatus)
}

func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the server's HTTP handler for testing purposes
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// corsMiddleware adds CORS headers to allow browser clients
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")

		// Handle preflight requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
