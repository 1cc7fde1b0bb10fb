package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()
}

// Reminder persistence backends selectable with ALFRED_REMINDER_BACKEND.
const (
	BackendSQLite   = "sqlite"
	BackendCanister = "canister"
	BackendGCal     = "gcal"
)

type Config struct {
	// Storage
	DBPath          string
	ReminderBackend string

	// HTTP
	HTTPPort int

	// Logging
	LogLevel  string
	LogPretty bool

	// Conversation
	ReplyLocale     string
	Timezone        string
	MaxSessions     int
	SessionIdleTTL  time.Duration
	TurnTimeout     time.Duration
	WorkerCount     int
	SessionSweep    string
	DueCheckSpec    string
	DueBatchSize    int
	MaxTurnFailures int

	// Canister backend
	CanisterURL string
	CanisterID  string

	// Google Calendar backend
	GoogleCredentialsFile string
	GoogleTokenFile       string
	GCalCalendarID        string

	// Telegram transport
	TelegramAPIID       int
	TelegramAPIHash     string
	TelegramBotToken    string
	TelegramSessionPath string

	// WhatsApp transport
	WhatsAppEnabled bool
	WhatsAppDBPath  string
	WhatsAppQRPath  string

	// Email confirmations
	ResendAPIKey string
	EmailFrom    string
	NotifyEmail  string
}

func LoadFromEnv() *Config {
	cfg := &Config{
		DBPath:          getEnvOrDefault("ALFRED_DB_PATH", "./alfred.db"),
		ReminderBackend: getEnvOrDefault("ALFRED_REMINDER_BACKEND", BackendSQLite),

		HTTPPort: getEnvAsIntOrDefault("ALFRED_HTTP_PORT", 8080),

		LogLevel:  getEnvOrDefault("ALFRED_LOG_LEVEL", "info"),
		LogPretty: getEnvAsBoolOrDefault("ALFRED_LOG_PRETTY", false),

		ReplyLocale:     getEnvOrDefault("ALFRED_REPLY_LOCALE", "en"),
		Timezone:        os.Getenv("ALFRED_TIMEZONE"),
		MaxSessions:     getEnvAsIntOrDefault("ALFRED_MAX_SESSIONS", 10000),
		SessionIdleTTL:  getEnvAsDurationOrDefault("ALFRED_SESSION_IDLE_TTL", 24*time.Hour),
		TurnTimeout:     getEnvAsDurationOrDefault("ALFRED_TURN_TIMEOUT", 30*time.Second),
		WorkerCount:     getEnvAsIntOrDefault("ALFRED_WORKER_COUNT", 4),
		SessionSweep:    getEnvOrDefault("ALFRED_SESSION_SWEEP_SPEC", "@every 10m"),
		DueCheckSpec:    getEnvOrDefault("ALFRED_DUE_CHECK_SPEC", "@every 1m"),
		DueBatchSize:    getEnvAsIntOrDefault("ALFRED_DUE_BATCH_SIZE", 100),
		MaxTurnFailures: getEnvAsIntOrDefault("ALFRED_MAX_TURN_FAILURES", 3),

		CanisterURL: getEnvOrDefault("ALFRED_CANISTER_URL", "http://127.0.0.1:4943"),
		CanisterID:  os.Getenv("ALFRED_CANISTER_ID"),

		GoogleCredentialsFile: getEnvOrDefault("GOOGLE_CREDENTIALS_FILE", "./credentials.json"),
		GoogleTokenFile:       getEnvOrDefault("GOOGLE_TOKEN_FILE", "./token.json"),
		GCalCalendarID:        getEnvOrDefault("ALFRED_GCAL_CALENDAR_ID", "primary"),

		TelegramAPIID:       getEnvAsIntOrDefault("ALFRED_TELEGRAM_API_ID", 0),
		TelegramAPIHash:     os.Getenv("ALFRED_TELEGRAM_API_HASH"),
		TelegramBotToken:    os.Getenv("ALFRED_TELEGRAM_BOT_TOKEN"),
		TelegramSessionPath: getEnvOrDefault("ALFRED_TELEGRAM_SESSION_PATH", "./telegram_session.json"),

		WhatsAppEnabled: getEnvAsBoolOrDefault("ALFRED_WHATSAPP_ENABLED", false),
		WhatsAppDBPath:  getEnvOrDefault("ALFRED_WHATSAPP_DB_PATH", "./whatsapp.db"),
		WhatsAppQRPath:  getEnvOrDefault("ALFRED_WHATSAPP_QR_PATH", "./whatsapp_qr.png"),

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		EmailFrom:    getEnvOrDefault("ALFRED_EMAIL_FROM", "Alfred <reminders@resend.dev>"),
		NotifyEmail:  os.Getenv("ALFRED_NOTIFY_EMAIL"),
	}

	return cfg
}

// TelegramEnabled reports whether enough credentials are present to log the bot in.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramAPIID != 0 && c.TelegramAPIHash != "" && c.TelegramBotToken != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
