package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseDriver string // Optional: sqlite or postgres (default: sqlite)
	DatabaseFile   string // Optional: path to SQLite database file (default: ./signing.db)
	DatabaseURL    string // Required for postgres: pgx connection string
	GatewayKey     string // Required: credential the edge gateway asserts on protected routes

	MaxRetries   int  // Optional: optimistic-concurrency attempts before a 503 (default: 3)
	EnforceOrder bool // Optional: reject out-of-order signatures (default: false)

	PreviewTTL       time.Duration // Optional: preview grant lifetime (default: 24h)
	PreviewMaxAccess int           // Optional: views per preview grant (default: 3)

	ViewTicketIssuer  string        // Optional: iss claim on view tickets (default: quill-signing)
	ViewTicketTTL     time.Duration // Optional: view ticket lifetime (default: 5m)
	ViewTicketKeyPath string        // Optional: Ed25519 key file; ephemeral when unset
	MasterKeyPath     string        // Optional: at-rest encryption key material file

	SealingServiceURL string        // Optional: unset seals locally with a no-op sealer
	NotifyWebhookURL  string        // Optional: unset logs events instead of posting them
	NotifySecret      string        // Optional: HMAC secret for webhook signatures
	UpstreamTimeout   time.Duration // Optional: per-call timeout for upstream services (default: 10s)
	InlineTimeout     time.Duration // Optional: budget for sealing inside the last signature (default: 5s)

	OutboxWorkers        int           // Optional: concurrent outbox workers (default: 2)
	OutboxPollInterval   time.Duration // Optional: idle poll interval (default: 2s)
	OutboxMaxAttempts    int           // Optional: attempts before a job is dead (default: 8)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	JobRetention         time.Duration // Optional: completed job retention (default: 7 days)
	IdempotencyTTL       time.Duration // Optional: idempotency record lifetime (default: 24h)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		DatabaseDriver: strings.ToLower(getEnvOrDefault("SIGNING_DB_DRIVER", "sqlite")),
		DatabaseFile:   getEnvOrDefault("SIGNING_DATABASE_FILE", "signing.db"),
		DatabaseURL:    os.Getenv("SIGNING_DATABASE_URL"),
		GatewayKey:     os.Getenv("SIGNING_GATEWAY_KEY"),

		MaxRetries:   getEnvIntOrDefault("SIGNING_MAX_RETRIES", 3),
		EnforceOrder: getEnvBoolOrDefault("SIGNING_ENFORCE_ORDER", false),

		PreviewTTL:       getEnvDurationOrDefault("PREVIEW_TTL", 24*time.Hour),
		PreviewMaxAccess: getEnvIntOrDefault("PREVIEW_MAX_ACCESS", 3),

		ViewTicketIssuer:  getEnvOrDefault("VIEW_TICKET_ISSUER", "quill-signing"),
		ViewTicketTTL:     getEnvDurationOrDefault("VIEW_TICKET_TTL", 5*time.Minute),
		ViewTicketKeyPath: os.Getenv("VIEW_TICKET_KEY_PATH"),
		MasterKeyPath:     os.Getenv("SIGNING_MASTER_KEY_PATH"),

		SealingServiceURL: os.Getenv("SEALING_SERVICE_URL"),
		NotifyWebhookURL:  os.Getenv("NOTIFY_WEBHOOK_URL"),
		NotifySecret:      os.Getenv("NOTIFY_WEBHOOK_SECRET"),
		UpstreamTimeout:   getEnvDurationOrDefault("UPSTREAM_TIMEOUT", 10*time.Second),
		InlineTimeout:     getEnvDurationOrDefault("SIGNING_INLINE_TIMEOUT", 5*time.Second),

		OutboxWorkers:        getEnvIntOrDefault("OUTBOX_WORKERS", 2),
		OutboxPollInterval:   getEnvDurationOrDefault("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxMaxAttempts:    getEnvIntOrDefault("OUTBOX_MAX_ATTEMPTS", 8),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		JobRetention:         getEnvDurationOrDefault("OUTBOX_JOB_RETENTION", 7*24*time.Hour),
		IdempotencyTTL:       getEnvDurationOrDefault("IDEMPOTENCY_TTL", 24*time.Hour),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
