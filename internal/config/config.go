package config

import (
	"os"
	"strconv"
	"time"

	"felicity/internal/database"
	"felicity/internal/external"
	"felicity/internal/messaging"
)

// Config holds the full application configuration.
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// JWTSecret verifies bearer tokens minted by the identity provider.
	JWTSecret string

	// TicketSecret is the HMAC key tickets are signed with. Rotating it
	// invalidates every outstanding ticket.
	TicketSecret string

	// ProofDir is where payment proof blobs are stored.
	ProofDir string

	Database      database.Config
	NATS          messaging.Config
	Elasticsearch ElasticsearchConfig
	Valkey        ValkeyConfig
	Notifier      external.NotifierConfig
	Mailer        external.MailerConfig
}

// ValkeyConfig configures the listing cache.
type ValkeyConfig struct {
	Addr     string
	Password string
	TTL      time.Duration
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		JWTSecret:    getEnv("JWT_SECRET", "felicity-dev-secret"),
		TicketSecret: getEnv("TICKET_SECRET", "felicity-ticket-secret"),
		ProofDir:     getEnv("PROOF_DIR", "/var/lib/felicity/proofs"),

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "felicity"),
			Password:           getEnv("DB_PASSWORD", "felicity123"),
			DBName:             getEnv("DB_NAME", "felicity"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "felicity"),
			ClientID:  getEnv("NATS_CLIENT_ID", "felicity-api"),
		},

		Elasticsearch: ElasticsearchConfig{
			URL:        getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
			Username:   getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:   getEnv("ELASTICSEARCH_PASSWORD", ""),
			Index:      getEnv("ELASTICSEARCH_INDEX", "felicity-events"),
			MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
		},

		Valkey: ValkeyConfig{
			Addr:     getEnv("VALKEY_ADDR", "localhost:6379"),
			Password: getEnv("VALKEY_PASSWORD", ""),
			TTL:      time.Duration(getEnvInt("VALKEY_TTL_SEC", 30)) * time.Second,
		},

		Notifier: external.NotifierConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			Timeout:    time.Duration(getEnvInt("NOTIFY_TIMEOUT_SEC", 10)) * time.Second,
		},

		Mailer: external.MailerConfig{
			BaseURL: getEnv("MAILER_URL", "http://localhost:8025"),
			From:    getEnv("MAILER_FROM", "felicity@students.iiit.ac.in"),
			Timeout: time.Duration(getEnvInt("MAILER_TIMEOUT_SEC", 10)) * time.Second,
		},
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable value or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
