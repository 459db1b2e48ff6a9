// Package configs provides application configuration loaded from environment variables.
// All configuration is externalized via environment variables for 12-factor app compliance.
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all application configuration.
// Load it once at startup using AppLoad().
type AppConfig struct {
	// DBDSN is the Postgres connection string.
	DBDSN string

	// ServerAddr is the listen address of the HTTP API.
	ServerAddr string

	// KafkaTrade contains Kafka connection settings for the live trade stream.
	KafkaTrade KafkaConfig

	// Ingester contains settings for the Kafka-to-Postgres ingester.
	Ingester IngesterConfig

	// Backfill contains settings for the backfill job engine.
	Backfill BackfillConfig

	// Scraper contains settings for the live polling workers.
	Scraper ScraperConfig
}

// KafkaConfig holds Kafka connection settings.
type KafkaConfig struct {
	// Broker is the Kafka broker address (e.g., "localhost:9092").
	Broker string

	// Topic is the Kafka topic for trade data.
	Topic string

	// GroupID is the consumer group ID for the ingester.
	GroupID string
}

// IngesterConfig holds settings for batch processing.
type IngesterConfig struct {
	// BatchSize is the maximum number of trades to accumulate before flushing.
	BatchSize int

	// BatchTimeoutSeconds is the maximum seconds to wait before flushing.
	BatchTimeoutSeconds int
}

// BackfillConfig holds backfill engine tuning.
type BackfillConfig struct {
	// WindowMinutes is the size of one backfill window.
	WindowMinutes int

	// PacingMillis is the politeness delay between windows.
	PacingMillis int

	// MaxConcurrent bounds the number of jobs running at once.
	MaxConcurrent int
}

// ScraperConfig holds live poller settings.
type ScraperConfig struct {
	// Symbols is the normalized symbol list to poll (comma-separated in env).
	Symbols []string

	// RequestsPerSecond paces each venue's polling.
	RequestsPerSecond float64
}

// getDatabaseDSN constructs the Postgres DSN from environment variables.
func getDatabaseDSN() string {
	dbUser := getEnv("POSTGRES_USER", "user")
	dbPassword := getEnv("POSTGRES_PASSWORD", "password")
	dbHost := getEnv("POSTGRES_HOST", "localhost")
	dbPort := getEnv("POSTGRES_PORT", "5432")
	dbName := getEnv("POSTGRES_DB", "zoneradar")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbUser, dbPassword, dbHost, dbPort, dbName,
	)
}

// AppLoad loads all application configuration from environment variables.
// It attempts to load a .env file first (for local development).
// Call this once at application startup.
func AppLoad() *AppConfig {
	_ = godotenv.Load() // Ignore error - .env is optional

	symbols := strings.Split(getEnv("SCRAPER_SYMBOLS", "BTCUSDT,ETHUSDT"), ",")
	for i := range symbols {
		symbols[i] = strings.ToUpper(strings.TrimSpace(symbols[i]))
	}

	return &AppConfig{
		DBDSN:      getDatabaseDSN(),
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		KafkaTrade: KafkaConfig{
			Broker:  getEnv("KAFKA_BROKER", "localhost:9092"),
			Topic:   getEnv("KAFKA_TRADE_TOPIC", "zoneradar_trades"),
			GroupID: getEnv("KAFKA_TRADE_GROUP_ID", "zoneradar-trade-consumer"),
		},
		Ingester: IngesterConfig{
			BatchSize:           getEnvInt("BATCH_SIZE", 200),
			BatchTimeoutSeconds: getEnvInt("BATCH_TIMEOUT_SECONDS", 5),
		},
		Backfill: BackfillConfig{
			WindowMinutes: getEnvInt("BACKFILL_WINDOW_MINUTES", 60),
			PacingMillis:  getEnvInt("BACKFILL_PACING_MILLIS", 250),
			MaxConcurrent: getEnvInt("BACKFILL_MAX_CONCURRENT", 4),
		},
		Scraper: ScraperConfig{
			Symbols:           symbols,
			RequestsPerSecond: getEnvFloat("SCRAPER_RPS", 1.0),
		},
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvFloat returns the environment variable as float64 or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
