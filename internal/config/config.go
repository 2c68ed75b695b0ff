// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// DefaultConnectorID is the provider connector identifier sent when a request does not carry one.
const DefaultConnectorID = "did:web:provider-identityhub%3A7083:provider"

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the server will bind to.
	ServerHost string
	// ServerPort is the port number the server will listen on.
	ServerPort int
	// RoutePrefix is prepended to every orchestration route (e.g., "/orchestrator").
	RoutePrefix string
	// ShutdownTimeout bounds the graceful shutdown of the servers.
	ShutdownTimeout time.Duration

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// APIKey is the shared secret expected in the X-Api-Key header of orchestration requests.
	APIKey string

	// ConnectorURL is the base address of the consumer connector (scheme and host).
	ConnectorURL string
	// ConnectorManagementPath is the management API path appended to connector addresses.
	ConnectorManagementPath string
	// ConnectorAPIKey is sent as X-Api-Key on every management API call.
	ConnectorAPIKey string
	// ConnectorDefaultID is the provider connector id used when a request omits connectorId.
	ConnectorDefaultID string
	// ConnectorRateLimitRPS paces outbound connector calls. Zero disables pacing.
	ConnectorRateLimitRPS float64

	// RequestTimeout is the fixed timeout applied to every outbound HTTP call.
	RequestTimeout time.Duration
	// EDRRetryDelay is the flat delay before every data address attempt after the first.
	EDRRetryDelay time.Duration
	// EDRMaxRetries is the maximum number of data address attempts.
	EDRMaxRetries int
	// CacheTTL is how long a live transfer status answer is reused.
	CacheTTL time.Duration

	// StorageDir is the directory downloaded payloads are written to.
	StorageDir string

	// OrchestrationRetention removes terminal processes older than this. Zero keeps them forever.
	OrchestrationRetention time.Duration
	// OrchestrationSweepSchedule is the cron spec used by the retention sweep.
	OrchestrationSweepSchedule string

	// CORSEnabled indicates whether CORS is enabled.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS.
	CORSAllowOrigins string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	apiKey := env.GetString("API_KEY", "password")

	return &Config{
		// Server configuration
		ServerHost:      env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort:      env.GetInt("SERVER_PORT", 8080),
		RoutePrefix:     env.GetString("ROUTE_PREFIX", ""),
		ShutdownTimeout: env.GetDuration("SHUTDOWN_TIMEOUT_SECONDS", 30, time.Second),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Auth
		APIKey: apiKey,

		// Connector
		ConnectorURL:            env.GetString("CONNECTOR_URL", "http://localhost"),
		ConnectorManagementPath: env.GetString("CONNECTOR_MANAGEMENT_PATH", "/consumer/cp/api/management/v3"),
		ConnectorAPIKey:         env.GetString("CONNECTOR_API_KEY", apiKey),
		ConnectorDefaultID:      env.GetString("CONNECTOR_DEFAULT_ID", DefaultConnectorID),
		ConnectorRateLimitRPS:   env.GetFloat64("CONNECTOR_RATE_LIMIT_RPS", 0),

		// Workflow
		RequestTimeout: env.GetDuration("REQUEST_TIMEOUT_SECONDS", 3, time.Second),
		EDRRetryDelay:  env.GetDuration("EDR_RETRY_DELAY_SECONDS", 2, time.Second),
		EDRMaxRetries:  env.GetInt("EDR_MAX_RETRIES", 5),
		CacheTTL:       env.GetDuration("CACHE_TTL_SECONDS", 5, time.Second),

		// Storage
		StorageDir: env.GetString("STORAGE_DIR", "data"),

		// Retention
		OrchestrationRetention:     env.GetDuration("ORCHESTRATION_RETENTION_MINUTES", 0, time.Minute),
		OrchestrationSweepSchedule: env.GetString("ORCHESTRATION_SWEEP_SCHEDULE", "@every 1m"),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", false),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "orchestrator"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),
	}
}

// ConnectorManagementURL returns the management API base on the configured connector.
func (c *Config) ConnectorManagementURL() string {
	return c.ConnectorURL + c.ConnectorManagementPath
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	switch c.LogLevel {
	case "debug":
		return "debug"
	default:
		return "release"
	}
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}
