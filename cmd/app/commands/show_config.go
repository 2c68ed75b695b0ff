package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/dsorch/orchestrator/internal/config"
)

const maskedValue = "****"

// configEntry is one effective setting, keyed by its environment variable.
type configEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RunShowConfig prints the effective configuration with secrets masked, as aligned text or JSON.
func RunShowConfig(cfg *config.Config, out io.Writer, format string) error {
	entries := configEntries(cfg)

	switch format {
	case "json":
		values := make(map[string]string, len(entries))
		for _, entry := range entries {
			values[entry.Key] = entry.Value
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(values)
	case "text", "":
		for _, entry := range entries {
			if _, err := fmt.Fprintf(out, "%-32s %s\n", entry.Key, entry.Value); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid options: text, json)", format)
	}
}

func configEntries(cfg *config.Config) []configEntry {
	return []configEntry{
		{"SERVER_HOST", cfg.ServerHost},
		{"SERVER_PORT", strconv.Itoa(cfg.ServerPort)},
		{"ROUTE_PREFIX", cfg.RoutePrefix},
		{"SHUTDOWN_TIMEOUT_SECONDS", number(cfg.ShutdownTimeout.Seconds())},
		{"LOG_LEVEL", cfg.LogLevel},
		{"API_KEY", mask(cfg.APIKey)},
		{"CONNECTOR_URL", cfg.ConnectorURL},
		{"CONNECTOR_MANAGEMENT_PATH", cfg.ConnectorManagementPath},
		{"CONNECTOR_API_KEY", mask(cfg.ConnectorAPIKey)},
		{"CONNECTOR_DEFAULT_ID", cfg.ConnectorDefaultID},
		{"CONNECTOR_RATE_LIMIT_RPS", number(cfg.ConnectorRateLimitRPS)},
		{"REQUEST_TIMEOUT_SECONDS", number(cfg.RequestTimeout.Seconds())},
		{"EDR_RETRY_DELAY_SECONDS", number(cfg.EDRRetryDelay.Seconds())},
		{"EDR_MAX_RETRIES", strconv.Itoa(cfg.EDRMaxRetries)},
		{"CACHE_TTL_SECONDS", number(cfg.CacheTTL.Seconds())},
		{"STORAGE_DIR", cfg.StorageDir},
		{"ORCHESTRATION_RETENTION_MINUTES", number(cfg.OrchestrationRetention.Minutes())},
		{"ORCHESTRATION_SWEEP_SCHEDULE", cfg.OrchestrationSweepSchedule},
		{"CORS_ENABLED", strconv.FormatBool(cfg.CORSEnabled)},
		{"CORS_ALLOW_ORIGINS", cfg.CORSAllowOrigins},
		{"METRICS_ENABLED", strconv.FormatBool(cfg.MetricsEnabled)},
		{"METRICS_NAMESPACE", cfg.MetricsNamespace},
		{"METRICS_PORT", strconv.Itoa(cfg.MetricsPort)},
	}
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return maskedValue
}
