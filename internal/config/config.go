package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the environment-driven application settings. Position-specific
// settings live in the positions file, see positions.go.
type Config struct {
	Environment string
	LogLevel    string
	LogDir      string
	StateDir    string

	Exchange struct {
		Name    string
		APIKey  string
		Secret  string
		Testnet bool
		Demo    bool
	}

	Monitoring struct {
		PrometheusPort int
		HealthPort     int
	}

	Notifications struct {
		TelegramToken  string
		TelegramChatID string
	}
}

// Load reads the application config from environment variables, falling back
// to development defaults.
func Load() *Config {
	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogDir:      getEnv("LOG_DIR", "logs"),
		StateDir:    getEnv("STATE_DIR", "state"),
	}

	cfg.Exchange.Name = getEnv("EXCHANGE_NAME", "bybit")
	cfg.Exchange.APIKey = getEnv("EXCHANGE_API_KEY", "")
	cfg.Exchange.Secret = getEnv("EXCHANGE_SECRET", "")
	cfg.Exchange.Testnet = getEnvBool("EXCHANGE_TESTNET", true)
	cfg.Exchange.Demo = getEnvBool("EXCHANGE_DEMO", false)

	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 8080)
	cfg.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", 8081)

	cfg.Notifications.TelegramToken = getEnv("TELEGRAM_TOKEN", "")
	cfg.Notifications.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", "")

	return cfg
}

// Timeframes supported by the monitor, mapped to their bar durations.
var Timeframes = map[string]time.Duration{
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
