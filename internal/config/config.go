package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	LogLevel  string
	LogFormat string

	HTTPTimeoutMs   int
	UpsertBatchSize int

	SourceComune string
	SourceStato  string
	ProfilesFile string

	RefreshIntervalHours int
	RefreshTypes         string
	RefreshOnStart       bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "belfiore.db")),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		HTTPTimeoutMs:   getEnvInt("BELFIORE_HTTP_TIMEOUT_MS", 30000),
		UpsertBatchSize: getEnvInt("BELFIORE_UPSERT_BATCH_SIZE", 200),

		SourceComune: getEnv("BELFIORE_SOURCE_COMUNE", ""),
		SourceStato:  getEnv("BELFIORE_SOURCE_STATO", ""),
		ProfilesFile: getEnv("BELFIORE_PROFILES_FILE", ""),

		RefreshIntervalHours: getEnvInt("BELFIORE_REFRESH_INTERVAL_HOURS", 24),
		RefreshTypes:         getEnv("BELFIORE_REFRESH_TYPES", "comune,stato"),
		RefreshOnStart:       getEnvBool("BELFIORE_REFRESH_ON_START", true),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
