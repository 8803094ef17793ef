package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string

	HeroAPIBaseURL      string
	HeroAPIRateLimitRPS int
	HeroAPITimeoutMs    int
	HeroBatchSize       int
	SyncWorkers         int

	TeamRulesPath string

	RosterMatchOKThreshold     float64
	RosterMatchReviewThreshold float64
	RosterMatchGapThreshold    float64

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMailbox  string
	IMAPMarkSeen bool
	IMAPFetchMax int

	HTTPAddr                  string
	CatalogRefreshIntervalSec int
	RefreshAutoExport         bool

	LogLevel string
	LogJSON  bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "heroindex.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		HeroAPIBaseURL:      getEnv("HERO_API_BASE_URL", "https://akabab.github.io/superhero-api/api"),
		HeroAPIRateLimitRPS: getEnvInt("HERO_API_RATE_LIMIT_RPS", 5),
		HeroAPITimeoutMs:    getEnvInt("HERO_API_TIMEOUT_MS", 30000),
		HeroBatchSize:       getEnvInt("HERO_BATCH_SIZE", 500),
		SyncWorkers:         getEnvInt("SYNC_WORKERS", 8),

		TeamRulesPath: getEnv("TEAM_RULES_PATH", ""),

		RosterMatchOKThreshold:     getEnvFloat("ROSTER_MATCH_OK_THRESHOLD", 0.85),
		RosterMatchReviewThreshold: getEnvFloat("ROSTER_MATCH_REVIEW_THRESHOLD", 0.6),
		RosterMatchGapThreshold:    getEnvFloat("ROSTER_MATCH_GAP_THRESHOLD", 0.05),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMailbox:  getEnv("IMAP_MAILBOX", "INBOX"),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),
		IMAPFetchMax: getEnvInt("IMAP_FETCH_MAX", 20),

		HTTPAddr:                  getEnv("HTTP_ADDR", ":8080"),
		CatalogRefreshIntervalSec: getEnvInt("CATALOG_REFRESH_INTERVAL_SEC", 0),
		RefreshAutoExport:         getEnvBool("REFRESH_AUTO_EXPORT", false),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogJSON:  getEnvBool("LOG_JSON", true),
	}

	if cfg.HeroBatchSize <= 0 {
		return Config{}, fmt.Errorf("HERO_BATCH_SIZE must be positive, got %d", cfg.HeroBatchSize)
	}
	if cfg.SyncWorkers <= 0 {
		cfg.SyncWorkers = 1
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
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

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
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
