package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

type Config struct {
	BotToken      string
	AdminID       int64
	DBPath        string
	BaseURL       string
	ProgressTTL   time.Duration
	SweepInterval time.Duration
}

const (
	DefaultDBPath        = "candidature.db"
	DefaultBaseURL       = "http://localhost:3000"
	DefaultProgressTTL   = 180 * 24 * time.Hour
	DefaultSweepInterval = time.Hour
)

// Load reads the bot configuration through getenv, usually os.Getenv.
func Load(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		BotToken: getenv("BOT_TOKEN"),
		DBPath:   getenv("DB_PATH"),
		BaseURL:  getenv("BASE_URL"),
	}

	if cfg.BotToken == "" {
		return nil, errors.New("BOT_TOKEN environment variable is required")
	}

	adminIDStr := getenv("ADMIN_ID")
	if adminIDStr == "" {
		return nil, errors.New("ADMIN_ID environment variable is required")
	}
	adminID, err := strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_ID: %w", err)
	}
	cfg.AdminID = adminID

	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	cfg.ProgressTTL, err = durationOr(getenv, "PROGRESS_TTL", DefaultProgressTTL)
	if err != nil {
		return nil, err
	}
	cfg.SweepInterval, err = durationOr(getenv, "SWEEP_INTERVAL", DefaultSweepInterval)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadStore reads only what the offline tools need: the database path and TTL.
func LoadStore(getenv func(string) string) (dbPath string, ttl time.Duration, err error) {
	dbPath = getenv("DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	ttl, err = durationOr(getenv, "PROGRESS_TTL", DefaultProgressTTL)
	return dbPath, ttl, err
}

func durationOr(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	value := getenv(key)
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
