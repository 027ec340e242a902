package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the configuration for the application.
type Config struct {
	MealsFile    string
	ProfilesFile string
	ScheduleFile string // optional; the default week is used when empty
	DatabasePath string

	SolverTimeLimit time.Duration

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
}

const (
	defaultMealsFile       = "data/meals.json"
	defaultProfilesFile    = "data/nutritional_profiles.json"
	defaultDatabasePath    = "data/meal-optimizer.db"
	defaultSolverTimeLimit = 10 * time.Second
)

// LoadDotEnv loads variables from the given .env files (".env" when none is
// given) without overriding variables already set. A missing file is not an
// error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Printf("No %s file found, using process environment", f)
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	cfg := &Config{
		MealsFile:          getEnv("MEALS_FILE", defaultMealsFile),
		ProfilesFile:       getEnv("PROFILES_FILE", defaultProfilesFile),
		ScheduleFile:       os.Getenv("SCHEDULE_FILE"),
		DatabasePath:       getEnv("DATABASE_PATH", defaultDatabasePath),
		SolverTimeLimit:    defaultSolverTimeLimit,
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
	}

	if v := os.Getenv("SOLVER_TIME_LIMIT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("SOLVER_TIME_LIMIT must be a positive duration, got %q", v)
		}
		cfg.SolverTimeLimit = d
	}

	if v := os.Getenv("TELEGRAM_ALLOWED_USER_IDS"); v != "" {
		for _, field := range strings.Split(v, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			id, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("TELEGRAM_ALLOWED_USER_IDS contains invalid id %q", field)
			}
			cfg.TelegramAllowedUserIDs = append(cfg.TelegramAllowedUserIDs, id)
		}
	}

	if v := os.Getenv("ADMIN_TELEGRAM_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_TELEGRAM_ID must be numeric, got %q", v)
		}
		cfg.AdminTelegramID = id
	}

	return cfg, nil
}

// RequireTelegram reports the first Telegram setting the bot cannot run
// without.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
