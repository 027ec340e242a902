package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNewFromEnv(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		for _, k := range []string{"MEALS_FILE", "PROFILES_FILE", "SCHEDULE_FILE", "DATABASE_PATH", "SOLVER_TIME_LIMIT", "TELEGRAM_ALLOWED_USER_IDS", "ADMIN_TELEGRAM_ID"} {
			t.Setenv(k, "")
		}

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.MealsFile != "data/meals.json" {
			t.Errorf("Expected default MealsFile, got '%s'", cfg.MealsFile)
		}
		if cfg.SolverTimeLimit != 10*time.Second {
			t.Errorf("Expected default time limit, got %s", cfg.SolverTimeLimit)
		}
		if cfg.ScheduleFile != "" {
			t.Errorf("Expected empty ScheduleFile, got '%s'", cfg.ScheduleFile)
		}
	})

	t.Run("Success", func(t *testing.T) {
		t.Setenv("MEALS_FILE", "/srv/meals.json")
		t.Setenv("SOLVER_TIME_LIMIT", "2500ms")
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "12, 34,,56")
		t.Setenv("ADMIN_TELEGRAM_ID", "12")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.MealsFile != "/srv/meals.json" {
			t.Errorf("Expected MealsFile to be '/srv/meals.json', got '%s'", cfg.MealsFile)
		}
		if cfg.SolverTimeLimit != 2500*time.Millisecond {
			t.Errorf("Expected 2.5s, got %s", cfg.SolverTimeLimit)
		}
		if diff := cmp.Diff([]int64{12, 34, 56}, cfg.TelegramAllowedUserIDs); diff != "" {
			t.Errorf("Allowed IDs mismatch (-want +got):\n%s", diff)
		}
		if cfg.AdminTelegramID != 12 {
			t.Errorf("Expected admin 12, got %d", cfg.AdminTelegramID)
		}
	})

	t.Run("InvalidTimeLimit", func(t *testing.T) {
		t.Setenv("SOLVER_TIME_LIMIT", "soon")
		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for invalid SOLVER_TIME_LIMIT, got nil")
		}
	})

	t.Run("InvalidUserID", func(t *testing.T) {
		t.Setenv("SOLVER_TIME_LIMIT", "")
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "12,abc")
		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for invalid user id, got nil")
		}
	})
}

func TestRequireTelegram(t *testing.T) {
	cfg := &Config{}
	expectedError := "TELEGRAM_BOT_TOKEN environment variable not set"
	if err := cfg.RequireTelegram(); err == nil || err.Error() != expectedError {
		t.Errorf("Expected error '%s', got '%v'", expectedError, err)
	}
	cfg.TelegramBotToken = "token"
	cfg.TelegramWebhookURL = "https://example.test/hook"
	if err := cfg.RequireTelegram(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("MEALS_FILE=/from/dotenv.json\nDATABASE_PATH=/tmp/x.db\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MEALS_FILE", "")
	os.Unsetenv("MEALS_FILE")
	t.Setenv("DATABASE_PATH", "/already/set.db")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("MEALS_FILE"); got != "/from/dotenv.json" {
		t.Errorf("Expected MEALS_FILE from .env, got '%s'", got)
	}
	// Existing variables win.
	if got := os.Getenv("DATABASE_PATH"); got != "/already/set.db" {
		t.Errorf("Expected DATABASE_PATH to stay, got '%s'", got)
	}

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("Missing file should not fail, got %v", err)
	}
}
