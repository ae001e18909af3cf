package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "")
		t.Setenv("TIMEZONE", "")
		t.Setenv("WEEK_START", "")
		t.Setenv("SCHEDULER_MAX_CATCH_UP", "")
		t.Setenv("SCHEDULER_INTERVAL", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.DBDriver != "postgres" {
			t.Errorf("expected postgres driver, got %s", cfg.DBDriver)
		}
		if cfg.SchedulerMaxCatchUp != 24 {
			t.Errorf("expected catch-up 24, got %d", cfg.SchedulerMaxCatchUp)
		}
		if cfg.SchedulerInterval != 0 {
			t.Errorf("expected background scheduler off, got %s", cfg.SchedulerInterval)
		}
		if Get() != cfg {
			t.Error("expected Get to return the loaded config")
		}
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "SQLite")
		t.Setenv("TIMEZONE", "Europe/Rome")
		t.Setenv("WEEK_START", "Sunday")
		t.Setenv("SCHEDULER_MAX_CATCH_UP", "3")
		t.Setenv("SCHEDULER_INTERVAL", "15m")
		t.Setenv("SCHEDULER_API_KEY", "operator-key")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.DBDriver != "sqlite" {
			t.Errorf("expected sqlite driver, got %s", cfg.DBDriver)
		}
		loc, _ := cfg.Location()
		if loc.String() != "Europe/Rome" {
			t.Errorf("expected Europe/Rome, got %s", loc)
		}
		day, _ := cfg.Weekday()
		if day != time.Sunday {
			t.Errorf("expected Sunday, got %s", day)
		}
		if cfg.SchedulerMaxCatchUp != 3 {
			t.Errorf("expected catch-up 3, got %d", cfg.SchedulerMaxCatchUp)
		}
		if cfg.SchedulerInterval != 15*time.Minute {
			t.Errorf("expected 15m interval, got %s", cfg.SchedulerInterval)
		}
		if cfg.SchedulerAPIKey != "operator-key" {
			t.Errorf("expected operator key, got %q", cfg.SchedulerAPIKey)
		}
	})

	t.Run("invalid_catch_up_falls_back", func(t *testing.T) {
		t.Setenv("SCHEDULER_MAX_CATCH_UP", "zero")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.SchedulerMaxCatchUp != 24 {
			t.Errorf("expected fallback 24, got %d", cfg.SchedulerMaxCatchUp)
		}
	})

	t.Run("invalid_interval_disables_loop", func(t *testing.T) {
		t.Setenv("SCHEDULER_INTERVAL", "-5m")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.SchedulerInterval != 0 {
			t.Errorf("expected disabled loop, got %s", cfg.SchedulerInterval)
		}
	})

	t.Run("rejects_bad_values", func(t *testing.T) {
		for key, value := range map[string]string{
			"DB_DRIVER":  "mysql",
			"TIMEZONE":   "Mars/Olympus",
			"WEEK_START": "someday",
		} {
			t.Run(key, func(t *testing.T) {
				t.Setenv(key, value)
				if _, err := Load(); err == nil {
					t.Errorf("expected error for %s=%s", key, value)
				}
			})
		}
	})
}

func TestPostgresURL(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "5432", DBName: "envelope", DBSSLMode: "disable"}
	want := "postgres://u:p@db:5432/envelope?sslmode=disable"
	if got := cfg.PostgresURL(); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
