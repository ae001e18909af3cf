package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Env      string
	Port     string
	LogLevel string

	// Database
	DBDriver       string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	SQLitePath     string
	MigrationsPath string

	// JWT
	JWTSecret string

	// Budget calendar
	Timezone  string
	WeekStart string

	// Scheduler
	SchedulerMaxCatchUp int
	// SchedulerInterval runs every budget's due items in the background;
	// zero disables the loop.
	SchedulerInterval time.Duration
	// SchedulerAPIKey guards the operator endpoints.
	SchedulerAPIKey string

	// AMQP reminders; empty URL logs reminders instead.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", ""),

		DBDriver:       strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "envelope"),
		DBPassword:     getEnv("DB_PASSWORD", "envelope"),
		DBName:         getEnv("DB_NAME", "envelope"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		SQLitePath:     getEnv("SQLITE_PATH", "envelope.db"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "file://migrations"),

		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		Timezone:  getEnv("TIMEZONE", "UTC"),
		WeekStart: getEnv("WEEK_START", "monday"),

		SchedulerAPIKey: getEnv("SCHEDULER_API_KEY", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "envelope"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "manual_due"),
	}

	maxStr := getEnv("SCHEDULER_MAX_CATCH_UP", "24")
	maxCatchUp, err := strconv.Atoi(maxStr)
	if err != nil || maxCatchUp < 1 {
		log.Printf("Warning: invalid SCHEDULER_MAX_CATCH_UP value '%s', falling back to 24\n", maxStr)
		maxCatchUp = 24
	}
	config.SchedulerMaxCatchUp = maxCatchUp

	intervalStr := getEnv("SCHEDULER_INTERVAL", "0")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil || interval < 0 {
		log.Printf("Warning: invalid SCHEDULER_INTERVAL value '%s', disabling the background scheduler\n", intervalStr)
		interval = 0
	}
	config.SchedulerInterval = interval

	switch config.DBDriver {
	case "postgres", "sqlite", "memory":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (use postgres, sqlite or memory)", config.DBDriver)
	}
	if _, err := config.Location(); err != nil {
		return nil, err
	}
	if _, err := config.Weekday(); err != nil {
		return nil, err
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// Location resolves TIMEZONE.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Weekday resolves WEEK_START, e.g. "monday" or "sunday".
func (c *Config) Weekday() (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), c.WeekStart) {
			return d, nil
		}
	}
	return time.Monday, fmt.Errorf("invalid WEEK_START %q", c.WeekStart)
}

// PostgresURL returns the connection URL used by migrations.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
