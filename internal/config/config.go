package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string

	Admin  AdminConfig
	DB     DatabaseConfig
	Redis  RedisConfig
	PaySim PaySimConfig
	Worker WorkerConfig
}

// AdminConfig holds the operator account guarding mutating catalog endpoints.
type AdminConfig struct {
	Email        string
	PasswordHash string // bcrypt hash
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// PaySimConfig controls the simulated payment provider.
type PaySimConfig struct {
	Delay       time.Duration
	FailureRate float64 // 0 means every payment settles successfully
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	WatchdogInterval   time.Duration
	WatchdogStaleAfter time.Duration
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")

	// Operator account
	cfg.Admin = AdminConfig{
		Email:        getEnv("ADMIN_EMAIL", ""),
		PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
	}

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Payment simulator
	var err error
	if cfg.PaySim.Delay, err = parseDurationEnv("PAYSIM_DELAY", "2s"); err != nil {
		return nil, fmt.Errorf("invalid PAYSIM_DELAY: %w", err)
	}
	cfg.PaySim.FailureRate, err = parseFloatEnv("PAYSIM_FAILURE_RATE", "0")
	if err != nil {
		return nil, fmt.Errorf("invalid PAYSIM_FAILURE_RATE: %w", err)
	}
	if cfg.PaySim.FailureRate < 0 || cfg.PaySim.FailureRate > 1 {
		return nil, errors.New("PAYSIM_FAILURE_RATE must be between 0 and 1")
	}

	// Workers (durations)
	if cfg.Worker.WatchdogInterval, err = parseDurationEnv("WATCHDOG_INTERVAL", "30s"); err != nil {
		return nil, fmt.Errorf("invalid WATCHDOG_INTERVAL: %w", err)
	}
	if cfg.Worker.WatchdogStaleAfter, err = parseDurationEnv("WATCHDOG_STALE_AFTER", "2m"); err != nil {
		return nil, fmt.Errorf("invalid WATCHDOG_STALE_AFTER: %w", err)
	}

	// Required settings have no sane defaults.
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	// Validate JWT_SECRET
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for authentication")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}

// parseFloatEnv reads an environment variable and parses it as a float64.
func parseFloatEnv(key, def string) (float64, error) {
	return strconv.ParseFloat(getEnv(key, def), 64)
}
