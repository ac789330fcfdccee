package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"

	appconfig "github.com/sauverpro/Safe-Vend-Backend/internal/config"
)

// Pool sizing. Purchase traffic is bursty (a machine going online pulls its
// storefront plus several polls per purchase) but individual queries are short.
const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute

	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
	pingTimeout     = 5 * time.Second
)

// Connect establishes a PostgreSQL connection from the provided configuration.
// Transient failures while the database container boots are retried with
// exponential backoff. The returned *sqlx.DB has pool settings applied and has
// been pinged.
func Connect(cfg *appconfig.DatabaseConfig) (*sqlx.DB, error) {
	if cfg == nil {
		return nil, errors.New("nil database config")
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password),
		cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err := try(dsn)
		if err == nil {
			return db, nil
		}
		lastErr = err

		if attempt < connectAttempts {
			delay := backoff(attempt)
			log.Warn().
				Err(err).
				Int("attempt", attempt).
				Dur("retry_in", delay).
				Msg("database connection attempt failed")
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connectAttempts, lastErr)
}

// try opens and pings a single connection, closing it on failure.
func try(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// backoff returns connectBackoff * 2^(attempt-1), capped at 5s.
func backoff(attempt int) time.Duration {
	d := connectBackoff << (attempt - 1)
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
