package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type Config struct {
	DSN            string
	MaxConns       int
	Timeout        time.Duration
	TimeZone       string
	ClientEncoding string
	// PingAttempts bounds how often the startup ping is tried; 0 means once.
	PingAttempts uint
}

// Table is implemented by repositories that own their DDL.
type Table interface {
	EnsureTable(ctx context.Context) error
}

// Connect opens the pool and verifies connectivity with a ping, retrying
// while the database is still coming up.
func Connect(ctx context.Context, cfg Config, logger *zap.SugaredLogger) (*sqlx.DB, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	attempts := cfg.PingAttempts
	if attempts == 0 {
		attempts = 1
	}
	err = retry.Do(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		return db.PingContext(pingCtx)
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(500*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			logger.Warnw("db ping failed, retrying", "attempt", n+1, "err", err)
		}),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	// Apply session-level settings if provided
	for _, stmt := range sessionSettings(cfg) {
		setCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		_, err := db.ExecContext(setCtx, stmt)
		cancel()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return db, nil
}

// EnsureTables runs each table's DDL in order.
func EnsureTables(ctx context.Context, tables ...Table) error {
	for _, t := range tables {
		if err := t.EnsureTable(ctx); err != nil {
			return err
		}
	}
	return nil
}

func sessionSettings(cfg Config) []string {
	var out []string
	if cfg.TimeZone != "" {
		out = append(out, "SET TIME ZONE "+quoteLiteral(cfg.TimeZone))
	}
	if cfg.ClientEncoding != "" {
		out = append(out, "SET client_encoding = "+quoteLiteral(cfg.ClientEncoding))
	}
	return out
}

// quoteLiteral escapes single quotes and wraps the value in single quotes
// so it can be used safely in SET ... statements which don't accept
// parameter placeholders for the right-hand side.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
