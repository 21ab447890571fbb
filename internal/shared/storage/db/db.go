package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver

	"recruit-backend/internal/shared/telemetry"
)

// Profile selects pool defaults for a kind of process.
type Profile string

const (
	ProfileServer  Profile = "server"
	ProfileLambda  Profile = "lambda"
	ProfileMigrate Profile = "migrate"
)

// Options controls database pool and connectivity behavior.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var profileDefaults = map[Profile]Options{
	ProfileServer:  {MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxIdleTime: 2 * time.Minute, ConnMaxLifetime: time.Hour, PingTimeout: 5 * time.Second},
	ProfileLambda:  {MaxOpenConns: 2, MaxIdleConns: 1, ConnMaxIdleTime: 30 * time.Second, ConnMaxLifetime: 15 * time.Minute, PingTimeout: 3 * time.Second},
	ProfileMigrate: {MaxOpenConns: 1, MaxIdleConns: 1, ConnMaxIdleTime: 2 * time.Minute, ConnMaxLifetime: time.Hour, PingTimeout: 5 * time.Second},
}

var (
	openDB = sql.Open

	singletonMu sync.Mutex
	singletonDB *sql.DB
)

// ProfileForRuntime returns ProfileLambda inside AWS Lambda and ProfileServer otherwise.
func ProfileForRuntime() Profile {
	if strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != "" {
		return ProfileLambda
	}
	return ProfileServer
}

// OptionsFor returns the pool defaults for p with DB_* env overrides applied.
func OptionsFor(p Profile) Options {
	opts, ok := profileDefaults[p]
	if !ok {
		opts = profileDefaults[ProfileServer]
	}
	if v, ok := readEnvInt("DB_MAX_OPEN_CONNS"); ok {
		opts.MaxOpenConns = v
	}
	if v, ok := readEnvInt("DB_MAX_IDLE_CONNS"); ok {
		opts.MaxIdleConns = v
	}
	if v, ok := readEnvDuration("DB_CONN_MAX_LIFETIME"); ok {
		opts.ConnMaxLifetime = v
	}
	if v, ok := readEnvDuration("DB_CONN_MAX_IDLE_TIME"); ok {
		opts.ConnMaxIdleTime = v
	}
	if v, ok := readEnvDuration("DB_PING_TIMEOUT"); ok {
		opts.PingTimeout = v
	}
	return opts
}

// Open connects for profile p. Lambda invocations share one pool per
// execution environment, so callers must not close it.
func Open(ctx context.Context, databaseURL string, p Profile) (*sql.DB, error) {
	if p == ProfileLambda {
		return shared(ctx, databaseURL, OptionsFor(p))
	}
	return Connect(ctx, databaseURL, OptionsFor(p))
}

// Connect opens a pgx-backed *sql.DB and verifies connectivity.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}

	db, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	applyOptions(db, opts)

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logPoolStats(db, "db.init")
	return db, nil
}

// shared holds the lock across Connect so concurrent cold starts dial once.
// A failed attempt leaves nothing cached and the next call retries.
func shared(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	if singletonDB != nil {
		return singletonDB, nil
	}
	db, err := Connect(ctx, databaseURL, opts)
	if err != nil {
		return nil, err
	}
	singletonDB = db
	return db, nil
}

func applyOptions(db *sql.DB, opts Options) {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func logPoolStats(db *sql.DB, label string) {
	stats := db.Stats()
	telemetry.Info(label, map[string]any{
		"open":     stats.OpenConnections,
		"in_use":   stats.InUse,
		"idle":     stats.Idle,
		"max_open": stats.MaxOpenConnections,
	})
}

func readEnvInt(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("db.env_invalid", map[string]any{"key": key, "error": err.Error()})
		return 0, false
	}
	return val, true
}

func readEnvDuration(key string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		telemetry.Warn("db.env_invalid", map[string]any{"key": key, "error": err.Error()})
		return 0, false
	}
	return val, true
}
