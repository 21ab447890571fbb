package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type nopDriver struct{}

func (d nopDriver) Open(name string) (driver.Conn, error) {
	return nopConn{}, nil
}

type nopConn struct{}

func (nopConn) Prepare(query string) (driver.Stmt, error) { return nopStmt{}, nil }
func (nopConn) Close() error                              { return nil }
func (nopConn) Begin() (driver.Tx, error)                 { return nopTx{}, nil }
func (nopConn) Ping(ctx context.Context) error            { return nil }

type nopStmt struct{}

func (nopStmt) Close() error                                   { return nil }
func (nopStmt) NumInput() int                                  { return -1 }
func (nopStmt) Exec(args []driver.Value) (driver.Result, error) { return nopResult{}, nil }
func (nopStmt) Query(args []driver.Value) (driver.Rows, error)  { return nopRows{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

type nopResult struct{}

func (nopResult) LastInsertId() (int64, error) { return 0, nil }
func (nopResult) RowsAffected() (int64, error) { return 0, nil }

type nopRows struct{}

func (nopRows) Columns() []string              { return []string{} }
func (nopRows) Close() error                   { return nil }
func (nopRows) Next(dest []driver.Value) error { return driver.ErrBadConn }

var registerTestDriverOnce sync.Once

func ensureTestDriverRegistered() {
	registerTestDriverOnce.Do(func() {
		sql.Register("dbtest", nopDriver{})
	})
}

func withTestDriver(t *testing.T) func() {
	t.Helper()
	ensureTestDriverRegistered()
	prev := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		return sql.Open("dbtest", dsn)
	}
	return func() {
		openDB = prev
	}
}

func resetShared() {
	singletonMu.Lock()
	singletonDB = nil
	singletonMu.Unlock()
}

func TestOpenLambdaReusesPool(t *testing.T) {
	restore := withTestDriver(t)
	defer restore()
	resetShared()
	defer resetShared()

	db1, err := Open(context.Background(), "ignored", ProfileLambda)
	if err != nil {
		t.Fatalf("Open first: %v", err)
	}
	db2, err := Open(context.Background(), "ignored", ProfileLambda)
	if err != nil {
		t.Fatalf("Open second: %v", err)
	}
	if db1 != db2 {
		t.Fatalf("expected lambda pools to match")
	}
}

func TestOpenServerDialsFreshPool(t *testing.T) {
	restore := withTestDriver(t)
	defer restore()

	db1, err := Open(context.Background(), "ignored", ProfileServer)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db1.Close()
	db2, err := Open(context.Background(), "ignored", ProfileServer)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db2.Close()
	if db1 == db2 {
		t.Fatalf("expected distinct server pools")
	}
	if got := db1.Stats().MaxOpenConnections; got != 10 {
		t.Fatalf("expected server MaxOpenConnections=10, got %d", got)
	}
}

func TestOptionsForAppliesOverrides(t *testing.T) {
	restore := withTestDriver(t)
	defer restore()

	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "45s")
	t.Setenv("DB_PING_TIMEOUT", "1s")

	opts := OptionsFor(ProfileServer)
	db, err := Connect(context.Background(), "ignored", opts)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	if got := db.Stats().MaxOpenConnections; got != 7 {
		t.Fatalf("expected MaxOpenConnections=7, got %d", got)
	}
	want := Options{MaxOpenConns: 7, MaxIdleConns: 3, ConnMaxLifetime: 20 * time.Minute, ConnMaxIdleTime: 45 * time.Second, PingTimeout: time.Second}
	if opts != want {
		t.Fatalf("OptionsFor = %+v, want %+v", opts, want)
	}
}

func TestOptionsForProfiles(t *testing.T) {
	if OptionsFor(ProfileMigrate).MaxOpenConns != 1 {
		t.Fatalf("migrate profile should use a single connection")
	}
	if OptionsFor(ProfileLambda).MaxOpenConns != 2 {
		t.Fatalf("lambda profile should cap connections at 2")
	}
	if OptionsFor(Profile("unknown")) != OptionsFor(ProfileServer) {
		t.Fatalf("unknown profile should fall back to server defaults")
	}
}

func TestProfileForRuntime(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	if ProfileForRuntime() != ProfileServer {
		t.Fatalf("expected server profile outside lambda")
	}
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "recruit-api")
	if ProfileForRuntime() != ProfileLambda {
		t.Fatalf("expected lambda profile")
	}
}

func TestOpenLambdaRetriesAfterFailure(t *testing.T) {
	var calls int32
	prev := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, driver.ErrBadConn
		}
		ensureTestDriverRegistered()
		return sql.Open("dbtest", dsn)
	}
	defer func() {
		openDB = prev
	}()
	ensureTestDriverRegistered()
	resetShared()
	defer resetShared()

	if _, err := Open(context.Background(), "ignored", ProfileLambda); err == nil {
		t.Fatalf("expected first call to fail")
	}
	db2, err := Open(context.Background(), "ignored", ProfileLambda)
	if err != nil {
		t.Fatalf("expected second call to succeed: %v", err)
	}
	if db2 == nil {
		t.Fatalf("expected db after retry")
	}
}

func TestEmbeddedMigrationsHaveGooseDirectives(t *testing.T) {
	names, err := MigrationNames()
	if err != nil {
		t.Fatalf("MigrationNames: %v", err)
	}
	if len(names) < 2 {
		t.Fatalf("expected jobs and applications migrations, got %v", names)
	}
	for _, name := range names {
		data, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		body := string(data)
		if !strings.Contains(body, "-- +goose Up") || !strings.Contains(body, "-- +goose Down") {
			t.Fatalf("%s missing goose directives", name)
		}
	}
}

func TestConnectRejectsEmptyURL(t *testing.T) {
	if _, err := Connect(context.Background(), "  ", OptionsFor(ProfileServer)); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestRunMigrationCommandRejectsUnknown(t *testing.T) {
	restore := withTestDriver(t)
	defer restore()
	db, err := Connect(context.Background(), "ignored", OptionsFor(ProfileMigrate))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	if err := RunMigrationCommand(context.Background(), db, "drop-everything"); err == nil {
		t.Fatalf("expected unknown command to fail")
	}
	if err := RunMigrationCommand(context.Background(), nil, "up"); err != nil {
		t.Fatalf("nil database should be a no-op, got %v", err)
	}
}
