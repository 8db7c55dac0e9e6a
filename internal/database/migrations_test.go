package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"breeze/internal/infrastructure/logging"
)

func openTempDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), name)

	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationRunner_RunMigrations(t *testing.T) {
	db := openTempDB(t, "migrations.db")
	runner := NewMigrationRunner(db, logging.NewNopLogger())
	ctx := context.Background()

	if err := runner.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	for _, table := range []string{"kv_state", "daily_accumulators", "activity_heartbeats", "goose_db_version"} {
		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			t.Errorf("table %s was not created: %v", table, err)
		}
	}
}

func TestMigrationRunner_NilDB(t *testing.T) {
	runner := NewMigrationRunner(nil, nil)

	if err := runner.RunMigrations(context.Background()); err == nil || err.Error() != "database connection is nil" {
		t.Errorf("RunMigrations() error = %v, want database connection is nil", err)
	}
	if _, err := runner.GetCurrentVersion(context.Background()); err == nil {
		t.Error("GetCurrentVersion() error = nil, want error")
	}
	if err := runner.ValidateMigrations(); err != nil {
		t.Errorf("ValidateMigrations() error = %v, embedded files need no connection", err)
	}
}

func TestMigrationRunner_VersionAdvancesAndRerunIsNoOp(t *testing.T) {
	db := openTempDB(t, "version.db")
	runner := NewMigrationRunner(db, logging.NewNopLogger())
	ctx := context.Background()

	version, err := runner.GetCurrentVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentVersion() error = %v", err)
	}
	if version != 0 {
		t.Errorf("initial version = %d, want 0", version)
	}

	for i := 0; i < 2; i++ {
		if err := runner.RunMigrations(ctx); err != nil {
			t.Fatalf("RunMigrations() run %d error = %v", i+1, err)
		}
	}

	version, err = runner.GetCurrentVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentVersion() error = %v", err)
	}
	if version != 1 {
		t.Errorf("version after migrating = %d, want 1", version)
	}
}

func TestMigrationRunner_SchemaConstraints(t *testing.T) {
	db := openTempDB(t, "constraints.db")
	ctx := context.Background()
	if err := NewMigrationRunner(db, logging.NewNopLogger()).RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	_, err := db.ExecContext(ctx, "INSERT INTO daily_accumulators (metric, day, seconds) VALUES ('typing_speed', 0, 1)")
	if err == nil {
		t.Error("insert with an unknown metric succeeded")
	}
	_, err = db.ExecContext(ctx, "INSERT INTO daily_accumulators (metric, day, seconds) VALUES ('work_time', 0, -1)")
	if err == nil {
		t.Error("insert with negative seconds succeeded")
	}
}

func TestMigrationRunner_ConcurrentRunners(t *testing.T) {
	const workers = 4
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		db := openTempDB(t, "concurrent.db")
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- NewMigrationRunner(db, logging.NewNopLogger()).ValidateMigrations()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("ValidateMigrations() error = %v", err)
		}
	}
}
