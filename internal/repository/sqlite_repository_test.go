package repository

import (
	"context"
	"errors"
	"testing"

	"breeze/internal/database"
	repoerrors "breeze/internal/infrastructure/errors"
	"breeze/internal/infrastructure/logging"
	"breeze/internal/testutils"
)

func newSQLiteRepository(t *testing.T) *SQLiteRepository {
	t.Helper()

	svc, err := database.Open(context.Background(), database.TestConfig(), logging.NewNopLogger())
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	return NewSQLiteRepository(svc, logging.NewNopLogger())
}

func TestSQLiteRepository(t *testing.T) {
	testStateRepository(t, func(t *testing.T) StateRepository {
		return newSQLiteRepository(t)
	})
}

func TestSQLiteRepository_ClosedDatabaseFails(t *testing.T) {
	svc, err := database.Open(context.Background(), database.TestConfig(), logging.NewNopLogger())
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	logger := &testutils.RecordingLogger{}
	repo := NewSQLiteRepositoryWithConfig(svc, &repoerrors.RetryConfig{MaxAttempts: 1}, logger)
	svc.Close()

	err = repo.Put(context.Background(), TimerStateKey, []byte("{}"))
	if err == nil {
		t.Fatal("Put() on a closed database succeeded")
	}
	var repoErr *repoerrors.RepositoryError
	if !errors.As(err, &repoErr) || repoErr.Op != "Put" {
		t.Errorf("Put() error = %v, want a RepositoryError for Put", err)
	}
	if len(logger.Entries("error")) == 0 {
		t.Error("failure was not logged")
	}
}

func TestSQLiteRepository_NotFoundIsQuiet(t *testing.T) {
	svc, err := database.Open(context.Background(), database.TestConfig(), logging.NewNopLogger())
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	defer svc.Close()

	logger := &testutils.RecordingLogger{}
	repo := NewSQLiteRepository(svc, logger)

	if _, err := repo.Get(context.Background(), "missing"); !repoerrors.IsNotFound(err) {
		t.Fatalf("Get() error = %v, want not found", err)
	}
	if n := len(logger.Entries("")); n != 0 {
		t.Errorf("a missing key produced %d log entries", n)
	}
}
