package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	queries "breeze/internal/database/generated"
	dberrors "breeze/internal/infrastructure/errors"
	"breeze/internal/infrastructure/logging"
)

// SQLiteService implements Service for a single SQLite file.
//
// Lifecycle: NewSQLiteService, Connect, Migrate (or Open for both), then
// GetQueries for repository use and Close when done.
type SQLiteService struct {
	db              *sql.DB
	config          *Config
	migrationRunner MigrationManager
	queries         *queries.Queries
	logger          logging.Logger
}

var _ Service = (*SQLiteService)(nil)

func NewSQLiteService(logger logging.Logger) *SQLiteService {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &SQLiteService{logger: logger}
}

// Connect opens config's database, replacing any earlier connection
func (s *SQLiteService) Connect(ctx context.Context, config *Config) error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("Failed to close previous database connection", "error", err)
		}
		s.reset()
	}
	s.config = config

	db, err := sql.Open("sqlite3", config.GetConnectionString())
	if err != nil {
		return dberrors.HandleConnectionError("Connect", fmt.Sprintf("failed to open database: %v", err))
	}
	s.configureConnectionPool(db, config)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return dberrors.HandleConnectionError("Connect", fmt.Sprintf("failed to ping database: %v", err))
	}

	s.db = db
	s.queries = queries.New(db)
	s.migrationRunner = NewMigrationRunner(db, s.logger)

	s.logger.Info("Connected to SQLite database", "path", config.Path)
	return nil
}

func (s *SQLiteService) reset() {
	s.db = nil
	s.queries = nil
	s.migrationRunner = nil
}

// Close is a no-op when not connected
func (s *SQLiteService) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return dberrors.HandleConnectionError("Close", fmt.Sprintf("failed to close database: %v", err))
	}
	s.reset()

	s.logger.Info("Closed SQLite database connection")
	return nil
}

// Migrate validates the embedded migrations and applies pending ones
func (s *SQLiteService) Migrate(ctx context.Context) error {
	if s.db == nil {
		return dberrors.HandleConnectionError("Migrate", "database not connected")
	}
	if s.migrationRunner == nil {
		return dberrors.HandleValidationError("Migrate", "migrationRunner", "nil", "migration runner not initialized")
	}

	if err := s.migrationRunner.ValidateMigrations(); err != nil {
		return dberrors.WrapDatabaseErrorWithContext("Migrate", err, map[string]string{"phase": "validation"})
	}
	if err := s.migrationRunner.RunMigrations(ctx); err != nil {
		return dberrors.WrapDatabaseErrorWithContext("Migrate", err, map[string]string{"phase": "execution"})
	}
	return nil
}

// Health pings and runs a trivial query
func (s *SQLiteService) Health(ctx context.Context) error {
	if s.db == nil {
		return dberrors.HandleConnectionError("Health", "database not connected")
	}

	if err := s.db.PingContext(ctx); err != nil {
		return dberrors.WrapDatabaseErrorWithContext("Health", err, map[string]string{"phase": "ping"})
	}

	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return dberrors.WrapDatabaseErrorWithContext("Health", err, map[string]string{"phase": "query"})
	}
	if one != 1 {
		return dberrors.HandleValidationError("Health", "query_result", fmt.Sprintf("%d", one), "expected result 1")
	}
	return nil
}

func (s *SQLiteService) DB() *sql.DB { return s.db }

func (s *SQLiteService) GetQueries() *queries.Queries { return s.queries }

func (s *SQLiteService) Config() *Config { return s.config }

func (s *SQLiteService) GetMigrationVersion(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, dberrors.HandleConnectionError("GetMigrationVersion", "database not connected")
	}
	if s.migrationRunner == nil {
		return 0, dberrors.HandleValidationError("GetMigrationVersion", "migrationRunner", "nil", "migration runner not initialized")
	}

	version, err := s.migrationRunner.GetCurrentVersion(ctx)
	if err != nil {
		return 0, dberrors.WrapDatabaseError("GetMigrationVersion", err)
	}
	return version, nil
}

// GetStats exposes pool statistics; zero when not connected
func (s *SQLiteService) GetStats() sql.DBStats {
	if s.db == nil {
		return sql.DBStats{}
	}
	return s.db.Stats()
}

// Optimize runs ANALYZE, a WAL checkpoint, VACUUM and PRAGMA optimize. The
// checkpoint and the pragma are best-effort.
func (s *SQLiteService) Optimize(ctx context.Context) error {
	if s.db == nil {
		return dberrors.HandleConnectionError("Optimize", "database not connected")
	}

	if _, err := s.db.ExecContext(ctx, "ANALYZE"); err != nil {
		return dberrors.WrapDatabaseErrorWithContext("Optimize", err, map[string]string{"phase": "analyze"})
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.logger.Warn("wal_checkpoint failed", "error", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return dberrors.WrapDatabaseErrorWithContext("Optimize", err, map[string]string{"phase": "vacuum"})
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		s.logger.Warn("PRAGMA optimize failed", "error", err)
	}

	s.logger.Info("Database optimization completed")
	return nil
}

// configureConnectionPool pins non-WAL databases to one connection; WAL
// allows a few readers, capped at 4.
func (s *SQLiteService) configureConnectionPool(db *sql.DB, config *Config) {
	if config.ForceSingleConnection || !config.UsesWAL() {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		s.logger.Debug("Configured SQLite for single connection mode",
			"journalMode", config.JournalMode, "forced", config.ForceSingleConnection)
	} else {
		maxConns := config.MaxConnections
		if maxConns <= 0 || maxConns > 4 {
			maxConns = 4
		}
		idleConns := max(1, min(config.MaxIdleConns, maxConns))

		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(idleConns)
		s.logger.Debug("Configured SQLite for limited connection pool (WAL mode)",
			"maxOpenConns", maxConns, "maxIdleConns", idleConns)
	}

	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
}

// Open validates config, connects and, when AutoMigrate is set, migrates
func Open(ctx context.Context, config *Config, logger logging.Logger) (*SQLiteService, error) {
	if err := config.Validate(); err != nil {
		return nil, dberrors.HandleValidationError("Open", "config", config.Path, err.Error())
	}

	svc := NewSQLiteService(logger)
	if err := svc.Connect(ctx, config); err != nil {
		return nil, err
	}
	if config.AutoMigrate {
		if err := svc.Migrate(ctx); err != nil {
			svc.Close()
			return nil, err
		}
	}
	return svc, nil
}
