package repository

import (
	"context"
	"database/sql"

	"breeze/internal/database"
	queries "breeze/internal/database/generated"
	repoerrors "breeze/internal/infrastructure/errors"
	"breeze/internal/infrastructure/logging"
)

// SQLiteRepository implements StateRepository on the generated queries
type SQLiteRepository struct {
	db          *sql.DB
	queries     *queries.Queries
	dbService   database.Service
	retryConfig *repoerrors.RetryConfig
	logger      logging.Logger

	// set on the copy handed to a WithTransaction callback
	inTx bool
}

var _ StateRepository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbService database.Service, logger logging.Logger) *SQLiteRepository {
	return NewSQLiteRepositoryWithConfig(dbService, nil, logger)
}

// NewSQLiteRepositoryWithConfig uses retryConfig for every statement; nil
// selects the default retry policy.
func NewSQLiteRepositoryWithConfig(dbService database.Service, retryConfig *repoerrors.RetryConfig, logger logging.Logger) *SQLiteRepository {
	if retryConfig == nil {
		retryConfig = repoerrors.DefaultRetryConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &SQLiteRepository{
		db:          dbService.DB(),
		queries:     dbService.GetQueries(),
		dbService:   dbService,
		retryConfig: retryConfig,
		logger:      logger,
	}
}

func (r *SQLiteRepository) SetRetryConfig(config *repoerrors.RetryConfig) {
	if config != nil {
		r.retryConfig = config
	}
}

func (r *SQLiteRepository) Health(ctx context.Context) error {
	return r.dbService.Health(ctx)
}

// exec runs op with retry, wrapping failures as classified repository
// errors. Retryable failures log at debug, the rest at error.
func (r *SQLiteRepository) exec(ctx context.Context, op string, fields map[string]string, fn func() error) error {
	return repoerrors.WithRetryNamed(ctx, r.retryConfig, op, func() error {
		err := fn()
		if err == nil {
			return nil
		}

		code := repoerrors.ClassifyError(err)
		repoErr := repoerrors.NewRepositoryErrorWithContext(op, err, code, fields)
		switch {
		case code == repoerrors.ErrCodeNotFound:
		case repoErr.IsRetryable():
			r.logger.Debug("Retryable error in "+op, "error", err)
		default:
			logging.LogError(r.logger, repoErr, op, nil)
		}
		return repoErr
	})
}
