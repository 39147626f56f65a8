package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/watchlistdb/internal/domain"
	_ "modernc.org/sqlite"
)

// DB represents the database connection and acts as the unit of work factory
type DB struct {
	handler  *sql.DB
	log      zerolog.Logger
	lock     sync.RWMutex
	squirrel sq.StatementBuilderType
	Driver   domain.DatabaseType
}

// NewDB opens the database for the configured driver and migrates the schema
func NewDB(driver domain.DatabaseType, dsn string, log zerolog.Logger) (*DB, error) {
	db := &DB{
		log:      log.With().Str("module", "database").Str("driver", string(driver)).Logger(),
		squirrel: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		Driver:   driver,
	}

	var err error
	switch driver {
	case domain.DatabaseTypeSqlite:
		db.handler, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, errors.Wrap(err, "unable to connect to database")
		}

		if _, err = db.handler.Exec(`PRAGMA journal_mode = wal;`); err != nil {
			db.handler.Close()
			return nil, errors.Wrap(err, "unable to enable WAL mode")
		}

	case domain.DatabaseTypePostgres:
		db.handler, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, errors.Wrap(err, "unable to connect to database")
		}

		if err = db.handler.Ping(); err != nil {
			db.handler.Close()
			return nil, errors.Wrap(err, "unable to reach postgres")
		}

	default:
		return nil, errors.Errorf("unsupported database type: %s", driver)
	}

	if err := db.Migrate(); err != nil {
		db.handler.Close()
		return nil, errors.Wrap(err, "failed to migrate schema")
	}

	return db, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout%3d1000&_pragma=foreign_keys(1)"
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.Driver == domain.DatabaseTypeSqlite {
		if _, err := db.handler.Exec(`PRAGMA optimize;`); err != nil {
			return errors.Wrap(err, "query planner optimization")
		}
	}

	return db.handler.Close()
}

// Ping checks if the database connection is alive
func (db *DB) Ping() error {
	return db.handler.Ping()
}

// BeginTx starts a new transaction
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := db.handler.BeginTx(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}

	return &Tx{
		Tx:      tx,
		handler: db,
	}, nil
}

// Tx represents a database transaction
type Tx struct {
	*sql.Tx
	handler *DB
}

// Rollback aborts the transaction. Calling it after Commit is a no-op.
func (tx *Tx) Rollback() error {
	if err := tx.Tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// truncateStatements returns the statements that clear table and reset its identity
func (db *DB) truncateStatements(table string) []string {
	if db.Driver == domain.DatabaseTypePostgres {
		return []string{fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY", table)}
	}

	return []string{
		fmt.Sprintf("DELETE FROM %s", table),
		fmt.Sprintf("DELETE FROM sqlite_sequence WHERE name = '%s'", table),
	}
}
