package database

import (
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	"github.com/varoOP/watchlistdb/internal/domain"
)

// Migrate handles database schema creation and migrations using versioning
func (db *DB) Migrate() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.Driver == domain.DatabaseTypePostgres {
		return db.migratePostgres()
	}

	return db.migrateSqlite()
}

// SchemaVersion returns the version the database is currently at
func (db *DB) SchemaVersion() (int, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.Driver == domain.DatabaseTypePostgres {
		return postgresVersion(db.handler)
	}

	var version int
	if err := db.handler.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, errors.Wrap(err, "failed to query schema version")
	}
	return version, nil
}

func (db *DB) migrateSqlite() error {
	var version int
	if err := db.handler.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return errors.Wrap(err, "failed to query schema version")
	}

	if version == len(sqliteMigrations) {
		return nil
	} else if version > len(sqliteMigrations) {
		return errors.Errorf("database schema version (%d) is newer than supported (%d)", version, len(sqliteMigrations))
	}

	db.log.Info().Msgf("Beginning database schema upgrade from version %v to version: %v", version, len(sqliteMigrations))

	tx, err := db.handler.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := applyMigrations(tx, version, sqliteSchema, sqliteMigrations, db); err != nil {
		return err
	}

	_, err = tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", len(sqliteMigrations)))
	if err != nil {
		return errors.Wrap(err, "failed to bump schema version")
	}

	db.log.Info().Msgf("Database schema upgraded to version: %v", len(sqliteMigrations))
	return tx.Commit()
}

func (db *DB) migratePostgres() error {
	if _, err := db.handler.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (id INTEGER PRIMARY KEY, version INTEGER NOT NULL)`); err != nil {
		return errors.Wrap(err, "failed to create schema_migrations table")
	}

	version, err := postgresVersion(db.handler)
	if err != nil {
		return err
	}

	if version == len(postgresMigrations) {
		return nil
	} else if version > len(postgresMigrations) {
		return errors.Errorf("database schema version (%d) is newer than supported (%d)", version, len(postgresMigrations))
	}

	db.log.Info().Msgf("Beginning database schema upgrade from version %v to version: %v", version, len(postgresMigrations))

	tx, err := db.handler.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := applyMigrations(tx, version, postgresSchema, postgresMigrations, db); err != nil {
		return err
	}

	_, err = tx.Exec(`INSERT INTO schema_migrations (id, version) VALUES (1, $1) ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version`, len(postgresMigrations))
	if err != nil {
		return errors.Wrap(err, "failed to bump schema version")
	}

	db.log.Info().Msgf("Database schema upgraded to version: %v", len(postgresMigrations))
	return tx.Commit()
}

func applyMigrations(tx *sql.Tx, version int, schema string, migrations []string, db *DB) error {
	if version == 0 {
		if _, err := tx.Exec(schema); err != nil {
			return errors.Wrap(err, "failed to initialize schema")
		}
		db.log.Info().Msg("Created initial database schema")
		return nil
	}

	for i := version; i < len(migrations); i++ {
		if migrations[i] == "" {
			continue
		}
		db.log.Info().Msgf("Upgrading database schema to version: %v", i+1)
		if _, err := tx.Exec(migrations[i]); err != nil {
			return errors.Wrapf(err, "failed to execute migration #%v", i)
		}
	}

	return nil
}

func postgresVersion(handler *sql.DB) (int, error) {
	var version int
	err := handler.QueryRow(`SELECT version FROM schema_migrations WHERE id = 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to query schema version")
	}
	return version, nil
}
