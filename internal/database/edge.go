package database

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/watchlistdb/internal/domain"
)

// EdgeRepo implements domain.EdgeRepo for one of the movie relation tables
type EdgeRepo struct {
	log       zerolog.Logger
	db        *DB
	table     string
	column    string
	chunkSize int
}

var _ domain.EdgeRepo = (*EdgeRepo)(nil)

// NewGenreRepo creates the repository for movie_genres
func NewGenreRepo(log zerolog.Logger, db *DB, opts ...RepoOption) *EdgeRepo {
	return newEdgeRepo(log, db, "movie_genres", "genre_name", opts)
}

// NewProviderRepo creates the repository for movie_providers
func NewProviderRepo(log zerolog.Logger, db *DB, opts ...RepoOption) *EdgeRepo {
	return newEdgeRepo(log, db, "movie_providers", "provider_name", opts)
}

func newEdgeRepo(log zerolog.Logger, db *DB, table, column string, opts []RepoOption) *EdgeRepo {
	o := buildOptions(opts)
	return &EdgeRepo{
		log:       log.With().Str("repo", table).Logger(),
		db:        db,
		table:     table,
		column:    column,
		chunkSize: o.chunkSize,
	}
}

// GetAll returns every edge ordered by id
func (r *EdgeRepo) GetAll(ctx context.Context) ([]domain.Edge, error) {
	queryBuilder := r.db.squirrel.
		Select("id", "movie_id", r.column).
		From(r.table).
		OrderBy("id")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, r.fail("get all", 0, errors.Wrap(err, "error building query"))
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("GetAll")

	rows, err := r.db.handler.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.fail("get all", 0, errors.Wrap(err, "error executing query"))
	}
	defer rows.Close()

	var edges []domain.Edge
	for rows.Next() {
		var e domain.Edge
		if err := rows.Scan(&e.ID, &e.MovieID, &e.Name); err != nil {
			return nil, r.fail("get all", 0, errors.Wrap(err, "error scanning row"))
		}
		edges = append(edges, e)
	}

	if err := rows.Err(); err != nil {
		return nil, r.fail("get all", 0, errors.Wrap(err, "error iterating rows"))
	}

	return edges, nil
}

// BulkInsert inserts edges in chunks, all inside one transaction
func (r *EdgeRepo) BulkInsert(ctx context.Context, edges []domain.Edge) (domain.WriteResult, error) {
	result := domain.WriteResult{Op: "insert " + r.table}
	if len(edges) == 0 {
		return result, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WriteResult{}, r.fail("bulk insert", len(edges), err)
	}
	defer tx.Rollback()

	for _, batch := range chunk(edges, r.chunkSize) {
		queryBuilder := r.db.squirrel.
			Insert(r.table).
			Columns("movie_id", r.column)

		for _, e := range batch {
			queryBuilder = queryBuilder.Values(e.MovieID, e.Name)
		}

		query, args, err := queryBuilder.ToSql()
		if err != nil {
			return domain.WriteResult{}, r.fail("bulk insert", len(edges), errors.Wrap(err, "error building query"))
		}

		r.log.Trace().Str("query", query).Int("rows", len(batch)).Msg("BulkInsert")

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return domain.WriteResult{}, r.fail("bulk insert", len(edges), errors.Wrap(err, "error executing query"))
		}

		n, err := res.RowsAffected()
		if err != nil {
			return domain.WriteResult{}, r.fail("bulk insert", len(edges), errors.Wrap(err, "error reading affected rows"))
		}

		result.Records += n
		result.Statements++
	}

	if err := tx.Commit(); err != nil {
		return domain.WriteResult{}, r.fail("bulk insert", len(edges), errors.Wrap(err, "error committing transaction"))
	}

	r.log.Info().Int64("records", result.Records).Int("statements", result.Statements).Msgf("Bulk inserted %s", r.table)
	return result, nil
}

// Truncate clears the table and resets its identity sequence
func (r *EdgeRepo) Truncate(ctx context.Context) (domain.WriteResult, error) {
	result := domain.WriteResult{Op: "truncate " + r.table}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WriteResult{}, r.fail("truncate", 0, err)
	}
	defer tx.Rollback()

	for _, stmt := range r.db.truncateStatements(r.table) {
		r.log.Trace().Str("query", stmt).Msg("Truncate")

		res, err := tx.ExecContext(ctx, stmt)
		if err != nil {
			return domain.WriteResult{}, r.fail("truncate", 0, errors.Wrap(err, "error executing query"))
		}

		if result.Statements == 0 {
			// postgres reports 0 for TRUNCATE; the count is informational only
			if n, err := res.RowsAffected(); err == nil {
				result.Records = n
			}
		}
		result.Statements++
	}

	if err := tx.Commit(); err != nil {
		return domain.WriteResult{}, r.fail("truncate", 0, errors.Wrap(err, "error committing transaction"))
	}

	r.log.Info().Int64("records", result.Records).Msgf("Truncated %s and reset identity", r.table)
	return result, nil
}

func (r *EdgeRepo) fail(op string, records int, err error) error {
	r.log.Error().Err(err).Str("op", op).Int("records", records).Msgf("%s operation failed", r.table)
	return domain.NewStorageError(op+" "+r.table, records, err)
}
