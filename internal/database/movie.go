package database

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/watchlistdb/internal/domain"
)

// MovieRepo implements domain.MovieRepo
type MovieRepo struct {
	log       zerolog.Logger
	db        *DB
	chunkSize int
}

var _ domain.MovieRepo = (*MovieRepo)(nil)

// NewMovieRepo creates a new movie repository
func NewMovieRepo(log zerolog.Logger, db *DB, opts ...RepoOption) *MovieRepo {
	o := buildOptions(opts)
	return &MovieRepo{
		log:       log.With().Str("repo", "movies").Logger(),
		db:        db,
		chunkSize: o.chunkSize,
	}
}

// GetAll returns every persisted movie ordered by id
func (r *MovieRepo) GetAll(ctx context.Context) ([]*domain.Movie, error) {
	movies, err := r.getAll(ctx, r.db.handler)
	if err != nil {
		return nil, r.fail("get all movies", 0, err)
	}

	r.log.Debug().Int("count", len(movies)).Msg("Fetched movies")
	return movies, nil
}

func (r *MovieRepo) getAll(ctx context.Context, q querier) ([]*domain.Movie, error) {
	queryBuilder := r.db.squirrel.
		Select("id", "movie_name", "release_year", "runtime", "poster_link").
		From("movies").
		OrderBy("id")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("GetAll")

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}
	defer rows.Close()

	var movies []*domain.Movie
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, movie)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating rows")
	}

	return movies, nil
}

// FindByKey looks a movie up by its natural key, ignoring case
func (r *MovieRepo) FindByKey(ctx context.Context, name string, year int) (*domain.Movie, error) {
	queryBuilder := r.db.squirrel.
		Select("id", "movie_name", "release_year", "runtime", "poster_link").
		From("movies").
		Where(sq.Expr("LOWER(movie_name) = LOWER(?)", name)).
		Where(sq.Eq{"release_year": year}).
		Limit(1)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, r.fail("find movie by key", 1, errors.Wrap(err, "error building query"))
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("FindByKey")

	rows, err := r.db.handler.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.fail("find movie by key", 1, errors.Wrap(err, "error executing query"))
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, r.fail("find movie by key", 1, errors.Wrap(err, "error iterating rows"))
		}
		return nil, errors.Wrapf(domain.ErrNotFound, "movie %s (%d)", name, year)
	}

	movie, err := scanMovie(rows)
	if err != nil {
		return nil, r.fail("find movie by key", 1, err)
	}

	return movie, nil
}

// Upsert inserts candidates whose natural key is new and fills the runtime of
// existing movies that have none. Everything happens in one transaction.
func (r *MovieRepo) Upsert(ctx context.Context, movies []domain.EnrichedMovie) (domain.UpsertResult, error) {
	result := domain.UpsertResult{}
	if len(movies) == 0 {
		return result, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result, r.fail("upsert movies", len(movies), err)
	}
	defer tx.Rollback()

	existing, err := r.getAll(ctx, tx)
	if err != nil {
		return result, r.fail("upsert movies", len(movies), err)
	}

	lookup := make(map[domain.NaturalKey]*domain.Movie, len(existing)+len(movies))
	for _, m := range existing {
		lookup[m.Key()] = m
	}

	var toInsert []*domain.Movie
	for _, candidate := range movies {
		key := candidate.Key()

		current, found := lookup[key]
		if !found {
			m := &domain.Movie{
				Name:      candidate.Name,
				Year:      candidate.Year,
				Runtime:   candidate.Runtime,
				PosterURL: candidate.PosterURL,
			}
			toInsert = append(toInsert, m)
			lookup[key] = m
			continue
		}

		if current.HasRuntime() || candidate.Runtime == nil || *candidate.Runtime <= 0 {
			result.Unchanged++
			continue
		}

		// queued for insert in this batch, not yet persisted
		if current.ID == 0 {
			current.Runtime = candidate.Runtime
			result.Unchanged++
			continue
		}

		filled, err := r.fillRuntime(ctx, tx, current.ID, *candidate.Runtime)
		if err != nil {
			return domain.UpsertResult{}, r.fail("upsert movies", len(movies), err)
		}

		if filled {
			current.Runtime = candidate.Runtime
			result.RuntimeFilled++
		} else {
			result.Unchanged++
		}
	}

	if _, err := r.insertChunks(ctx, tx, toInsert); err != nil {
		return domain.UpsertResult{}, r.fail("upsert movies", len(movies), err)
	}
	result.Inserted = len(toInsert)

	if err := tx.Commit(); err != nil {
		return domain.UpsertResult{}, r.fail("upsert movies", len(movies), errors.Wrap(err, "error committing transaction"))
	}

	r.log.Info().
		Int("candidates", len(movies)).
		Int("inserted", result.Inserted).
		Int("runtime_filled", result.RuntimeFilled).
		Int("unchanged", result.Unchanged).
		Msg("Upserted movies")

	return result, nil
}

// BulkInsert inserts movies in chunks, all inside one transaction
func (r *MovieRepo) BulkInsert(ctx context.Context, movies []*domain.Movie) (domain.WriteResult, error) {
	if len(movies) == 0 {
		return domain.WriteResult{Op: "insert movies"}, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WriteResult{}, r.fail("insert movies", len(movies), err)
	}
	defer tx.Rollback()

	result, err := r.insertChunks(ctx, tx, movies)
	if err != nil {
		return domain.WriteResult{}, r.fail("insert movies", len(movies), err)
	}

	if err := tx.Commit(); err != nil {
		return domain.WriteResult{}, r.fail("insert movies", len(movies), errors.Wrap(err, "error committing transaction"))
	}

	r.log.Info().Int64("records", result.Records).Int("statements", result.Statements).Msg("Bulk inserted movies")
	return result, nil
}

func (r *MovieRepo) insertChunks(ctx context.Context, q querier, movies []*domain.Movie) (domain.WriteResult, error) {
	result := domain.WriteResult{Op: "insert movies"}

	for _, batch := range chunk(movies, r.chunkSize) {
		queryBuilder := r.db.squirrel.
			Insert("movies").
			Columns("movie_name", "release_year", "runtime", "poster_link")

		for _, m := range batch {
			queryBuilder = queryBuilder.Values(m.Name, m.Year, nullableInt(m.Runtime), m.PosterURL)
		}

		query, args, err := queryBuilder.ToSql()
		if err != nil {
			return result, errors.Wrap(err, "error building query")
		}

		r.log.Trace().Str("query", query).Int("rows", len(batch)).Msg("insertChunks")

		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return result, errors.Wrap(err, "error executing query")
		}

		n, err := res.RowsAffected()
		if err != nil {
			return result, errors.Wrap(err, "error reading affected rows")
		}

		result.Records += n
		result.Statements++
	}

	return result, nil
}

// BulkDelete removes movies by id in chunks, all inside one transaction.
// Their genre and provider edges go with them.
func (r *MovieRepo) BulkDelete(ctx context.Context, movies []*domain.Movie) (domain.WriteResult, error) {
	result := domain.WriteResult{Op: "delete movies"}
	if len(movies) == 0 {
		return result, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WriteResult{}, r.fail("delete movies", len(movies), err)
	}
	defer tx.Rollback()

	for _, batch := range chunk(movies, r.chunkSize) {
		ids := make([]int64, 0, len(batch))
		for _, m := range batch {
			ids = append(ids, m.ID)
		}

		// edges are deleted explicitly so the result does not depend on foreign key enforcement
		for _, table := range []string{"movie_genres", "movie_providers"} {
			if err := r.exec(ctx, tx, r.db.squirrel.Delete(table).Where(sq.Eq{"movie_id": ids}), nil); err != nil {
				return domain.WriteResult{}, r.fail("delete movies", len(movies), err)
			}
		}

		if err := r.exec(ctx, tx, r.db.squirrel.Delete("movies").Where(sq.Eq{"id": ids}), &result.Records); err != nil {
			return domain.WriteResult{}, r.fail("delete movies", len(movies), err)
		}
		result.Statements++
	}

	if err := tx.Commit(); err != nil {
		return domain.WriteResult{}, r.fail("delete movies", len(movies), errors.Wrap(err, "error committing transaction"))
	}

	r.log.Info().Int64("records", result.Records).Int("statements", result.Statements).Msg("Bulk deleted movies")
	return result, nil
}

// FillRuntime sets the runtime of a movie only if it has none yet.
// It reports whether a row was changed.
func (r *MovieRepo) FillRuntime(ctx context.Context, id int64, runtime int) (bool, error) {
	filled, err := r.fillRuntime(ctx, r.db.handler, id, runtime)
	if err != nil {
		return false, r.fail("fill runtime", 1, err)
	}
	return filled, nil
}

func (r *MovieRepo) fillRuntime(ctx context.Context, q querier, id int64, runtime int) (bool, error) {
	if runtime <= 0 {
		return false, nil
	}

	queryBuilder := r.db.squirrel.
		Update("movies").
		Set("runtime", runtime).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"id": id}).
		Where(sq.Or{sq.Eq{"runtime": nil}, sq.Eq{"runtime": 0}})

	var affected int64
	if err := r.exec(ctx, q, queryBuilder, &affected); err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *MovieRepo) exec(ctx context.Context, q querier, builder sq.Sqlizer, affected *int64) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("exec")

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "error executing query")
	}

	if affected != nil {
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "error reading affected rows")
		}
		*affected += n
	}

	return nil
}

func (r *MovieRepo) fail(op string, records int, err error) error {
	r.log.Error().Err(err).Str("op", op).Int("records", records).Msg("Movie store operation failed")
	return domain.NewStorageError(op, records, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(row rowScanner) (*domain.Movie, error) {
	var (
		movie   domain.Movie
		runtime sql.NullInt64
		poster  sql.NullString
	)

	if err := row.Scan(&movie.ID, &movie.Name, &movie.Year, &runtime, &poster); err != nil {
		return nil, errors.Wrap(err, "error scanning row")
	}

	if runtime.Valid {
		v := int(runtime.Int64)
		movie.Runtime = &v
	}
	movie.PosterURL = poster.String

	return &movie, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
