package syncer

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/varoOP/watchlistdb/internal/dedupe"
	"github.com/varoOP/watchlistdb/internal/domain"
	"github.com/varoOP/watchlistdb/internal/letterboxd"
	"github.com/varoOP/watchlistdb/internal/tmdb"
)

type Service interface {
	Run(ctx context.Context) (domain.SyncStatistics, error)
}

type service struct {
	log       zerolog.Logger
	config    *domain.Config
	scraper   letterboxd.Service
	dedupe    dedupe.Service
	enricher  tmdb.Enricher
	movieRepo domain.MovieRepo
	providers domain.EdgeRepo
	genres    domain.EdgeRepo
}

func NewService(
	log zerolog.Logger,
	config *domain.Config,
	scraper letterboxd.Service,
	dedupeService dedupe.Service,
	enricher tmdb.Enricher,
	movieRepo domain.MovieRepo,
	providerRepo domain.EdgeRepo,
	genreRepo domain.EdgeRepo,
) Service {
	return &service{
		log:       log.With().Str("module", "syncer").Logger(),
		config:    config,
		scraper:   scraper,
		dedupe:    dedupeService,
		enricher:  enricher,
		movieRepo: movieRepo,
		providers: providerRepo,
		genres:    genreRepo,
	}
}

// Run executes scrape, dedupe, enrich, upsert, delete-stale and
// relation-replace in order. Each persistence phase commits on its own; a
// failure stops the run and earlier phases are not rolled back.
func (s *service) Run(ctx context.Context) (domain.SyncStatistics, error) {
	start := time.Now()
	stats := domain.SyncStatistics{}

	s.log.Info().Str("url", s.config.WatchlistURL).Msg("Starting watchlist sync")

	scraped, err := s.scraper.Scrape(ctx, s.config.WatchlistURL)
	if err != nil {
		return stats, s.failed(PhaseScrape, err)
	}
	stats.Scraped = len(scraped)

	dupes, entries := s.dedupe.CheckDupes(ctx, scraped)
	stats.Duplicates = dupes

	movies := s.enricher.EnrichAll(ctx, entries)
	if err := ctx.Err(); err != nil {
		return stats, s.failed(PhaseEnrich, err)
	}
	for _, m := range movies {
		if m.Matched {
			stats.Enriched++
		} else {
			stats.Misses++
		}
	}

	upserted, err := s.movieRepo.Upsert(ctx, movies)
	if err != nil {
		return stats, s.failed(PhaseUpsert, err)
	}
	stats.Inserted = upserted.Inserted
	stats.RuntimeFilled = upserted.RuntimeFilled

	if len(entries) == 0 && !s.config.AllowEmptyWatchlist {
		return stats, s.failed(PhaseDeleteStale, domain.ErrEmptyWatchlist)
	}

	deleted, err := s.deleteStale(ctx, movies)
	if err != nil {
		return stats, s.failed(PhaseDeleteStale, err)
	}
	stats.Deleted = deleted

	providerEdges, genreEdges, err := s.replaceRelations(ctx, movies)
	if err != nil {
		return stats, s.failed(PhaseRelations, err)
	}
	stats.ProviderEdges = providerEdges
	stats.GenreEdges = genreEdges

	stats.Duration = time.Since(start)
	s.logStatistics(stats)

	return stats, nil
}

// deleteStale removes every persisted movie whose key is not in the current watchlist
func (s *service) deleteStale(ctx context.Context, movies []domain.EnrichedMovie) (int, error) {
	current := make(map[domain.NaturalKey]struct{}, len(movies))
	for _, m := range movies {
		current[m.Key()] = struct{}{}
	}

	persisted, err := s.movieRepo.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	var stale []*domain.Movie
	for _, m := range persisted {
		if _, found := current[m.Key()]; !found {
			s.log.Debug().Str("title", m.Name).Int("year", m.Year).Msg("Removing movie no longer on the watchlist")
			stale = append(stale, m)
		}
	}

	if len(stale) == 0 {
		return 0, nil
	}

	result, err := s.movieRepo.BulkDelete(ctx, stale)
	if err != nil {
		return 0, err
	}

	return int(result.Records), nil
}

// replaceRelations truncates both edge tables and rebuilds them from the
// enriched watchlist
func (s *service) replaceRelations(ctx context.Context, movies []domain.EnrichedMovie) (int, int, error) {
	if _, err := s.providers.Truncate(ctx); err != nil {
		return 0, 0, err
	}
	if _, err := s.genres.Truncate(ctx); err != nil {
		return 0, 0, err
	}

	persisted, err := s.movieRepo.GetAll(ctx)
	if err != nil {
		return 0, 0, err
	}

	ids := make(map[domain.NaturalKey]int64, len(persisted))
	for _, m := range persisted {
		ids[m.Key()] = m.ID
	}

	var providerEdges, genreEdges []domain.Edge
	for _, m := range movies {
		id, found := ids[m.Key()]
		if !found {
			s.log.Warn().Str("title", m.Name).Int("year", m.Year).Msg("No persisted movie for enriched entry")
			continue
		}

		for _, p := range m.Providers {
			providerEdges = append(providerEdges, domain.Edge{MovieID: id, Name: p})
		}
		for _, g := range m.Genres {
			genreEdges = append(genreEdges, domain.Edge{MovieID: id, Name: g})
		}
	}

	providers, err := s.providers.BulkInsert(ctx, providerEdges)
	if err != nil {
		return 0, 0, err
	}

	genres, err := s.genres.BulkInsert(ctx, genreEdges)
	if err != nil {
		return int(providers.Records), 0, err
	}

	return int(providers.Records), int(genres.Records), nil
}

func (s *service) failed(phase Phase, err error) error {
	s.log.Error().Err(err).Str("phase", string(phase)).Msg("Sync aborted")
	return &PhaseError{Phase: phase, Err: err}
}

func (s *service) logStatistics(stats domain.SyncStatistics) {
	s.log.Info().
		Int("scraped", stats.Scraped).
		Int("duplicates", stats.Duplicates).
		Int("enriched", stats.Enriched).
		Int("misses", stats.Misses).
		Int("inserted", stats.Inserted).
		Int("runtime_filled", stats.RuntimeFilled).
		Int("deleted", stats.Deleted).
		Int("provider_edges", stats.ProviderEdges).
		Int("genre_edges", stats.GenreEdges).
		Dur("elapsed", stats.Duration).
		Msg("=== SYNC STATISTICS ===")
}
