package syncer_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/varoOP/watchlistdb/internal/database"
	"github.com/varoOP/watchlistdb/internal/dedupe"
	"github.com/varoOP/watchlistdb/internal/domain"
	"github.com/varoOP/watchlistdb/internal/letterboxd"
	"github.com/varoOP/watchlistdb/internal/syncer"
)

type fakeScraper struct {
	entries []domain.WatchlistEntry
	err     error
}

func (f *fakeScraper) Scrape(ctx context.Context, watchlistURL string) ([]domain.WatchlistEntry, error) {
	return f.entries, f.err
}

type fakeEnricher struct {
	meta map[domain.NaturalKey]*domain.Metadata
}

func (f *fakeEnricher) Enrich(ctx context.Context, entry domain.WatchlistEntry) (*domain.Metadata, error) {
	m, ok := f.meta[entry.Key()]
	if !ok {
		return nil, domain.ErrNoMatch
	}
	return m, nil
}

func (f *fakeEnricher) EnrichAll(ctx context.Context, entries []domain.WatchlistEntry) []domain.EnrichedMovie {
	out := make([]domain.EnrichedMovie, len(entries))
	for i, e := range entries {
		meta, _ := f.Enrich(ctx, e)
		out[i] = domain.NewEnrichedMovie(e, meta)
	}
	return out
}

type failingEdgeRepo struct {
	domain.EdgeRepo
}

func (f *failingEdgeRepo) Truncate(ctx context.Context) (domain.WriteResult, error) {
	return domain.WriteResult{}, domain.NewStorageError("truncate movie_providers", 0, errors.New("disk full"))
}

type fixture struct {
	db        *database.DB
	movies    *database.MovieRepo
	providers *database.EdgeRepo
	genres    *database.EdgeRepo
	scraper   *fakeScraper
	enricher  *fakeEnricher
	config    *domain.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := zerolog.Nop()
	db, err := database.NewDB(domain.DatabaseTypeSqlite, filepath.Join(t.TempDir(), "sync.db"), log)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &fixture{
		db:        db,
		movies:    database.NewMovieRepo(log, db),
		providers: database.NewProviderRepo(log, db),
		genres:    database.NewGenreRepo(log, db),
		scraper:   &fakeScraper{},
		enricher:  &fakeEnricher{meta: map[domain.NaturalKey]*domain.Metadata{}},
		config:    &domain.Config{WatchlistURL: "https://letterboxd.com/someone/watchlist"},
	}
}

func (f *fixture) service(providers domain.EdgeRepo) syncer.Service {
	if providers == nil {
		providers = f.providers
	}
	log := zerolog.Nop()
	return syncer.NewService(log, f.config, f.scraper, dedupe.NewService(log), f.enricher, f.movies, providers, f.genres)
}

func (f *fixture) run(t *testing.T) domain.SyncStatistics {
	t.Helper()
	stats, err := f.service(nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	return stats
}

func (f *fixture) watch(name string, year int, meta *domain.Metadata) {
	entry := domain.WatchlistEntry{Name: name, Year: year}
	f.scraper.entries = append(f.scraper.entries, entry)
	if meta != nil {
		f.enricher.meta[entry.Key()] = meta
	}
}

func intPtr(v int) *int {
	return &v
}

func edgeNames(t *testing.T, repo *database.EdgeRepo, movieID int64) []string {
	t.Helper()
	edges, err := repo.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll edges: %v", err)
	}
	var names []string
	for _, e := range edges {
		if e.MovieID == movieID {
			names = append(names, e.Name)
		}
	}
	sort.Strings(names)
	return names
}

func find(t *testing.T, f *fixture, name string, year int) *domain.Movie {
	t.Helper()
	m, err := f.movies.FindByKey(context.Background(), name, year)
	if err != nil {
		t.Fatalf("FindByKey(%s, %d): %v", name, year, err)
	}
	return m
}

func TestRunBuildsStoreFromWatchlist(t *testing.T) {
	f := newFixture(t)
	f.watch("Heat", 1995, &domain.Metadata{Runtime: intPtr(170), Providers: []string{"Netflix", "Hulu"}, Genres: []string{"Crime", "Drama"}, PosterURL: "https://image.tmdb.org/t/p/w185/heat.jpg"})
	f.watch("Unknown Film", 2010, nil)
	f.watch("heat", 1995, nil)

	stats := f.run(t)

	if stats.Scraped != 3 || stats.Duplicates != 1 || stats.Enriched != 1 || stats.Misses != 1 {
		t.Fatalf("unexpected statistics %+v", stats)
	}
	if stats.Inserted != 2 || stats.ProviderEdges != 3 || stats.GenreEdges != 2 {
		t.Fatalf("unexpected write statistics %+v", stats)
	}

	heat := find(t, f, "Heat", 1995)
	if heat.Runtime == nil || *heat.Runtime != 170 {
		t.Fatalf("expected runtime 170, got %v", heat.Runtime)
	}
	if got := edgeNames(t, f.providers, heat.ID); len(got) != 2 || got[0] != "Hulu" || got[1] != "Netflix" {
		t.Fatalf("unexpected providers %v", got)
	}

	unknown := find(t, f, "Unknown Film", 2010)
	if unknown.PosterURL != domain.DefaultPosterURL {
		t.Fatalf("expected default poster, got %q", unknown.PosterURL)
	}
	if got := edgeNames(t, f.providers, unknown.ID); len(got) != 1 || got[0] != domain.ProviderNotFound {
		t.Fatalf("expected provider sentinel, got %v", got)
	}
	if got := edgeNames(t, f.genres, unknown.ID); len(got) != 0 {
		t.Fatalf("expected no genres, got %v", got)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.watch("Heat", 1995, &domain.Metadata{Runtime: intPtr(170), Providers: []string{"Netflix"}, Genres: []string{"Crime"}})
	f.watch("Alien", 1979, &domain.Metadata{Runtime: intPtr(117), Genres: []string{"Horror", "Science Fiction"}})

	f.run(t)
	first, err := f.movies.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}

	stats := f.run(t)
	if stats.Inserted != 0 || stats.Deleted != 0 || stats.RuntimeFilled != 0 {
		t.Fatalf("second run should not change movies, got %+v", stats)
	}

	second, err := f.movies.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("movie count changed from %d to %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Name != second[i].Name {
			t.Fatalf("movie %d changed from %+v to %+v", i, first[i], second[i])
		}
	}

	edges, err := f.genres.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll genres: %v", err)
	}
	if len(edges) != 3 || edges[0].ID != 1 {
		t.Fatalf("expected 3 rebuilt genre edges starting at id 1, got %+v", edges)
	}
}

func TestRunDeletesStaleMovies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.movies.BulkInsert(ctx, []*domain.Movie{{Name: "OldMovie", Year: 1999, PosterURL: domain.DefaultPosterURL}}); err != nil {
		t.Fatalf("seed movie: %v", err)
	}
	old := find(t, f, "OldMovie", 1999)
	if _, err := f.providers.BulkInsert(ctx, []domain.Edge{{MovieID: old.ID, Name: "Netflix"}}); err != nil {
		t.Fatalf("seed provider: %v", err)
	}
	if _, err := f.genres.BulkInsert(ctx, []domain.Edge{{MovieID: old.ID, Name: "Drama"}}); err != nil {
		t.Fatalf("seed genre: %v", err)
	}

	f.watch("Heat", 1995, &domain.Metadata{Providers: []string{"Netflix"}, Genres: []string{"Crime"}})
	stats := f.run(t)

	if stats.Deleted != 1 {
		t.Fatalf("expected 1 deleted movie, got %d", stats.Deleted)
	}
	if _, err := f.movies.FindByKey(ctx, "OldMovie", 1999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected OldMovie to be gone, got %v", err)
	}
	if got := edgeNames(t, f.providers, old.ID); len(got) != 0 {
		t.Fatalf("expected no provider edges for OldMovie, got %v", got)
	}
	if got := edgeNames(t, f.genres, old.ID); len(got) != 0 {
		t.Fatalf("expected no genre edges for OldMovie, got %v", got)
	}
}

func TestRunFillsRuntimeMonotonically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seed := []*domain.Movie{
		{Name: "Heat", Year: 1995, Runtime: intPtr(120)},
		{Name: "Alien", Year: 1979},
	}
	if _, err := f.movies.BulkInsert(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	f.watch("Heat", 1995, &domain.Metadata{Runtime: intPtr(95)})
	f.watch("ALIEN", 1979, &domain.Metadata{Runtime: intPtr(117)})

	stats := f.run(t)
	if stats.RuntimeFilled != 1 || stats.Inserted != 0 {
		t.Fatalf("unexpected statistics %+v", stats)
	}

	if heat := find(t, f, "Heat", 1995); heat.Runtime == nil || *heat.Runtime != 120 {
		t.Fatalf("expected Heat to keep runtime 120, got %v", heat.Runtime)
	}
	if alien := find(t, f, "Alien", 1979); alien.Runtime == nil || *alien.Runtime != 117 {
		t.Fatalf("expected Alien runtime to be filled with 117, got %v", alien.Runtime)
	}
}

func TestRunAbortsOnScrapeFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.movies.BulkInsert(ctx, []*domain.Movie{{Name: "Heat", Year: 1995}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	f.scraper.err = domain.ErrSourceUnavailable
	_, err := f.service(nil).Run(ctx)

	var phaseErr *syncer.PhaseError
	if !errors.As(err, &phaseErr) || phaseErr.Phase != syncer.PhaseScrape {
		t.Fatalf("expected scrape PhaseError, got %v", err)
	}
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable in chain, got %v", err)
	}

	find(t, f, "Heat", 1995)
}

func TestRunKeepsEarlierPhasesOnStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.watch("Heat", 1995, &domain.Metadata{Providers: []string{"Netflix"}})

	_, err := f.service(&failingEdgeRepo{}).Run(context.Background())

	var phaseErr *syncer.PhaseError
	if !errors.As(err, &phaseErr) || phaseErr.Phase != syncer.PhaseRelations {
		t.Fatalf("expected relation-replace PhaseError, got %v", err)
	}

	var storageErr *domain.StorageError
	if !errors.As(err, &storageErr) || storageErr.Op != "truncate movie_providers" {
		t.Fatalf("expected StorageError in chain, got %v", err)
	}

	find(t, f, "Heat", 1995)
}

func TestRunEmptyWatchlistGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.watch("Heat", 1995, &domain.Metadata{Providers: []string{"Netflix"}})
	f.run(t)

	f.scraper.entries = nil
	stats, err := f.service(nil).Run(ctx)

	var phaseErr *syncer.PhaseError
	if !errors.As(err, &phaseErr) || phaseErr.Phase != syncer.PhaseDeleteStale {
		t.Fatalf("expected delete-stale PhaseError, got %v", err)
	}
	if !errors.Is(err, domain.ErrEmptyWatchlist) {
		t.Fatalf("expected ErrEmptyWatchlist in chain, got %v", err)
	}
	if stats.Deleted != 0 {
		t.Fatalf("expected nothing deleted for an empty scrape, got %d", stats.Deleted)
	}
	heat := find(t, f, "Heat", 1995)
	if got := edgeNames(t, f.providers, heat.ID); len(got) != 1 {
		t.Fatalf("expected provider edges to survive, got %v", got)
	}

	f.config.AllowEmptyWatchlist = true
	stats = f.run(t)
	if stats.Deleted != 1 {
		t.Fatalf("expected Heat to be deleted, got %d", stats.Deleted)
	}
	if _, err := f.movies.FindByKey(ctx, "Heat", 1995); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected empty store, got %v", err)
	}
	if got := edgeNames(t, f.providers, heat.ID); len(got) != 0 {
		t.Fatalf("expected provider edges to be cleared, got %v", got)
	}
}

func TestRunKeepsStoreWhenWatchlistExceedsPageLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		names := map[string]string{"/page/1/": "A (2001)", "/page/2/": "B (2002)", "/page/3/": "C (2003)"}
		name, ok := names[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `<ul><li class="griditem"><div data-component-class="LazyPoster" data-item-name="%s"></div></li></ul>`, name)
	}))
	t.Cleanup(server.Close)

	if _, err := f.movies.BulkInsert(ctx, []*domain.Movie{{Name: "C", Year: 2003, PosterURL: domain.DefaultPosterURL}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	c := find(t, f, "C", 2003)
	if _, err := f.providers.BulkInsert(ctx, []domain.Edge{{MovieID: c.ID, Name: "Netflix"}}); err != nil {
		t.Fatalf("seed provider: %v", err)
	}

	f.config.WatchlistURL = server.URL
	f.config.RequestTimeout = 2 * time.Second
	f.config.ScrapeRetryDelay = time.Millisecond
	f.config.ScrapeMaxPages = 2

	log := zerolog.Nop()
	svc := syncer.NewService(log, f.config, letterboxd.NewService(log, f.config), dedupe.NewService(log), f.enricher, f.movies, f.providers, f.genres)
	stats, err := svc.Run(ctx)

	var phaseErr *syncer.PhaseError
	if !errors.As(err, &phaseErr) || phaseErr.Phase != syncer.PhaseScrape {
		t.Fatalf("expected scrape PhaseError, got %v", err)
	}
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable in chain, got %v", err)
	}
	if stats.Deleted != 0 || stats.Inserted != 0 {
		t.Fatalf("expected no writes, got %+v", stats)
	}

	find(t, f, "C", 2003)
	if got := edgeNames(t, f.providers, c.ID); len(got) != 1 {
		t.Fatalf("expected provider edges for C to survive, got %v", got)
	}
	if _, err := f.movies.FindByKey(ctx, "A", 2001); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected partial scrape not to be persisted, got %v", err)
	}
}
