package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/varoOP/watchlistdb/internal/config"
	"github.com/varoOP/watchlistdb/internal/database"
	"github.com/varoOP/watchlistdb/internal/dedupe"
	"github.com/varoOP/watchlistdb/internal/domain"
	"github.com/varoOP/watchlistdb/internal/letterboxd"
	"github.com/varoOP/watchlistdb/internal/logger"
	"github.com/varoOP/watchlistdb/internal/notification"
	"github.com/varoOP/watchlistdb/internal/repository"
	"github.com/varoOP/watchlistdb/internal/syncer"
	"github.com/varoOP/watchlistdb/internal/tmdb"
)

// App represents the main application with all dependencies initialized
type App struct {
	log                 zerolog.Logger
	config              *domain.Config
	watchlistRepo       domain.WatchlistRepository
	scraper             letterboxd.Service
	dedupeService       dedupe.Service
	enricher            tmdb.Enricher
	notificationService domain.NotificationService
}

// NewApp loads the configuration and builds the application from it
func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return New(logger.NewLoggerFromString(cfg.LogLevel), cfg), nil
}

// New builds the application from an already loaded configuration
func New(log zerolog.Logger, cfg *domain.Config) *App {
	limiter := tmdb.NewLimiter(cfg.EnrichConcurrency)
	client := tmdb.NewClient(log, cfg)

	return &App{
		log:                 log,
		config:              cfg,
		watchlistRepo:       repository.NewFileRepository(log),
		scraper:             letterboxd.NewService(log, cfg),
		dedupeService:       dedupe.NewService(log),
		enricher:            tmdb.NewEnricher(log, cfg, client, limiter),
		notificationService: notification.NewService(log, cfg.DiscordWebhookURL),
	}
}

func (a *App) openDB() (*database.DB, error) {
	db, err := database.NewDB(a.config.DatabaseType, a.config.DatabaseDSN, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

// Sync runs one full watchlist synchronization
func (a *App) Sync(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			if notifyErr := a.notificationService.SendError(ctx, err); notifyErr != nil {
				a.log.Warn().Err(notifyErr).Msg("Failed to send error notification")
			}
		}
	}()

	if err := config.Validate(a.config); err != nil {
		return err
	}

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	svc := syncer.NewService(
		a.log,
		a.config,
		a.scraper,
		a.dedupeService,
		a.enricher,
		database.NewMovieRepo(a.log, db),
		database.NewProviderRepo(a.log, db),
		database.NewGenreRepo(a.log, db),
	)

	stats, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	if notifyErr := a.notificationService.SendSuccess(ctx, stats); notifyErr != nil {
		a.log.Warn().Err(notifyErr).Msg("Failed to send success notification")
	}

	return nil
}

// Migrate applies pending schema migrations and returns the resulting version
func (a *App) Migrate(ctx context.Context) (int, error) {
	db, err := a.openDB()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	version, err := db.SchemaVersion()
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}

	a.log.Info().Int("version", version).Str("driver", string(db.Driver)).Msg("Database schema is up to date")
	return version, nil
}

// Export writes the persisted watchlist with its genres and providers to path
func (a *App) Export(ctx context.Context, path string) (int, error) {
	db, err := a.openDB()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	movies, err := database.NewMovieRepo(a.log, db).GetAll(ctx)
	if err != nil {
		return 0, err
	}

	providers, err := database.NewProviderRepo(a.log, db).GetAll(ctx)
	if err != nil {
		return 0, err
	}

	genres, err := database.NewGenreRepo(a.log, db).GetAll(ctx)
	if err != nil {
		return 0, err
	}

	watchlist := buildWatchlist(movies, providers, genres)
	if err := a.watchlistRepo.Store(ctx, path, watchlist); err != nil {
		return 0, fmt.Errorf("failed to export watchlist: %w", err)
	}

	a.log.Info().Str("path", path).Int("movies", len(watchlist.Movies)).Msg("Exported watchlist")
	return len(watchlist.Movies), nil
}

// buildWatchlist joins movies with their edges, sorted by name then year
func buildWatchlist(movies []*domain.Movie, providers, genres []domain.Edge) *domain.Watchlist {
	providersByMovie := groupEdges(providers)
	genresByMovie := groupEdges(genres)

	w := &domain.Watchlist{Movies: make([]domain.MovieSnapshot, 0, len(movies))}
	for _, m := range movies {
		snapshot := domain.MovieSnapshot{
			Name:      m.Name,
			Year:      m.Year,
			PosterURL: m.PosterURL,
			Providers: providersByMovie[m.ID],
			Genres:    genresByMovie[m.ID],
		}
		if m.HasRuntime() {
			snapshot.Runtime = *m.Runtime
		}
		if snapshot.Providers == nil {
			snapshot.Providers = []string{}
		}
		if snapshot.Genres == nil {
			snapshot.Genres = []string{}
		}
		w.Movies = append(w.Movies, snapshot)
	}

	sort.SliceStable(w.Movies, func(i, j int) bool {
		if w.Movies[i].Name != w.Movies[j].Name {
			return w.Movies[i].Name < w.Movies[j].Name
		}
		return w.Movies[i].Year < w.Movies[j].Year
	})

	return w
}

func groupEdges(edges []domain.Edge) map[int64][]string {
	grouped := make(map[int64][]string)
	for _, e := range edges {
		grouped[e.MovieID] = append(grouped[e.MovieID], e.Name)
	}
	return grouped
}
