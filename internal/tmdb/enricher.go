package tmdb

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/watchlistdb/internal/domain"
)

const DefaultRegion = "US"

type Enricher interface {
	Enrich(ctx context.Context, entry domain.WatchlistEntry) (*domain.Metadata, error)
	EnrichAll(ctx context.Context, entries []domain.WatchlistEntry) []domain.EnrichedMovie
}

type enricher struct {
	log     zerolog.Logger
	client  *Client
	limiter *Limiter
	region  string
}

func NewEnricher(log zerolog.Logger, config *domain.Config, client *Client, limiter *Limiter) Enricher {
	region := config.TmdbRegion
	if region == "" {
		region = DefaultRegion
	}

	return &enricher{
		log:     log.With().Str("module", "enricher").Logger(),
		client:  client,
		limiter: limiter,
		region:  region,
	}
}

// EnrichAll enriches every entry concurrently, bounded by the limiter. The
// result at index i always belongs to entries[i].
func (e *enricher) EnrichAll(ctx context.Context, entries []domain.WatchlistEntry) []domain.EnrichedMovie {
	results := make([]domain.EnrichedMovie, len(entries))

	var wg sync.WaitGroup
	for i, entry := range entries {
		wg.Add(1)
		go func(i int, entry domain.WatchlistEntry) {
			defer wg.Done()

			meta, err := e.Enrich(ctx, entry)
			if err != nil {
				e.log.Warn().Err(err).Str("title", entry.Name).Int("year", entry.Year).Msg("No TMDB metadata found")
				meta = nil
			}

			results[i] = domain.NewEnrichedMovie(entry, meta)
		}(i, entry)
	}
	wg.Wait()

	matched := 0
	for _, r := range results {
		if r.Matched {
			matched++
		}
	}

	e.log.Info().
		Int("total", len(entries)).
		Int("matched", matched).
		Int("misses", len(entries)-matched).
		Int("concurrency", e.limiter.Capacity()).
		Msg("Enrichment complete")
	return results
}

// Enrich runs the lookup pipeline for a single entry while holding one
// limiter slot. Search and details failures abort the entry; provider and
// poster failures degrade.
func (e *enricher) Enrich(ctx context.Context, entry domain.WatchlistEntry) (*domain.Metadata, error) {
	if err := e.limiter.Acquire(ctx); err != nil {
		return nil, errors.Wrap(err, "waiting for enrichment slot")
	}
	defer e.limiter.Release()

	search, err := e.client.SearchMovie(ctx, entry.Name)
	if err != nil {
		return nil, errors.Wrap(err, "search")
	}

	match := bestMatch(entry.Name, search.Results)
	if match == nil {
		return nil, errors.Wrapf(domain.ErrNoMatch, "search %q", entry.Name)
	}

	details, err := e.client.MovieDetails(ctx, match.ID, "")
	if err != nil {
		return nil, errors.Wrap(err, "details")
	}

	meta := &domain.Metadata{
		Genres: genreNames(details.Genres),
	}
	if details.Runtime != nil && *details.Runtime > 0 {
		runtime := *details.Runtime
		meta.Runtime = &runtime
	}

	meta.Providers = e.providers(ctx, entry, match.ID)
	meta.PosterURL = e.poster(ctx, entry, match.ID)

	e.log.Debug().Str("title", entry.Name).Int("tmdb_id", match.ID).Msg("Enriched")
	return meta, nil
}

func (e *enricher) providers(ctx context.Context, entry domain.WatchlistEntry, id int) []string {
	resp, err := e.client.WatchProviders(ctx, id)
	if err != nil {
		e.log.Debug().Err(err).Str("title", entry.Name).Msg("watch providers unavailable")
		return []string{}
	}

	offers, ok := resp.Results[e.region]
	if !ok {
		return []string{}
	}

	seen := make(map[string]struct{}, len(offers.Flatrate))
	names := []string{}
	for _, p := range offers.Flatrate {
		if p.ProviderName == "" {
			continue
		}
		if _, dup := seen[p.ProviderName]; dup {
			continue
		}
		seen[p.ProviderName] = struct{}{}
		names = append(names, p.ProviderName)
	}

	return names
}

func (e *enricher) poster(ctx context.Context, entry domain.WatchlistEntry, id int) string {
	details, err := e.client.MovieDetails(ctx, id, "en")
	if err != nil {
		e.log.Debug().Err(err).Str("title", entry.Name).Msg("poster unavailable")
		return domain.DefaultPosterURL
	}

	if details.PosterPath == "" {
		return domain.DefaultPosterURL
	}

	return ImageBaseURL + details.PosterPath
}

// bestMatch prefers a case-insensitive exact title, otherwise the first result
func bestMatch(title string, results []SearchResult) *SearchResult {
	if len(results) == 0 {
		return nil
	}

	for i := range results {
		if strings.EqualFold(results[i].Title, title) {
			return &results[i]
		}
	}

	return &results[0]
}

func genreNames(genres []Genre) []string {
	names := make([]string, 0, len(genres))
	seen := make(map[string]struct{}, len(genres))
	for _, g := range genres {
		if _, dup := seen[g.Name]; dup || g.Name == "" {
			continue
		}
		seen[g.Name] = struct{}{}
		names = append(names, g.Name)
	}
	return names
}
