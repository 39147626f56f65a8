package dedupe

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/varoOP/watchlistdb/internal/domain"
)

type Service interface {
	CheckDupes(ctx context.Context, entries []domain.WatchlistEntry) (int, []domain.WatchlistEntry)
}

type service struct {
	log zerolog.Logger
}

func NewService(log zerolog.Logger) Service {
	return &service{
		log: log.With().Str("module", "dedupe").Logger(),
	}
}

// CheckDupes drops entries whose natural key was already seen. The first
// occurrence wins and the original order is kept.
func (s *service) CheckDupes(ctx context.Context, entries []domain.WatchlistEntry) (int, []domain.WatchlistEntry) {
	seen := make(map[domain.NaturalKey]struct{}, len(entries))
	deduped := make([]domain.WatchlistEntry, 0, len(entries))

	for _, entry := range entries {
		key := entry.Key()
		if _, found := seen[key]; found {
			s.log.Debug().Str("title", entry.Name).Int("year", entry.Year).Msg("Duplicate watchlist entry")
			continue
		}

		seen[key] = struct{}{}
		deduped = append(deduped, entry)
	}

	dupes := len(entries) - len(deduped)
	if dupes > 0 {
		s.log.Info().Int("dupe_count", dupes).Msg("Found duplicates")
	}

	return dupes, deduped
}
