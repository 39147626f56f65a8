package letterboxd

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly"
	"github.com/gocolly/colly/extensions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/watchlistdb/internal/domain"
	"golang.org/x/net/html"
)

const (
	itemSelector   = "li[class*='griditem']"
	posterSelector = "div[data-component-class='LazyPoster']"
	nameAttribute  = "data-item-name"
)

// errEndOfList marks a page past the last one
var errEndOfList = errors.New("end of watchlist")

type Service interface {
	Scrape(ctx context.Context, watchlistURL string) ([]domain.WatchlistEntry, error)
}

type service struct {
	log        zerolog.Logger
	timeout    time.Duration
	retries    int
	retryDelay time.Duration
	maxPages   int
}

func NewService(log zerolog.Logger, config *domain.Config) Service {
	return &service{
		log:        log.With().Str("module", "letterboxd").Logger(),
		timeout:    config.RequestTimeout,
		retries:    config.ScrapeRetries,
		retryDelay: config.ScrapeRetryDelay,
		maxPages:   config.ScrapeMaxPages,
	}
}

// Scrape walks {watchlistURL}/page/{n}/ from page 1 until a page is empty or
// missing. Any other fetch failure that survives the retries aborts the scrape,
// and so does running past the page limit.
func (s *service) Scrape(ctx context.Context, watchlistURL string) ([]domain.WatchlistEntry, error) {
	watchlistURL = strings.TrimRight(watchlistURL, "/")
	s.log.Info().Str("url", watchlistURL).Msg("Scraping watchlist..")

	entries := []domain.WatchlistEntry{}
	for page := 1; ; page++ {
		// a truncated list would make the sync delete movies that are still listed
		if s.maxPages > 0 && page > s.maxPages {
			s.log.Error().Int("max_pages", s.maxPages).Msg("Reached page limit before end of watchlist")
			return nil, errors.Wrapf(domain.ErrSourceUnavailable, "page limit %d reached before end of watchlist", s.maxPages)
		}

		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "scrape cancelled")
		}

		pageURL := fmt.Sprintf("%s/page/%d/", watchlistURL, page)
		found, err := s.fetchPage(ctx, pageURL)
		if errors.Is(err, errEndOfList) {
			s.log.Debug().Int("page", page).Msg("Page not found, end of watchlist")
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "page %d", page)
		}

		if len(found) == 0 {
			s.log.Debug().Int("page", page).Msg("Empty page, end of watchlist")
			break
		}

		s.log.Debug().Int("page", page).Int("count", len(found)).Msg("Parsed page")
		entries = append(entries, found...)
	}

	s.log.Info().Int("count", len(entries)).Msg("Scraped watchlist")
	return entries, nil
}

func (s *service) fetchPage(ctx context.Context, pageURL string) ([]domain.WatchlistEntry, error) {
	var lastErr error

	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), "scrape cancelled")
			case <-time.After(s.retryDelay * time.Duration(attempt)):
			}
		}

		entries, status, err := s.visit(pageURL)
		if err == nil {
			return entries, nil
		}

		if status == http.StatusNotFound {
			return nil, errEndOfList
		}

		lastErr = err
		s.log.Warn().
			Err(err).
			Str("url", pageURL).
			Int("status", status).
			Int("attempt", attempt+1).
			Msg("Failed to fetch watchlist page")
	}

	return nil, errors.Wrapf(domain.ErrSourceUnavailable, "%s: %v", pageURL, lastErr)
}

func (s *service) visit(pageURL string) ([]domain.WatchlistEntry, int, error) {
	cc := colly.NewCollector(
		colly.AllowURLRevisit(),
	)

	if s.timeout > 0 {
		cc.SetRequestTimeout(s.timeout)
	}

	extensions.RandomUserAgent(cc)

	var (
		entries []domain.WatchlistEntry
		status  int
	)

	cc.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Referer", "https://letterboxd.com/")
		s.log.Debug().Str("url", r.URL.String()).Msg("visiting")
	})

	cc.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
	})

	cc.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	cc.OnHTML(itemSelector, func(e *colly.HTMLElement) {
		name := e.ChildAttr(posterSelector, nameAttribute)
		if name == "" {
			return
		}
		entries = append(entries, ParseItemName(name))
	})

	if err := cc.Visit(pageURL); err != nil {
		return nil, status, err
	}

	return entries, status, nil
}

// ParseItemName splits a "Title (Year)" poster name on its last opening
// parenthesis. A year that does not parse becomes 0.
func ParseItemName(raw string) domain.WatchlistEntry {
	decoded := html.UnescapeString(raw)

	idx := strings.LastIndex(decoded, "(")
	if idx <= 0 {
		return domain.WatchlistEntry{Name: strings.TrimSpace(decoded)}
	}

	year, err := strconv.Atoi(strings.TrimSpace(strings.TrimRight(decoded[idx+1:], ")")))
	if err != nil {
		year = 0
	}

	return domain.WatchlistEntry{
		Name: strings.TrimSpace(decoded[:idx]),
		Year: year,
	}
}
