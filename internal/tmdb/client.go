package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/watchlistdb/internal/domain"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.themoviedb.org/3"
	ImageBaseURL   = "https://image.tmdb.org/t/p/w185"
)

// StatusError is returned for any non-2xx API response
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status code %d", e.Endpoint, e.StatusCode)
}

type SearchResult struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	PosterPath  string `json:"poster_path"`
}

type SearchResponse struct {
	Page         int            `json:"page"`
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type MovieDetails struct {
	ID         int     `json:"id"`
	Title      string  `json:"title"`
	Runtime    *int    `json:"runtime"`
	Genres     []Genre `json:"genres"`
	PosterPath string  `json:"poster_path"`
}

type Provider struct {
	ProviderID   int    `json:"provider_id"`
	ProviderName string `json:"provider_name"`
}

type RegionOffers struct {
	Link     string     `json:"link"`
	Flatrate []Provider `json:"flatrate"`
	Rent     []Provider `json:"rent"`
	Buy      []Provider `json:"buy"`
}

type WatchProvidersResponse struct {
	ID      int                     `json:"id"`
	Results map[string]RegionOffers `json:"results"`
}

// Client is a thin TMDB v3 client authenticated with a bearer token
type Client struct {
	log     zerolog.Logger
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+t.token)
	r.Header.Set("Accept", "application/json")
	return t.base.RoundTrip(r)
}

func NewClient(log zerolog.Logger, config *domain.Config) *Client {
	baseURL := config.TmdbBaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	token := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(config.TmdbApiKey), "Bearer "))

	c := &Client{
		log:     log.With().Str("module", "tmdb").Logger(),
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   config.RequestTimeout,
			Transport: &bearerTransport{token: token, base: http.DefaultTransport},
		},
	}

	if config.TmdbRequestsPerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(config.TmdbRequestsPerSec), 1)
	}

	return c
}

// SearchMovie runs search/movie for a title
func (c *Client) SearchMovie(ctx context.Context, title string) (*SearchResponse, error) {
	query := url.Values{}
	query.Set("query", title)

	resp := &SearchResponse{}
	if err := c.get(ctx, "search/movie", query, resp); err != nil {
		return nil, err
	}

	return resp, nil
}

// MovieDetails fetches movie/{id}. An empty language uses the API default.
func (c *Client) MovieDetails(ctx context.Context, id int, language string) (*MovieDetails, error) {
	query := url.Values{}
	if language != "" {
		query.Set("language", language)
	}

	resp := &MovieDetails{}
	if err := c.get(ctx, fmt.Sprintf("movie/%d", id), query, resp); err != nil {
		return nil, err
	}

	return resp, nil
}

// WatchProviders fetches movie/{id}/watch/providers
func (c *Client) WatchProviders(ctx context.Context, id int) (*WatchProvidersResponse, error) {
	resp := &WatchProvidersResponse{}
	if err := c.get(ctx, fmt.Sprintf("movie/%d/watch/providers", id), nil, resp); err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, v interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "rate limiter")
		}
	}

	target := c.baseURL + "/" + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to fetch %s", endpoint)
	}
	defer resp.Body.Close()

	c.log.Trace().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("tmdb request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrapf(err, "failed to unmarshal %s response", endpoint)
	}

	return nil
}
