package domain

import (
	"fmt"
	"strings"
)

const (
	// ProviderNotFound is stored as the only provider when no flatrate offer exists
	ProviderNotFound = "NOT FOUND"

	// DefaultPosterURL is used when TMDB has no poster for a title
	DefaultPosterURL = "https://s.ltrbxd.com/static/img/empty-poster-125-AiuBHVCI.png"
)

// WatchlistEntry is a single (title, year) tuple scraped from the watchlist
type WatchlistEntry struct {
	Name string `json:"name"`
	Year int    `json:"year"`
}

func (e WatchlistEntry) Key() NaturalKey {
	return KeyOf(e.Name, e.Year)
}

func (e WatchlistEntry) String() string {
	return fmt.Sprintf("%s (%d)", e.Name, e.Year)
}

// Metadata is what the enricher found for one entry
type Metadata struct {
	Runtime   *int
	PosterURL string
	Providers []string
	Genres    []string
}

// EnrichedMovie is a watchlist entry together with its TMDB metadata
type EnrichedMovie struct {
	WatchlistEntry
	Runtime   *int     `json:"runtime,omitempty"`
	PosterURL string   `json:"posterUrl"`
	Providers []string `json:"providers"`
	Genres    []string `json:"genres"`
	Matched   bool     `json:"-"`
}

// NewEnrichedMovie builds an EnrichedMovie from an entry and an optional enrichment result
func NewEnrichedMovie(entry WatchlistEntry, meta *Metadata) EnrichedMovie {
	m := EnrichedMovie{WatchlistEntry: entry}
	m.Apply(meta)
	return m
}

// Apply copies meta onto the movie. A nil meta is an enrichment miss.
// Providers are never left empty: the ProviderNotFound sentinel takes their place.
func (m *EnrichedMovie) Apply(meta *Metadata) {
	m.Matched = meta != nil
	if meta == nil {
		m.Runtime = nil
		m.PosterURL = DefaultPosterURL
		m.Providers = []string{ProviderNotFound}
		m.Genres = []string{}
		return
	}

	m.Runtime = meta.Runtime
	m.PosterURL = meta.PosterURL
	if m.PosterURL == "" {
		m.PosterURL = DefaultPosterURL
	}

	if len(meta.Providers) > 0 {
		m.Providers = meta.Providers
	} else {
		m.Providers = []string{ProviderNotFound}
	}

	if meta.Genres != nil {
		m.Genres = meta.Genres
	} else {
		m.Genres = []string{}
	}
}

// Movie is a persisted watchlist movie
type Movie struct {
	ID        int64  `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Year      int    `json:"year" yaml:"year"`
	Runtime   *int   `json:"runtime,omitempty" yaml:"runtime,omitempty"`
	PosterURL string `json:"posterUrl" yaml:"posterUrl"`
}

func (m *Movie) Key() NaturalKey {
	return KeyOf(m.Name, m.Year)
}

// HasRuntime reports whether the stored runtime is already filled
func (m *Movie) HasRuntime() bool {
	return m.Runtime != nil && *m.Runtime > 0
}

// Edge links a movie to a genre or provider name
type Edge struct {
	ID      int64
	MovieID int64
	Name    string
}

// NaturalKey identifies a movie across scrape and store
type NaturalKey struct {
	Name string
	Year int
}

// KeyOf normalizes name and year into a case-insensitive natural key
func KeyOf(name string, year int) NaturalKey {
	return NaturalKey{
		Name: strings.ToLower(strings.TrimSpace(name)),
		Year: year,
	}
}

func (k NaturalKey) String() string {
	return fmt.Sprintf("%s_%d", k.Name, k.Year)
}

// MovieSnapshot is the exported view of a persisted movie with its relations
type MovieSnapshot struct {
	Name      string   `json:"name" yaml:"name"`
	Year      int      `json:"year" yaml:"year"`
	Runtime   int      `json:"runtime,omitempty" yaml:"runtime,omitempty"`
	PosterURL string   `json:"posterUrl" yaml:"posterUrl"`
	Providers []string `json:"providers" yaml:"providers"`
	Genres    []string `json:"genres" yaml:"genres"`
}

type Watchlist struct {
	Movies []MovieSnapshot `json:"movies" yaml:"movies"`
}
