package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNoMatch means TMDB returned nothing usable for a watchlist entry
	ErrNoMatch = errors.New("no tmdb match")

	// ErrNotFound is returned by store lookups that find no row
	ErrNotFound = errors.New("record not found")

	// ErrSourceUnavailable means a watchlist page could not be fetched after retries
	ErrSourceUnavailable = errors.New("watchlist source unavailable")

	// ErrEmptyWatchlist refuses to clear a populated store from an empty scrape
	ErrEmptyWatchlist = errors.New("watchlist is empty, set allow_empty_watchlist to clear the store")
)

// StorageError describes a failed store operation
type StorageError struct {
	Op      string
	Records int
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s (%d records): %v", e.Op, e.Records, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err with the operation name and affected record count
func NewStorageError(op string, records int, err error) *StorageError {
	return &StorageError{Op: op, Records: records, Err: err}
}
