package domain

import (
	"context"
)

// MovieRepo is the batched store for persisted watchlist movies
type MovieRepo interface {
	GetAll(ctx context.Context) ([]*Movie, error)
	FindByKey(ctx context.Context, name string, year int) (*Movie, error)
	Upsert(ctx context.Context, movies []EnrichedMovie) (UpsertResult, error)
	BulkInsert(ctx context.Context, movies []*Movie) (WriteResult, error)
	BulkDelete(ctx context.Context, movies []*Movie) (WriteResult, error)
	FillRuntime(ctx context.Context, id int64, runtime int) (bool, error)
}

// EdgeRepo stores genre or provider edges, which are replaced wholesale every sync
type EdgeRepo interface {
	GetAll(ctx context.Context) ([]Edge, error)
	BulkInsert(ctx context.Context, edges []Edge) (WriteResult, error)
	Truncate(ctx context.Context) (WriteResult, error)
}

// WatchlistRepository reads and writes exported watchlist snapshots
type WatchlistRepository interface {
	Get(ctx context.Context, path string) (*Watchlist, error)
	Store(ctx context.Context, path string, watchlist *Watchlist) error
}
