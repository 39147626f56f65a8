package database

import (
	"context"
	"database/sql"
)

const defaultChunkSize = 500

// querier is satisfied by both *sql.DB and *Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// RepoOption configures a repository
type RepoOption func(*repoOptions)

type repoOptions struct {
	chunkSize int
}

// WithChunkSize sets how many rows go into one batched statement
func WithChunkSize(size int) RepoOption {
	return func(o *repoOptions) {
		if size > 0 {
			o.chunkSize = size
		}
	}
}

func buildOptions(opts []RepoOption) repoOptions {
	o := repoOptions{chunkSize: defaultChunkSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// chunk partitions items into consecutive groups of at most size elements
func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = defaultChunkSize
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
