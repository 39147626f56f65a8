package domain

import "time"

// WriteResult is returned by every store write. It is a value, never shared between calls.
type WriteResult struct {
	Op         string
	Records    int64
	Statements int
}

// UpsertResult reports what an upsert did per candidate
type UpsertResult struct {
	Inserted      int
	RuntimeFilled int
	Unchanged     int
}

// SyncStatistics holds the final statistics for a sync run
type SyncStatistics struct {
	Scraped       int
	Duplicates    int
	Enriched      int
	Misses        int
	Inserted      int
	RuntimeFilled int
	Deleted       int
	ProviderEdges int
	GenreEdges    int
	Duration      time.Duration
}
