package dedupe

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/varoOP/watchlistdb/internal/domain"
)

func TestCheckDupes(t *testing.T) {
	svc := NewService(zerolog.Nop())

	entries := []domain.WatchlistEntry{
		{Name: "Heat", Year: 1995},
		{Name: "Alien", Year: 1979},
		{Name: "heat ", Year: 1995},
		{Name: "Heat", Year: 1986},
		{Name: "ALIEN", Year: 1979},
	}

	dupes, deduped := svc.CheckDupes(context.Background(), entries)
	if dupes != 2 {
		t.Fatalf("expected 2 duplicates, got %d", dupes)
	}

	want := []domain.WatchlistEntry{
		{Name: "Heat", Year: 1995},
		{Name: "Alien", Year: 1979},
		{Name: "Heat", Year: 1986},
	}
	if len(deduped) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), deduped)
	}
	for i := range want {
		if deduped[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, deduped[i], want[i])
		}
	}
}

func TestCheckDupesEmpty(t *testing.T) {
	svc := NewService(zerolog.Nop())

	dupes, deduped := svc.CheckDupes(context.Background(), nil)
	if dupes != 0 || len(deduped) != 0 {
		t.Fatalf("expected no entries, got %d dupes and %+v", dupes, deduped)
	}
}
