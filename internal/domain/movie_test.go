package domain

import "testing"

func TestKeyOf(t *testing.T) {
	if KeyOf("  The Matrix ", 1999) != KeyOf("the matrix", 1999) {
		t.Fatal("expected keys to match ignoring case and surrounding space")
	}
	if KeyOf("The Matrix", 1999) == KeyOf("The Matrix", 2021) {
		t.Fatal("expected different years to produce different keys")
	}
}

func TestApplyMiss(t *testing.T) {
	m := NewEnrichedMovie(WatchlistEntry{Name: "Unknown", Year: 2000}, nil)

	if m.Matched {
		t.Fatal("expected a miss")
	}
	if len(m.Providers) != 1 || m.Providers[0] != ProviderNotFound {
		t.Fatalf("expected provider sentinel, got %v", m.Providers)
	}
	if m.Genres == nil || len(m.Genres) != 0 {
		t.Fatalf("expected empty genres, got %v", m.Genres)
	}
	if m.PosterURL != DefaultPosterURL || m.Runtime != nil {
		t.Fatalf("unexpected miss %+v", m)
	}
}

func TestApplyEmptyProviders(t *testing.T) {
	runtime := 95
	m := NewEnrichedMovie(WatchlistEntry{Name: "Up", Year: 2009}, &Metadata{
		Runtime:   &runtime,
		Providers: []string{},
		Genres:    []string{"Animation"},
		PosterURL: "https://image.tmdb.org/t/p/w185/up.jpg",
	})

	if !m.Matched {
		t.Fatal("expected a match")
	}
	if len(m.Providers) != 1 || m.Providers[0] != ProviderNotFound {
		t.Fatalf("expected provider sentinel, got %v", m.Providers)
	}
	if len(m.Genres) != 1 || *m.Runtime != 95 || m.PosterURL != "https://image.tmdb.org/t/p/w185/up.jpg" {
		t.Fatalf("unexpected movie %+v", m)
	}
}

func TestMovieHasRuntime(t *testing.T) {
	zero, positive := 0, 120
	tests := []struct {
		runtime *int
		want    bool
	}{
		{nil, false},
		{&zero, false},
		{&positive, true},
	}

	for _, tt := range tests {
		m := &Movie{Runtime: tt.runtime}
		if got := m.HasRuntime(); got != tt.want {
			t.Errorf("HasRuntime() = %v, want %v", got, tt.want)
		}
	}
}
