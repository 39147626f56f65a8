package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/varoOP/watchlistdb/internal/domain"
)

func captureServer(t *testing.T, status int) (*httptest.Server, *discordWebhook) {
	t.Helper()

	received := &discordWebhook{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(received); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	return server, received
}

func TestSendSuccess(t *testing.T) {
	server, received := captureServer(t, http.StatusNoContent)

	svc := NewService(zerolog.Nop(), server.URL)
	stats := domain.SyncStatistics{
		Scraped:       12,
		Duplicates:    2,
		Enriched:      9,
		Misses:        1,
		Inserted:      4,
		RuntimeFilled: 1,
		Deleted:       3,
		ProviderEdges: 15,
		GenreEdges:    20,
		Duration:      3 * time.Second,
	}

	if err := svc.SendSuccess(context.Background(), stats); err != nil {
		t.Fatalf("SendSuccess returned error: %v", err)
	}

	if len(received.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(received.Embeds))
	}

	embed := received.Embeds[0]
	if embed.Color != 0x00ff00 {
		t.Fatalf("unexpected color %x", embed.Color)
	}
	if !strings.Contains(embed.Description, "Synced 10 movies") {
		t.Fatalf("unexpected description %q", embed.Description)
	}

	var movies string
	for _, f := range embed.Fields {
		if f.Name == "Movies" {
			movies = f.Value
		}
	}
	if movies != "4 inserted, 1 runtimes filled, 3 deleted" {
		t.Fatalf("unexpected movies field %q", movies)
	}
}

func TestSendError(t *testing.T) {
	server, received := captureServer(t, http.StatusOK)

	svc := NewService(zerolog.Nop(), server.URL)
	if err := svc.SendError(context.Background(), errors.New("upsert: boom")); err != nil {
		t.Fatalf("SendError returned error: %v", err)
	}

	if len(received.Embeds) != 1 || !strings.Contains(received.Embeds[0].Description, "upsert: boom") {
		t.Fatalf("unexpected payload %+v", received)
	}
}

func TestSendWebhookFailureStatus(t *testing.T) {
	server, _ := captureServer(t, http.StatusBadRequest)

	svc := NewDiscordService(zerolog.Nop(), server.URL)
	if err := svc.SendError(context.Background(), errors.New("x")); err == nil {
		t.Fatal("expected an error for a 400 response")
	}
}

func TestNoWebhookConfigured(t *testing.T) {
	svc := NewService(zerolog.Nop(), "")
	if err := svc.SendSuccess(context.Background(), domain.SyncStatistics{}); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}
