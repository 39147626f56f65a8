package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/watchlistdb/internal/domain"
)

// DiscordService implements NotificationService for Discord webhooks
type DiscordService struct {
	log        zerolog.Logger
	webhookURL string
	httpClient *http.Client
}

// NewDiscordService creates a new Discord notification service
func NewDiscordService(log zerolog.Logger, webhookURL string) *DiscordService {
	return &DiscordService{
		log:        log.With().Str("module", "notification").Str("type", "discord").Logger(),
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendSuccess sends a success notification with the sync statistics
func (s *DiscordService) SendSuccess(ctx context.Context, stats domain.SyncStatistics) error {
	if s.webhookURL == "" {
		return nil
	}

	embed := discordEmbed{
		Title:       "Watchlist Sync Completed",
		Description: fmt.Sprintf("Synced %d movies in %s", stats.Scraped-stats.Duplicates, stats.Duration.Round(time.Second)),
		Color:       0x00ff00, // Green
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []discordField{
			{
				Name:   "Scraped",
				Value:  fmt.Sprintf("%d (%d duplicates)", stats.Scraped, stats.Duplicates),
				Inline: true,
			},
			{
				Name:   "Enriched",
				Value:  fmt.Sprintf("%d matched, %d misses", stats.Enriched, stats.Misses),
				Inline: true,
			},
			{
				Name:   "Movies",
				Value:  fmt.Sprintf("%d inserted, %d runtimes filled, %d deleted", stats.Inserted, stats.RuntimeFilled, stats.Deleted),
				Inline: false,
			},
			{
				Name:   "Relations",
				Value:  fmt.Sprintf("%d providers, %d genres", stats.ProviderEdges, stats.GenreEdges),
				Inline: false,
			},
		},
	}

	return s.sendWebhook(ctx, discordWebhook{Embeds: []discordEmbed{embed}})
}

// SendError sends an error notification with error details
func (s *DiscordService) SendError(ctx context.Context, err error) error {
	if s.webhookURL == "" {
		return nil
	}

	embed := discordEmbed{
		Title:       "Watchlist Sync Failed",
		Description: fmt.Sprintf("Sync failed with error:\n```%s```", err.Error()),
		Color:       0xff0000, // Red
		Timestamp:   time.Now().Format(time.RFC3339),
	}

	return s.sendWebhook(ctx, discordWebhook{Embeds: []discordEmbed{embed}})
}

func (s *DiscordService) sendWebhook(ctx context.Context, payload discordWebhook) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshal webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return errors.Wrap(err, "failed to create webhook request")
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send webhook request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}

	s.log.Debug().Msg("Discord notification sent successfully")
	return nil
}

type discordWebhook struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Fields      []discordField `json:"fields,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}
