package notification

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/watchlistdb/internal/domain"
)

// Service fans a notification out to every configured channel. A failing
// channel does not stop the others; the first error is returned.
type Service struct {
	log      zerolog.Logger
	channels []domain.NotificationService
}

func NewService(log zerolog.Logger, webhookURL string) domain.NotificationService {
	s := &Service{
		log: log.With().Str("module", "notification").Logger(),
	}

	if webhookURL != "" {
		s.channels = append(s.channels, NewDiscordService(log, webhookURL))
	}

	return s
}

func (s *Service) SendSuccess(ctx context.Context, stats domain.SyncStatistics) error {
	return s.each(func(c domain.NotificationService) error {
		return c.SendSuccess(ctx, stats)
	})
}

func (s *Service) SendError(ctx context.Context, err error) error {
	return s.each(func(c domain.NotificationService) error {
		return c.SendError(ctx, err)
	})
}

func (s *Service) each(send func(domain.NotificationService) error) error {
	var first error
	for _, c := range s.channels {
		if err := send(c); err != nil {
			s.log.Warn().Err(err).Msg("failed to send notification")
			if first == nil {
				first = errors.Wrap(err, "notification")
			}
		}
	}
	return first
}
