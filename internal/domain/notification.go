package domain

import "context"

// NotificationService defines the interface for notification services
type NotificationService interface {
	// SendSuccess sends a success notification with statistics
	SendSuccess(ctx context.Context, stats SyncStatistics) error

	// SendError sends an error notification with error details
	SendError(ctx context.Context, err error) error
}
