package notification

import (
	"context"

	"go.uber.org/zap"

	"slotbook/utils"
)

// NotificationService delivers lifecycle messages to the two parties of a
// booking. Delivery is best-effort; callers never fail an operation over
// a notification error.
type NotificationService interface {
	NotifyClient(ctx context.Context, clientID, kind, subject, body string) error
	NotifyVendor(ctx context.Context, vendorID, kind, subject, body string) error
}

// LogNotificationService writes notifications to the structured log. It
// is the default sink; real transports (email, push) plug in behind the
// same interface.
type LogNotificationService struct{}

func NewLogNotificationService() *LogNotificationService {
	return &LogNotificationService{}
}

func (s *LogNotificationService) NotifyClient(ctx context.Context, clientID, kind, subject, body string) error {
	utils.GetLogger().Info("client notification",
		zap.String("clientID", clientID),
		zap.String("kind", kind),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}

func (s *LogNotificationService) NotifyVendor(ctx context.Context, vendorID, kind, subject, body string) error {
	utils.GetLogger().Info("vendor notification",
		zap.String("vendorID", vendorID),
		zap.String("kind", kind),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}
