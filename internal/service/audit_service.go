package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/fleet-auth/internal/events"
)

// AuditService writes issuance and denial events to the structured log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTokenIssued, a.handle)
	a.dispatcher.Subscribe(events.EventLoginRejected, a.handle)
	a.dispatcher.Subscribe(events.EventAccessDenied, a.handle)
}

func (a *AuditService) handle(_ context.Context, event events.Event) error {
	a.logger.Info("audit",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("service", event.Service),
		zap.String("subject", event.Subject),
		zap.String("role", event.Role),
		zap.String("reason", event.Reason),
		zap.String("request_id", event.RequestID),
		zap.Time("timestamp", event.Timestamp),
	)
	return nil
}
