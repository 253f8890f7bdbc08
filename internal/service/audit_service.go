package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/userkit/user-service/internal/events"
)

// AuditService writes an audit trail of user lifecycle events.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserCreated, a.handleUserEvent)
	a.dispatcher.Subscribe(events.EventUserUpdated, a.handleUserEvent)
	a.dispatcher.Subscribe(events.EventUserDeleted, a.handleUserEvent)
}

func (a *AuditService) handleUserEvent(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("user_id", event.UserID),
		zap.String("actor", string(event.Actor)),
		zap.Time("at", event.Timestamp),
	}
	if event.Payload != nil {
		fields = append(fields, zap.Any("payload", event.Payload))
	}
	a.logger.Info("user changed", fields...)
	return nil
}
