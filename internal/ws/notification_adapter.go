package ws

import (
	"context"

	"github.com/google/uuid"
)

// notificationCreator — срез NotificationService, нужный хабу.
type notificationCreator interface {
	CreateNotificationForWS(ctx context.Context, userID uuid.UUID, event string, data interface{}) error
}

// NotificationServiceAdapter приводит NotificationService к интерфейсу
// NotificationSaver хаба.
type NotificationServiceAdapter struct {
	service notificationCreator
}

func NewNotificationServiceAdapter(service notificationCreator) *NotificationServiceAdapter {
	return &NotificationServiceAdapter{service: service}
}

// CreateNotification реализует NotificationSaver.
func (a *NotificationServiceAdapter) CreateNotification(ctx context.Context, userID uuid.UUID, event string, data interface{}) error {
	return a.service.CreateNotificationForWS(ctx, userID, event, data)
}
