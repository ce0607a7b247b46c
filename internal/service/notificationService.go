package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	repository "github.com/bloodlink/backend/internal/database/postgres"
	"github.com/bloodlink/backend/internal/entity"
)

type notificationService struct {
	notificationRepo repository.NotificationRepository
	adminRepo        repository.AdminRepository
	queue            TaskPublisher
}

// NewNotificationService creates the notification sink. The sink is strictly
// best-effort: no caller's state transition may depend on it.
func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	adminRepo repository.AdminRepository,
	queue TaskPublisher,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		adminRepo:        adminRepo,
		queue:            queue,
	}
}

func (s *notificationService) Notify(ctx context.Context, role entity.Role, id int64, title, body string, requestID *int64) {
	s.NotifyMany(ctx, []*entity.Notification{{
		RecipientKey: role.RecipientKey(id),
		Title:        title,
		Body:         body,
		RequestID:    requestID,
	}})
}

// NotifyMany persists the rows and enqueues delivery tasks. Returns how many
// rows were stored; failures are logged and swallowed.
func (s *notificationService) NotifyMany(ctx context.Context, notifications []*entity.Notification) int {
	if len(notifications) == 0 {
		return 0
	}

	if err := s.notificationRepo.InsertBatch(ctx, notifications); err != nil {
		logrus.WithError(err).Warn("failed to store notifications")
		return 0
	}

	if s.queue != nil {
		for _, n := range notifications {
			task := &Task{
				ID:   fmt.Sprintf("deliver_%s", uuid.NewString()),
				Type: TaskTypeDeliverNotification,
				Data: map[string]interface{}{
					"notification_id": n.ID,
					"recipient_key":   n.RecipientKey,
					"title":           n.Title,
					"body":            n.Body,
				},
				MaxRetries: 3,
			}
			if err := s.queue.Publish(ctx, task); err != nil {
				logrus.WithError(err).WithField("recipient", n.RecipientKey).
					Warn("failed to enqueue notification delivery")
			}
		}
	}

	return len(notifications)
}

func (s *notificationService) NotifyAdmins(ctx context.Context, title, body string, requestID *int64) int {
	adminIDs, err := s.adminRepo.ListIDs(ctx)
	if err != nil {
		logrus.WithError(err).Warn("failed to list admins for notification")
		return 0
	}

	notifications := make([]*entity.Notification, 0, len(adminIDs))
	for _, id := range adminIDs {
		notifications = append(notifications, &entity.Notification{
			RecipientKey: entity.RoleAdmin.RecipientKey(id),
			Title:        title,
			Body:         body,
			RequestID:    requestID,
		})
	}

	return s.NotifyMany(ctx, notifications)
}

func (s *notificationService) List(ctx context.Context, recipientKey string, limit, offset int) ([]*entity.Notification, error) {
	return s.notificationRepo.ListByRecipient(ctx, recipientKey, limit, offset)
}

func (s *notificationService) MarkRead(ctx context.Context, id int64) error {
	return s.notificationRepo.MarkRead(ctx, id)
}
