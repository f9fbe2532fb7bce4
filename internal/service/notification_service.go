package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"brokerdesk/internal/domain"
)

// Mailer delivers a templated email
type Mailer interface {
	Send(ctx context.Context, to, template string, data map[string]any) error
}

// Publisher pushes realtime events to connected sessions
type Publisher interface {
	PublishToUser(userID uuid.UUID, event string, data any)
	PublishToAdmins(event string, data any)
}

// Message describes one notification to fan out across channels.
// Template is optional; email is skipped when it is empty.
type Message struct {
	Title        string
	Body         string
	Category     string
	Event        string
	Data         any
	Template     string
	TemplateData map[string]any
}

// NotificationService stores notifications and dispatches them to email and realtime channels
type NotificationService struct {
	notifications domain.NotificationRepository
	users         domain.UserRepository
	mailer        Mailer
	publisher     Publisher
}

// NewNotificationService creates a new NotificationService.
// mailer and publisher may be nil, in which case that channel is skipped.
func NewNotificationService(
	notifications domain.NotificationRepository,
	users domain.UserRepository,
	mailer Mailer,
	publisher Publisher,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		mailer:        mailer,
		publisher:     publisher,
	}
}

// NotifyUser records a notification for one user and fans it out. Failures are logged, never returned.
func (s *NotificationService) NotifyUser(ctx context.Context, user *domain.User, msg Message) {
	n := s.record(ctx, user.ID, msg)

	if s.publisher != nil {
		if msg.Event != "" {
			s.publisher.PublishToUser(user.ID, msg.Event, msg.Data)
		}
		if n != nil {
			s.publisher.PublishToUser(user.ID, domain.EventNotification, n)
		}
	}

	s.email(ctx, user, msg)
}

// NotifyAdmins records a notification for every admin and publishes the event to the admin room
func (s *NotificationService) NotifyAdmins(ctx context.Context, msg Message) {
	admins, err := s.users.ListAdmins(ctx)
	if err != nil {
		sideEffectFailures.WithLabelValues("notification").Inc()
		zap.L().Warn("Failed to list admins for notification", zap.String("title", msg.Title), zap.Error(err))
	}

	for _, admin := range admins {
		if n := s.record(ctx, admin.ID, msg); n != nil && s.publisher != nil {
			s.publisher.PublishToUser(admin.ID, domain.EventNotification, n)
		}
	}

	if s.publisher != nil && msg.Event != "" {
		s.publisher.PublishToAdmins(msg.Event, msg.Data)
	}
}

// Email sends a templated email without recording a notification
func (s *NotificationService) Email(ctx context.Context, user *domain.User, template string, data map[string]any) error {
	if s.mailer == nil {
		return nil
	}
	return s.mailer.Send(ctx, user.Email, template, withName(user, data))
}

func (s *NotificationService) record(ctx context.Context, userID uuid.UUID, msg Message) *domain.Notification {
	category := msg.Category
	if category == "" {
		category = domain.CategorySystem
	}

	n := &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     msg.Title,
		Message:   msg.Body,
		Category:  category,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		sideEffectFailures.WithLabelValues("notification").Inc()
		zap.L().Warn("Failed to create notification",
			zap.String("user_id", userID.String()),
			zap.String("title", msg.Title),
			zap.Error(err),
		)
		return nil
	}
	return n
}

func (s *NotificationService) email(ctx context.Context, user *domain.User, msg Message) {
	if msg.Template == "" || s.mailer == nil {
		return
	}
	if err := s.mailer.Send(ctx, user.Email, msg.Template, withName(user, msg.TemplateData)); err != nil {
		sideEffectFailures.WithLabelValues("email").Inc()
		zap.L().Warn("Failed to send email",
			zap.String("user_id", user.ID.String()),
			zap.String("template", msg.Template),
			zap.Error(err),
		)
	}
}

func withName(user *domain.User, data map[string]any) map[string]any {
	out := map[string]any{"Name": user.FullName()}
	if user.FullName() == "" {
		out["Name"] = user.Email
	}
	for k, v := range data {
		out[k] = v
	}
	return out
}

// List returns a recipient's notifications, newest first
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.notifications.ListByUser(ctx, userID, limit)
}

// UnreadCount counts a recipient's unread notifications
func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.notifications.CountUnread(ctx, userID)
}

// MarkRead marks one of the recipient's notifications read
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.notifications.MarkRead(ctx, id, userID)
}

// MarkAllRead marks all of the recipient's notifications read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notifications.MarkAllRead(ctx, userID)
}

// Delete removes one of the recipient's notifications
func (s *NotificationService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return s.notifications.Delete(ctx, id, userID)
}

// Clear removes every notification of the recipient
func (s *NotificationService) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notifications.DeleteAll(ctx, userID)
}

// PurgeRead removes read notifications older than retention
func (s *NotificationService) PurgeRead(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	removed, err := s.notifications.PurgeRead(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	notificationsPurged.Add(float64(removed))
	return removed, nil
}
