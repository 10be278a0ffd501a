// Package notify fans one event out to every delivery channel the portal
// supports: the in-app notification record, FCM push, email and the
// websocket hub. The whole package is best-effort: every failure is logged
// and swallowed, and Notify never reports an error to its caller, so a dead
// mail relay can never fail a quote or invoice operation.
package notify

import (
	"context"
	"encoding/json"

	"weddingplanner/internal/model"
	"weddingplanner/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is one user-facing notification.
type Event struct {
	Title string
	Body  string
	Link  string
	// Email overrides the recipient's account address when set. Quote
	// notifications use it so the denormalized client email on the quote
	// wins over a possibly stale account record.
	Email string
	Meta  map[string]string
}

// Notifier is what the lifecycle services depend on. The signature has no
// error on purpose.
type Notifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, ev Event)
}

type pushSender interface {
	Send(ctx context.Context, token, title, body, link string) error
}

type mailSender interface {
	Send(to, subject, body string) error
}

type socketSender interface {
	SendToUser(userID string, message []byte)
}

// Service is the production fan-out. Any channel may be nil; a nil channel
// is simply skipped.
type Service struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	pusher        pushSender
	mailer        mailSender
	hub           socketSender
	logger        *zap.Logger
}

func NewService(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	pusher pushSender,
	mailer mailSender,
	hub socketSender,
	logger *zap.Logger,
) *Service {
	return &Service{
		notifications: notifications,
		users:         users,
		pusher:        pusher,
		mailer:        mailer,
		hub:           hub,
		logger:        logger,
	}
}

func (s *Service) Notify(ctx context.Context, recipientID uuid.UUID, ev Event) {
	n := &model.Notification{
		RecipientID: recipientID,
		Title:       ev.Title,
		Body:        ev.Body,
		Link:        ev.Link,
	}
	if len(ev.Meta) > 0 {
		if raw, err := json.Marshal(ev.Meta); err == nil {
			n.Meta = raw
		}
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		s.logger.Warn("notification record write failed",
			zap.String("recipient_id", recipientID.String()),
			zap.Error(err))
	}

	var user *model.User
	if s.pusher != nil || (s.mailer != nil && ev.Email == "") {
		var err error
		user, err = s.users.GetByID(ctx, recipientID)
		if err != nil {
			s.logger.Warn("notification recipient lookup failed",
				zap.String("recipient_id", recipientID.String()),
				zap.Error(err))
		}
	}

	if s.pusher != nil && user != nil && user.DeviceToken != "" {
		if err := s.pusher.Send(ctx, user.DeviceToken, ev.Title, ev.Body, ev.Link); err != nil {
			s.logger.Warn("push delivery failed",
				zap.String("recipient_id", recipientID.String()),
				zap.Error(err))
		}
	}

	if s.mailer != nil {
		to := ev.Email
		if to == "" && user != nil {
			to = user.Email
		}
		if to != "" {
			if err := s.mailer.Send(to, ev.Title, ev.Body); err != nil {
				s.logger.Warn("email delivery failed",
					zap.String("to", to),
					zap.Error(err))
			}
		}
	}

	if s.hub != nil {
		payload, err := json.Marshal(map[string]interface{}{
			"type":         "notification",
			"id":           n.ID,
			"recipient_id": recipientID,
			"title":        ev.Title,
			"body":         ev.Body,
			"link":         ev.Link,
		})
		if err == nil {
			s.hub.SendToUser(recipientID.String(), payload)
		}
	}
}
