package service

import (
	"context"

	"weddingplanner/internal/model"
	"weddingplanner/internal/repository"
	"weddingplanner/pkg/apperrors"

	"github.com/google/uuid"
)

type NotificationService interface {
	List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, page, limit int) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, recipientID uuid.UUID, id string) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	notifications, total, err := s.repo.ListByRecipient(ctx, recipientID, unreadOnly, page, limit)
	if err != nil {
		return nil, 0, apperrors.Store("list notifications", err)
	}
	return notifications, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, recipientID uuid.UUID, id string) error {
	notificationID, err := uuid.Parse(id)
	if err != nil {
		return apperrors.Validation("invalid notification id")
	}
	if err := s.repo.MarkRead(ctx, notificationID, recipientID); err != nil {
		return apperrors.Store("mark notification read", err)
	}
	return nil
}
