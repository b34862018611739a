package notification

import (
	"context"
	"errors"
	"time"
)

var (
	// errors
	ErrNotFound = errors.New("notification not found")
	ErrNotOwner = errors.New("notification belongs to another user")
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, notif Notification) (Notification, error)
		GetNotificationByID(ctx context.Context, id string) (Notification, error)
		// QueryUserNotifications returns a user's notifications, unread first,
		// newest first within each group.
		QueryUserNotifications(ctx context.Context, userID string) ([]Notification, error)
		CountUnreadNotifications(ctx context.Context, userID string) (int, error)
		// NotificationExists reports whether any notification of this type
		// points at this target, regardless of the owning user.
		NotificationExists(ctx context.Context, typ Type, target string) (bool, error)
		MarkNotificationRead(ctx context.Context, id string) (Notification, error)
		MarkAllNotificationsRead(ctx context.Context, userID string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, notif Notification) (Notification, error) {
	if notif.Priority == "" {
		notif.Priority = PriorityNormal
	}
	notif.IsRead = false
	notif.CreatedAt = time.Now().UTC()
	return svc.repo.CreateNotification(ctx, notif)
}

func (svc *Service) QueryByUser(ctx context.Context, userID string) ([]Notification, error) {
	return svc.repo.QueryUserNotifications(ctx, userID)
}

func (svc *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return svc.repo.CountUnreadNotifications(ctx, userID)
}

func (svc *Service) ExistsForTarget(ctx context.Context, typ Type, target string) (bool, error) {
	return svc.repo.NotificationExists(ctx, typ, target)
}

// MarkRead flips the read flag; only the owning user may do so.
func (svc *Service) MarkRead(ctx context.Context, id, userID string) (Notification, error) {
	notif, err := svc.repo.GetNotificationByID(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if notif.UserID != userID {
		return Notification{}, ErrNotOwner
	}
	if notif.IsRead {
		return notif, nil
	}
	return svc.repo.MarkNotificationRead(ctx, id)
}

func (svc *Service) MarkAllRead(ctx context.Context, userID string) error {
	return svc.repo.MarkAllNotificationsRead(ctx, userID)
}
