package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/darasa-app/darasa/core/notification"
)

type notificationRepository struct {
	db *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, notif notification.Notification) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	notif.ID = uuid.New().String()
	repo.db.table[notif.ID] = &notif
	return notif, nil
}

func (repo *notificationRepository) GetNotificationByID(ctx context.Context, id string) (notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if notif, ok := repo.db.table[id]; ok {
		return *notif, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) QueryUserNotifications(ctx context.Context, userID string) ([]notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var notifs []notification.Notification
	for _, notif := range repo.db.table {
		if notif.UserID == userID {
			notifs = append(notifs, *notif)
		}
	}
	// unread first, newest first within each group
	sort.Slice(notifs, func(i, j int) bool {
		if notifs[i].IsRead != notifs[j].IsRead {
			return !notifs[i].IsRead
		}
		return notifs[i].CreatedAt.After(notifs[j].CreatedAt)
	})
	return notifs, nil
}

func (repo *notificationRepository) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var cnt int
	for _, notif := range repo.db.table {
		if notif.UserID == userID && !notif.IsRead {
			cnt++
		}
	}
	return cnt, nil
}

func (repo *notificationRepository) NotificationExists(ctx context.Context, typ notification.Type, target string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, notif := range repo.db.table {
		if notif.Type == typ && notif.TargetLink == target {
			return true, nil
		}
	}
	return false, nil
}

func (repo *notificationRepository) MarkNotificationRead(ctx context.Context, id string) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	notif, ok := repo.db.table[id]
	if !ok {
		return notification.Notification{}, notification.ErrNotFound
	}
	notif.IsRead = true
	return *notif, nil
}

func (repo *notificationRepository) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, notif := range repo.db.table {
		if notif.UserID == userID {
			notif.IsRead = true
		}
	}
	return nil
}
