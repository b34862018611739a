package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/notification"
)

type notificationRow struct {
	ID         string      `db:"id"`
	UserID     string      `db:"user_id"`
	Title      null.String `db:"title"`
	Message    null.String `db:"message"`
	Type       string      `db:"type"`
	TargetLink null.String `db:"target_link"`
	Priority   string      `db:"priority"`
	IsRead     bool        `db:"is_read"`
	CreatedAt  null.Time   `db:"created_at"`
}

func (r notificationRow) toNotification() notification.Notification {
	return notification.Notification{
		ID:         r.ID,
		UserID:     r.UserID,
		Title:      r.Title.String,
		Message:    r.Message.String,
		Type:       notification.Type(r.Type),
		TargetLink: r.TargetLink.String,
		Priority:   notification.Priority(r.Priority),
		IsRead:     r.IsRead,
		CreatedAt:  r.CreatedAt.Time,
	}
}

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo notificationRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return notification.ErrNotFound
	}
	return core.NewPersistenceError(err, msg)
}

func (repo notificationRepository) CreateNotification(ctx context.Context, notif notification.Notification) (notification.Notification, error) {
	notif.ID = uuid.New().String()
	row := notificationRow{
		ID:         notif.ID,
		UserID:     notif.UserID,
		Title:      null.NewString(notif.Title, notif.Title != ""),
		Message:    null.NewString(notif.Message, notif.Message != ""),
		Type:       string(notif.Type),
		TargetLink: null.NewString(notif.TargetLink, notif.TargetLink != ""),
		Priority:   string(notif.Priority),
		IsRead:     notif.IsRead,
		CreatedAt:  null.TimeFrom(notif.CreatedAt.UTC()),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO notification (id, user_id, title, message, type, target_link, priority, is_read, created_at)
		VALUES (:id, :user_id, :title, :message, :type, :target_link, :priority, :is_read, :created_at)`,
		row)
	if err != nil {
		return notification.Notification{}, core.NewPersistenceError(err, "inserting notification")
	}
	return notif, nil
}

func (repo notificationRepository) GetNotificationByID(ctx context.Context, id string) (notification.Notification, error) {
	if _, err := uuid.Parse(id); err != nil {
		return notification.Notification{}, notification.ErrNotFound
	}
	var row notificationRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM notification WHERE id = $1`, id); err != nil {
		return notification.Notification{}, repo.trapNoRowsErr(err, "finding notification by ID")
	}
	return row.toNotification(), nil
}

// unread first, newest first within each group
func (repo notificationRepository) QueryUserNotifications(ctx context.Context, userID string) ([]notification.Notification, error) {
	var rows []notificationRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM notification
		WHERE user_id = $1
		ORDER BY is_read, created_at DESC`,
		userID)
	if err != nil {
		return nil, core.NewPersistenceError(err, "querying user notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		notifs = append(notifs, r.toNotification())
	}
	return notifs, nil
}

func (repo notificationRepository) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var cnt int
	err := repo.db.GetContext(ctx, &cnt, `SELECT COUNT(*) FROM notification WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, core.NewPersistenceError(err, "counting unread notifications")
	}
	return cnt, nil
}

func (repo notificationRepository) NotificationExists(ctx context.Context, typ notification.Type, target string) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM notification WHERE type = $1 AND target_link = $2)`,
		string(typ), target)
	if err != nil {
		return false, core.NewPersistenceError(err, "checking notification existence")
	}
	return exists, nil
}

func (repo notificationRepository) MarkNotificationRead(ctx context.Context, id string) (notification.Notification, error) {
	var row notificationRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE notification SET is_read = TRUE
		WHERE id = $1
		RETURNING *`,
		id)
	if err != nil {
		return notification.Notification{}, repo.trapNoRowsErr(err, "marking notification read")
	}
	return row.toNotification(), nil
}

func (repo notificationRepository) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := repo.db.ExecContext(ctx, `UPDATE notification SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return core.NewPersistenceError(err, "marking all notifications read")
	}
	return nil
}
