package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/liveclass"
)

type sessionRow struct {
	ID              string      `db:"id"`
	CourseID        string      `db:"course_id"`
	Title           null.String `db:"title"`
	Description     null.String `db:"description"`
	StartsAt        time.Time   `db:"starts_at"`
	DurationSeconds int64       `db:"duration_seconds"`
	Status          string      `db:"status"`
	MeetingURL      null.String `db:"meeting_url"`
	CreatedAt       null.Time   `db:"created_at"`
	UpdatedAt       null.Time   `db:"updated_at"`
}

func (r sessionRow) toSession() liveclass.Session {
	return liveclass.Session{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Title:       r.Title.String,
		Description: r.Description.String,
		StartsAt:    r.StartsAt,
		Duration:    time.Duration(r.DurationSeconds) * time.Second,
		Status:      liveclass.Status(r.Status),
		MeetingURL:  r.MeetingURL.String,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
}

func newSessionRow(sess liveclass.Session) sessionRow {
	return sessionRow{
		ID:              sess.ID,
		CourseID:        sess.CourseID,
		Title:           null.NewString(sess.Title, sess.Title != ""),
		Description:     null.NewString(sess.Description, sess.Description != ""),
		StartsAt:        sess.StartsAt.UTC(),
		DurationSeconds: int64(sess.Duration / time.Second),
		Status:          string(sess.Status),
		MeetingURL:      null.NewString(sess.MeetingURL, sess.MeetingURL != ""),
		CreatedAt:       null.NewTime(sess.CreatedAt.UTC(), !sess.CreatedAt.IsZero()),
		UpdatedAt:       null.NewTime(sess.UpdatedAt.UTC(), !sess.UpdatedAt.IsZero()),
	}
}

type liveClassRepository struct {
	db *sqlx.DB
}

var _ liveclass.Repository = (*liveClassRepository)(nil) // interface compliance check

func NewLiveClassRepository(db *sqlx.DB) *liveClassRepository {
	return &liveClassRepository{db: db}
}

func (repo liveClassRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return liveclass.ErrNotFound
	}
	return core.NewPersistenceError(err, msg)
}

func (repo liveClassRepository) CreateSession(ctx context.Context, sess liveclass.Session) (liveclass.Session, error) {
	sess.ID = uuid.New().String()
	row := newSessionRow(sess)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO live_session (id, course_id, title, description, starts_at, duration_seconds, status, meeting_url, created_at, updated_at)
		VALUES (:id, :course_id, :title, :description, :starts_at, :duration_seconds, :status, :meeting_url, :created_at, :updated_at)`,
		row)
	if err != nil {
		return liveclass.Session{}, core.NewPersistenceError(err, "inserting live session")
	}
	return row.toSession(), nil
}

func (repo liveClassRepository) GetSessionByID(ctx context.Context, id string) (liveclass.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return liveclass.Session{}, liveclass.ErrNotFound
	}
	var row sessionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM live_session WHERE id = $1`, id); err != nil {
		return liveclass.Session{}, repo.trapNoRowsErr(err, "finding live session by ID")
	}
	return row.toSession(), nil
}

func (repo liveClassRepository) FilterSessions(ctx context.Context, filter liveclass.QueryFilter) ([]liveclass.Session, error) {
	var conds []string
	var args []interface{}
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CourseID != "" {
		conds = append(conds, "course_id = "+arg(filter.CourseID))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(string(filter.Status)))
	}

	q := `SELECT * FROM live_session`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY starts_at"

	var rows []sessionRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, core.NewPersistenceError(err, "filtering live sessions")
	}
	return repo.toSessions(rows), nil
}

func (repo liveClassRepository) UpdateSessionStatus(ctx context.Context, id string, status liveclass.Status) (liveclass.Session, error) {
	var row sessionRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE live_session SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING *`,
		string(status), id)
	if err != nil {
		return liveclass.Session{}, repo.trapNoRowsErr(err, "updating live session status")
	}
	return row.toSession(), nil
}

// Scheduled sessions with starts_at in [from, to).
func (repo liveClassRepository) QueryStartingSessions(ctx context.Context, from, to time.Time) ([]liveclass.Session, error) {
	var rows []sessionRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM live_session
		WHERE status = $1 AND starts_at >= $2 AND starts_at < $3
		ORDER BY starts_at`,
		string(liveclass.StatusScheduled), from.UTC(), to.UTC())
	if err != nil {
		return nil, core.NewPersistenceError(err, "querying starting live sessions")
	}
	return repo.toSessions(rows), nil
}

func (repo liveClassRepository) toSessions(rows []sessionRow) []liveclass.Session {
	sessions := make([]liveclass.Session, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, r.toSession())
	}
	return sessions
}
