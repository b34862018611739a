package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/darasa-app/darasa/core/liveclass"
)

type liveClassRepository struct {
	db *liveSessionTable
}

var _ liveclass.Repository = (*liveClassRepository)(nil) // interface compliance check

func NewLiveClassRepository(db *DB) liveclass.Repository {
	return &liveClassRepository{db: db.liveSession}
}

func (repo *liveClassRepository) CreateSession(ctx context.Context, sess liveclass.Session) (liveclass.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sess.ID = uuid.New().String()
	repo.db.table[sess.ID] = &sess
	return sess, nil
}

func (repo *liveClassRepository) GetSessionByID(ctx context.Context, id string) (liveclass.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sess, ok := repo.db.table[id]; ok {
		return *sess, nil
	}
	return liveclass.Session{}, liveclass.ErrNotFound
}

func (repo *liveClassRepository) FilterSessions(ctx context.Context, filter liveclass.QueryFilter) ([]liveclass.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var sessions []liveclass.Session
	for _, sess := range repo.db.table {
		if filter.CourseID != "" && sess.CourseID != filter.CourseID {
			continue
		}
		if filter.Status != "" && sess.Status != filter.Status {
			continue
		}
		sessions = append(sessions, *sess)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartsAt.Before(sessions[j].StartsAt) })
	return sessions, nil
}

func (repo *liveClassRepository) UpdateSessionStatus(ctx context.Context, id string, status liveclass.Status) (liveclass.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sess, ok := repo.db.table[id]
	if !ok {
		return liveclass.Session{}, liveclass.ErrNotFound
	}
	sess.Status = status
	sess.UpdatedAt = time.Now().UTC()
	return *sess, nil
}

func (repo *liveClassRepository) QueryStartingSessions(ctx context.Context, from, to time.Time) ([]liveclass.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var sessions []liveclass.Session
	for _, sess := range repo.db.table {
		if sess.Status != liveclass.StatusScheduled {
			continue
		}
		// [from, to)
		if sess.StartsAt.Before(from) || !sess.StartsAt.Before(to) {
			continue
		}
		sessions = append(sessions, *sess)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartsAt.Before(sessions[j].StartsAt) })
	return sessions, nil
}
