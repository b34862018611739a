package liveclass

import (
	"context"
	"errors"
	"time"

	"github.com/darasa-app/darasa/core/course"
)

var (
	// errors
	ErrNotFound          = errors.New("live session not found")
	ErrInvalidTransition = errors.New("invalid session status transition")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, sess Session) (Session, error)
		GetSessionByID(ctx context.Context, id string) (Session, error)
		FilterSessions(ctx context.Context, filter QueryFilter) ([]Session, error)
		UpdateSessionStatus(ctx context.Context, id string, status Status) (Session, error)
		// QueryStartingSessions returns Scheduled sessions with
		// StartsAt in [from, to). The lower bound is inclusive, the upper
		// bound exclusive.
		QueryStartingSessions(ctx context.Context, from, to time.Time) ([]Session, error)
	}

	Service struct {
		repo    Repository
		crsRepo course.Repository
	}
)

func NewService(repo Repository, crsRepo course.Repository) *Service {
	return &Service{repo: repo, crsRepo: crsRepo}
}

// Schedule creates a Scheduled session for a course owned by instructorID.
// Pass an empty instructorID to skip the ownership check (admin).
func (svc *Service) Schedule(ctx context.Context, instructorID string, ns NewSession) (Session, error) {
	crs, err := svc.crsRepo.GetCourseByID(ctx, ns.CourseID)
	if err != nil {
		return Session{}, err
	}
	if instructorID != "" && crs.InstructorID != instructorID {
		return Session{}, course.ErrNotCourseInstructor
	}

	now := time.Now().UTC()
	return svc.repo.CreateSession(ctx, Session{
		CourseID:    crs.ID,
		Title:       ns.Title,
		Description: ns.Description,
		StartsAt:    ns.StartsAt.UTC(),
		Duration:    ns.Duration,
		Status:      StatusScheduled,
		MeetingURL:  ns.MeetingURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Session, error) {
	return svc.repo.GetSessionByID(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Session, error) {
	return svc.repo.FilterSessions(ctx, filter)
}

func (svc *Service) Start(ctx context.Context, id string) (Session, error) {
	return svc.transition(ctx, id, StatusLive)
}

func (svc *Service) End(ctx context.Context, id string) (Session, error) {
	return svc.transition(ctx, id, StatusEnded)
}

func (svc *Service) Cancel(ctx context.Context, id string) (Session, error) {
	return svc.transition(ctx, id, StatusCancelled)
}

func (svc *Service) transition(ctx context.Context, id string, next Status) (Session, error) {
	sess, err := svc.repo.GetSessionByID(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !sess.Status.CanTransitionTo(next) {
		return Session{}, ErrInvalidTransition
	}
	return svc.repo.UpdateSessionStatus(ctx, id, next)
}
