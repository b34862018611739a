package liveclass

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasa-app/darasa/core"
)

// Status is the lifecycle state of a live session.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusEnded     Status = "ended"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusLive, StatusEnded, StatusCancelled:
		return true
	}
	return false
}

// allowedTransitions: Scheduled may go Live or Cancelled; Live may only End.
var allowedTransitions = map[Status][]Status{
	StatusScheduled: {StatusLive, StatusCancelled},
	StatusLive:      {StatusEnded},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

type Session struct {
	ID          string        `json:"id"`
	CourseID    string        `json:"course_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	StartsAt    time.Time     `json:"starts_at"` // UTC
	Duration    time.Duration `json:"duration"`
	Status      Status        `json:"status"`
	MeetingURL  string        `json:"meeting_url"`
	CreatedAt   time.Time     `json:"created_at"` // UTC
	UpdatedAt   time.Time     `json:"updated_at"` // UTC
}

// NewSession contains information needed to schedule a live session.
type NewSession struct {
	CourseID    string        `json:"course_id" validate:"required"`
	Title       string        `json:"title" validate:"required,min=3"`
	Description string        `json:"description"`
	StartsAt    time.Time     `json:"starts_at" validate:"required"`
	Duration    time.Duration `json:"duration" validate:"required,gt=0"`
	MeetingURL  string        `json:"meeting_url" validate:"omitempty,url"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.Title = core.CleanString(ns.Title)
	ns.Description = core.CleanString(ns.Description)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if !ns.StartsAt.After(time.Now()) {
		return core.NewValidationError(nil, core.FieldError{Field: "starts_at", Error: "must be in the future"})
	}
	return nil
}

type QueryFilter struct {
	CourseID string `query:"course"`
	Status   Status `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.CourseID == "" && qf.Status == ""
}
