package notification

import "time"

// Type classifies a notification; each producer uses a fixed type.
type Type string

const (
	TypeLiveClassStarting   Type = "live_class_starting"
	TypeEnrollmentConfirmed Type = "enrollment_confirmed"
	TypeNewReview           Type = "new_review"
	TypePaymentReceived     Type = "payment_received"
	TypeAnnouncement        Type = "announcement"
)

func (t Type) Valid() bool {
	switch t {
	case TypeLiveClassStarting, TypeEnrollmentConfirmed, TypeNewReview, TypePaymentReceived, TypeAnnouncement:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

type Notification struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Type       Type      `json:"type"`
	TargetLink string    `json:"target_link"`
	Priority   Priority  `json:"priority"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

// LiveClassTarget is the deep link a live-class starting notification points
// to; its existence for a session is the announcement dedup guard.
func LiveClassTarget(sessionID string) string {
	return "/live-classes/" + sessionID
}
