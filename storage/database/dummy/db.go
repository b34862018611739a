package dummydb

import (
	"sync"

	"github.com/darasa-app/darasa/core/course"
	"github.com/darasa-app/darasa/core/liveclass"
	"github.com/darasa-app/darasa/core/notification"
	"github.com/darasa-app/darasa/core/payment"
	"github.com/darasa-app/darasa/core/user"
)

type (
	DB struct {
		user         *userTable
		course       *courseTable
		enrollment   *enrollmentTable
		review       *reviewTable
		liveSession  *liveSessionTable
		notification *notificationTable
		payment      *paymentTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[string]*course.Enrollment
	}

	reviewTable struct {
		sync.RWMutex
		table map[string]*course.Review
	}

	liveSessionTable struct {
		sync.RWMutex
		table map[string]*liveclass.Session
	}

	notificationTable struct {
		sync.RWMutex
		table map[string]*notification.Notification
	}

	paymentTable struct {
		sync.RWMutex
		table map[string]*payment.Payment
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		course:       &courseTable{table: make(map[string]*course.Course)},
		enrollment:   &enrollmentTable{table: make(map[string]*course.Enrollment)},
		review:       &reviewTable{table: make(map[string]*course.Review)},
		liveSession:  &liveSessionTable{table: make(map[string]*liveclass.Session)},
		notification: &notificationTable{table: make(map[string]*notification.Notification)},
		payment:      &paymentTable{table: make(map[string]*payment.Payment)},
	}
	return db, nil
}
