package liveclass_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/course"
	"github.com/darasa-app/darasa/core/liveclass"
	"github.com/darasa-app/darasa/core/notification"
	"github.com/darasa-app/darasa/core/user"
	dummydb "github.com/darasa-app/darasa/storage/database/dummy"
)

var testConf = &core.Config{
	AppName:         "Darasa",
	FrontendBaseURL: "http://localhost:3000",
	TestMode:        true,
	Sweep:           core.SweepConfig{Lead: 5 * time.Minute},
}

type sweepFixture struct {
	sessions liveclass.Repository
	courses  course.Repository
	users    user.Repository
	notifs   notification.Repository
	mail     *recordingMailService
	log      *recordingLogger
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	return &sweepFixture{
		sessions: dummydb.NewLiveClassRepository(db),
		courses:  dummydb.NewCourseRepository(db),
		users:    dummydb.NewUserRepository(db),
		notifs:   dummydb.NewNotificationRepository(db),
		mail:     &recordingMailService{},
		log:      &recordingLogger{},
	}
}

func (f *sweepFixture) newSweep() *liveclass.Sweep {
	return liveclass.NewSweep(f.sessions, f.courses, f.users, f.notifs, f.mail, testConf, f.log)
}

func (f *sweepFixture) seedUser(t *testing.T, name, email string) user.User {
	t.Helper()
	active := true
	usr, err := f.users.CreateUser(context.Background(), user.User{
		Name:     name,
		Username: name,
		Email:    email,
		IsActive: &active,
	})
	require.NoError(t, err)
	return usr
}

func (f *sweepFixture) seedCourse(t *testing.T, title string) course.Course {
	t.Helper()
	crs, err := f.courses.CreateCourse(context.Background(), course.Course{
		Title:       title,
		Slug:        course.Slugify(title),
		IsPublished: true,
	})
	require.NoError(t, err)
	return crs
}

func (f *sweepFixture) enroll(t *testing.T, crs course.Course, usr user.User) {
	t.Helper()
	_, err := f.courses.CreateEnrollment(context.Background(), course.Enrollment{
		CourseID: crs.ID,
		UserID:   usr.ID,
		IsActive: true,
	})
	require.NoError(t, err)
}

func (f *sweepFixture) seedSession(t *testing.T, crs course.Course, title string, startsAt time.Time, status liveclass.Status) liveclass.Session {
	t.Helper()
	sess, err := f.sessions.CreateSession(context.Background(), liveclass.Session{
		CourseID: crs.ID,
		Title:    title,
		StartsAt: startsAt,
		Duration: time.Hour,
		Status:   status,
	})
	require.NoError(t, err)
	return sess
}

func (f *sweepFixture) userNotifications(t *testing.T, usr user.User) []notification.Notification {
	t.Helper()
	notifs, err := f.notifs.QueryUserNotifications(context.Background(), usr.ID)
	require.NoError(t, err)
	return notifs
}

func Test_Sweep_selectsOnlyScheduledSessionsInWindow(t *testing.T) {
	now := time.Now().UTC()
	ctx := context.Background()

	tests := []struct {
		name     string
		startsAt time.Time
		status   liveclass.Status
		want     bool
	}{
		{"scheduled, starting now", now, liveclass.StatusScheduled, true},
		{"scheduled, starting in 2m", now.Add(2 * time.Minute), liveclass.StatusScheduled, true},
		{"scheduled, just inside the window", now.Add(5*time.Minute - time.Second), liveclass.StatusScheduled, true},
		{"scheduled, exactly at the window end", now.Add(5 * time.Minute), liveclass.StatusScheduled, false},
		{"scheduled, beyond the window", now.Add(10 * time.Minute), liveclass.StatusScheduled, false},
		{"scheduled, already started", now.Add(-time.Second), liveclass.StatusScheduled, false},
		{"live", now.Add(2 * time.Minute), liveclass.StatusLive, false},
		{"ended", now.Add(2 * time.Minute), liveclass.StatusEnded, false},
		{"cancelled", now.Add(2 * time.Minute), liveclass.StatusCancelled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSweepFixture(t)
			usr := f.seedUser(t, "asha", "asha@test.cd")
			crs := f.seedCourse(t, "Go for Beginners")
			f.enroll(t, crs, usr)
			f.seedSession(t, crs, "Intro", tt.startsAt, tt.status)

			summary := f.newSweep().Run(ctx, now)

			if tt.want {
				assert.Equal(t, 1, summary.Notified)
				assert.Len(t, f.userNotifications(t, usr), 1)
			} else {
				assert.Equal(t, 0, summary.Notified)
				assert.Empty(t, summary.Sessions)
				assert.Empty(t, f.userNotifications(t, usr))
			}
		})
	}
}

func Test_Sweep_announcesEveryActiveEnrollee(t *testing.T) {
	now := time.Now().UTC()
	f := newSweepFixture(t)

	u1 := f.seedUser(t, "asha", "asha@test.cd")
	u2 := f.seedUser(t, "bob", "bob@test.cd")
	inactive := f.seedUser(t, "chris", "chris@test.cd")
	crs := f.seedCourse(t, "Go for Beginners")
	f.enroll(t, crs, u1)
	f.enroll(t, crs, u2)
	_, err := f.courses.CreateEnrollment(context.Background(), course.Enrollment{
		CourseID: crs.ID, UserID: inactive.ID, IsActive: false,
	})
	require.NoError(t, err)

	sess := f.seedSession(t, crs, "Intro", now.Add(2*time.Minute), liveclass.StatusScheduled)

	summary := f.newSweep().Run(context.Background(), now)

	assert.Equal(t, 2, summary.Audience)
	assert.Equal(t, 2, summary.Notified)
	assert.Equal(t, 2, summary.Emailed)
	assert.Equal(t, 0, summary.Failures)
	require.Len(t, summary.Sessions, 1)
	assert.Equal(t, sess.ID, summary.Sessions[0].SessionID)

	for _, usr := range []user.User{u1, u2} {
		notifs := f.userNotifications(t, usr)
		require.Len(t, notifs, 1)
		assert.Equal(t, notification.TypeLiveClassStarting, notifs[0].Type)
		assert.Equal(t, notification.LiveClassTarget(sess.ID), notifs[0].TargetLink)
		assert.Equal(t, notification.PriorityHigh, notifs[0].Priority)
		assert.False(t, notifs[0].IsRead)
	}
	assert.Empty(t, f.userNotifications(t, inactive))
	assert.Len(t, f.mail.sent, 2)
}

func Test_Sweep_secondRunIsANoop(t *testing.T) {
	now := time.Now().UTC()
	f := newSweepFixture(t)

	usr := f.seedUser(t, "asha", "asha@test.cd")
	crs := f.seedCourse(t, "Go for Beginners")
	f.enroll(t, crs, usr)
	f.seedSession(t, crs, "Intro", now.Add(2*time.Minute), liveclass.StatusScheduled)

	first := f.newSweep().Run(context.Background(), now)
	assert.Equal(t, 1, first.Notified)

	second := f.newSweep().Run(context.Background(), now)
	assert.Equal(t, 0, second.Notified)
	assert.Equal(t, 0, second.Emailed)
	require.Len(t, second.Sessions, 1)
	assert.Equal(t, "already announced", second.Sessions[0].Skipped)

	assert.Len(t, f.userNotifications(t, usr), 1)
	assert.Len(t, f.mail.sent, 1)
}

func Test_Sweep_skipsAlreadyAnnouncedSession(t *testing.T) {
	now := time.Now().UTC()
	f := newSweepFixture(t)

	usr := f.seedUser(t, "asha", "asha@test.cd")
	crs := f.seedCourse(t, "Go for Beginners")
	f.enroll(t, crs, usr)
	sess := f.seedSession(t, crs, "Intro", now.Add(2*time.Minute), liveclass.StatusScheduled)

	// a prior announcement, regardless of the owning user
	other := f.seedUser(t, "dora", "dora@test.cd")
	_, err := f.notifs.CreateNotification(context.Background(), notification.Notification{
		UserID:     other.ID,
		Type:       notification.TypeLiveClassStarting,
		TargetLink: notification.LiveClassTarget(sess.ID),
	})
	require.NoError(t, err)

	summary := f.newSweep().Run(context.Background(), now)

	assert.Equal(t, 0, summary.Notified)
	require.Len(t, summary.Sessions, 1)
	assert.Equal(t, "already announced", summary.Sessions[0].Skipped)
	assert.Empty(t, f.userNotifications(t, usr))
	assert.Empty(t, f.mail.sent)
}

func Test_Sweep_emptyAudienceWarnsAndWritesNothing(t *testing.T) {
	now := time.Now().UTC()
	f := newSweepFixture(t)

	crs := f.seedCourse(t, "Go for Beginners")
	f.seedSession(t, crs, "Intro", now.Add(2*time.Minute), liveclass.StatusScheduled)

	summary := f.newSweep().Run(context.Background(), now)

	assert.Equal(t, 0, summary.Audience)
	assert.Equal(t, 0, summary.Notified)
	assert.Equal(t, 0, summary.Failures)
	require.Len(t, summary.Sessions, 1)
	assert.Equal(t, "empty audience", summary.Sessions[0].Skipped)
	assert.NotZero(t, f.log.warnings)
	assert.Empty(t, f.mail.sent)
}

func Test_Sweep_skipsSessionWithUnresolvableCourse(t *testing.T) {
	now := time.Now().UTC()
	f := newSweepFixture(t)

	usr := f.seedUser(t, "asha", "asha@test.cd")
	okCrs := f.seedCourse(t, "Go for Beginners")
	f.enroll(t, okCrs, usr)

	// session referencing a course that does not exist
	_, err := f.sessions.CreateSession(context.Background(), liveclass.Session{
		CourseID: "deadbeef-0000-0000-0000-000000000000",
		Title:    "Orphan",
		StartsAt: now.Add(time.Minute),
		Duration: time.Hour,
		Status:   liveclass.StatusScheduled,
	})
	require.NoError(t, err)
	okSess := f.seedSession(t, okCrs, "Intro", now.Add(2*time.Minute), liveclass.StatusScheduled)

	summary := f.newSweep().Run(context.Background(), now)

	require.Len(t, summary.Sessions, 2)
	var orphan, ok *liveclass.SessionOutcome
	for i := range summary.Sessions {
		if summary.Sessions[i].SessionID == okSess.ID {
			ok = &summary.Sessions[i]
		} else {
			orphan = &summary.Sessions[i]
		}
	}
	require.NotNil(t, orphan)
	require.NotNil(t, ok)
	assert.Equal(t, "course not resolved", orphan.Skipped)
	assert.Equal(t, 1, ok.Notified)
	assert.NotZero(t, f.log.warnings)
	assert.Len(t, f.userNotifications(t, usr), 1)
}

func Test_Sweep_memberFailuresAreIsolated(t *testing.T) {
	now := time.Now().UTC()
	f := newSweepFixture(t)

	u1 := f.seedUser(t, "asha", "asha@test.cd")
	u2 := f.seedUser(t, "bob", "bob@test.cd")
	crs := f.seedCourse(t, "Go for Beginners")
	f.enroll(t, crs, u1)
	f.enroll(t, crs, u2)
	f.seedSession(t, crs, "Intro", now.Add(2*time.Minute), liveclass.StatusScheduled)

	// notification writes fail for u1 only
	failing := &failingNotifRepo{Repository: f.notifs, failFor: map[string]bool{u1.ID: true}}
	sweep := liveclass.NewSweep(f.sessions, f.courses, f.users, failing, f.mail, testConf, f.log)

	summary := sweep.Run(context.Background(), now)

	assert.Equal(t, 2, summary.Audience)
	assert.Equal(t, 1, summary.Notified)
	assert.Equal(t, 1, summary.Emailed)
	assert.Equal(t, 1, summary.Failures)

	// u1 got nothing, not even an email
	assert.Empty(t, f.userNotifications(t, u1))
	// u2 is unaffected
	assert.Len(t, f.userNotifications(t, u2), 1)
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "bob@test.cd", f.mail.sent[0].To[0].Address)
}

func Test_Sweep_emailFailureKeepsNotification(t *testing.T) {
	now := time.Now().UTC()
	f := newSweepFixture(t)
	f.mail.failFor = map[string]bool{"asha@test.cd": true}

	u1 := f.seedUser(t, "asha", "asha@test.cd")
	u2 := f.seedUser(t, "bob", "bob@test.cd")
	crs := f.seedCourse(t, "Go for Beginners")
	f.enroll(t, crs, u1)
	f.enroll(t, crs, u2)
	f.seedSession(t, crs, "Intro", now.Add(2*time.Minute), liveclass.StatusScheduled)

	summary := f.newSweep().Run(context.Background(), now)

	assert.Equal(t, 2, summary.Notified)
	assert.Equal(t, 1, summary.Emailed)
	assert.Equal(t, 1, summary.Failures)

	// the failed email does not undo the in-app notification
	assert.Len(t, f.userNotifications(t, u1), 1)
	assert.Len(t, f.userNotifications(t, u2), 1)
}

func Test_Sweep_memberWithoutEmailCountsAsFailure(t *testing.T) {
	now := time.Now().UTC()
	f := newSweepFixture(t)

	usr := f.seedUser(t, "asha", "")
	crs := f.seedCourse(t, "Go for Beginners")
	f.enroll(t, crs, usr)
	f.seedSession(t, crs, "Intro", now.Add(2*time.Minute), liveclass.StatusScheduled)

	summary := f.newSweep().Run(context.Background(), now)

	assert.Equal(t, 1, summary.Notified)
	assert.Equal(t, 0, summary.Emailed)
	assert.Equal(t, 1, summary.Failures)
	assert.Len(t, f.userNotifications(t, usr), 1)
	assert.Empty(t, f.mail.sent)
}

func Test_Sweep_queryFailureYieldsEmptySummary(t *testing.T) {
	now := time.Now().UTC()
	f := newSweepFixture(t)

	sweep := liveclass.NewSweep(
		&failingSessionRepo{Repository: f.sessions},
		f.courses, f.users, f.notifs, f.mail, testConf, f.log,
	)
	summary := sweep.Run(context.Background(), now)

	assert.Empty(t, summary.Sessions)
	assert.Equal(t, 0, summary.Notified)
	assert.NotZero(t, f.log.errors)
}

// test doubles

type recordingMailService struct {
	sent    []core.EmailMessage
	failFor map[string]bool // recipient address -> fail
}

var _ core.EmailService = (*recordingMailService)(nil)

func (svc *recordingMailService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		_ = svc.SendMessage(msg)
	}
}

func (svc *recordingMailService) SendMessage(msg *core.EmailMessage) error {
	for _, to := range msg.To {
		if svc.failFor[to.Address] {
			return fmt.Errorf("smtp unreachable for %s", to.Address)
		}
	}
	svc.sent = append(svc.sent, *msg)
	return nil
}

type recordingLogger struct {
	warnings int
	errors   int
}

var _ core.Logger = (*recordingLogger)(nil)

func (l *recordingLogger) Debug(msg string, args ...interface{}) {}
func (l *recordingLogger) Info(msg string, args ...interface{})  {}
func (l *recordingLogger) Warn(msg string, args ...interface{})  { l.warnings++ }
func (l *recordingLogger) Error(msg string, args ...interface{}) { l.errors++ }
func (l *recordingLogger) Fatal(msg string, args ...interface{}) { l.errors++ }

type failingNotifRepo struct {
	notification.Repository
	failFor map[string]bool // userID -> fail CreateNotification
}

func (repo *failingNotifRepo) CreateNotification(ctx context.Context, notif notification.Notification) (notification.Notification, error) {
	if repo.failFor[notif.UserID] {
		return notification.Notification{}, fmt.Errorf("store unavailable")
	}
	return repo.Repository.CreateNotification(ctx, notif)
}

type failingSessionRepo struct {
	liveclass.Repository
}

func (repo *failingSessionRepo) QueryStartingSessions(ctx context.Context, from, to time.Time) ([]liveclass.Session, error) {
	return nil, fmt.Errorf("store unavailable")
}
