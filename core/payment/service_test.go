package payment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/course"
	"github.com/darasa-app/darasa/core/notification"
	"github.com/darasa-app/darasa/core/payment"
	"github.com/darasa-app/darasa/core/user"
	emailsvc "github.com/darasa-app/darasa/services/email"
	dummydb "github.com/darasa-app/darasa/storage/database/dummy"
)

var testConf = &core.Config{
	AppName:         "Darasa",
	FrontendBaseURL: "http://localhost:3000",
	TestMode:        true,
}

type fixture struct {
	svc     *payment.Service
	crsSvc  *course.Service
	crsRepo course.Repository
	usrRepo user.Repository
	notifs  notification.Repository
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	emailsvc.ClearSentMessages()

	crsRepo := dummydb.NewCourseRepository(db)
	usrRepo := dummydb.NewUserRepository(db)
	notifs := dummydb.NewNotificationRepository(db)
	notifSvc := notification.NewService(notifs)
	mailSvc := emailsvc.NewConsoleServiceMock(testConf)
	log := nopLogger{}

	crsSvc := course.NewService(crsRepo, usrRepo, notifSvc, mailSvc, testConf, log)
	svc := payment.NewService(
		dummydb.NewPaymentRepository(db), crsSvc, usrRepo, notifSvc, mailSvc, testConf, log,
	)
	return &fixture{svc: svc, crsSvc: crsSvc, crsRepo: crsRepo, usrRepo: usrRepo, notifs: notifs}
}

func (f *fixture) createUser(t *testing.T, name, email string) user.User {
	t.Helper()
	active := true
	usr, err := f.usrRepo.CreateUser(context.Background(), user.User{
		Name:     name,
		Username: name,
		Email:    email,
		IsActive: &active,
	})
	require.NoError(t, err)
	return usr
}

func (f *fixture) createCourse(t *testing.T, title string, priceCents int, published bool) course.Course {
	t.Helper()
	crs, err := f.crsRepo.CreateCourse(context.Background(), course.Course{
		Title:       title,
		Slug:        course.Slugify(title),
		PriceCents:  priceCents,
		Currency:    "USD",
		IsPublished: published,
	})
	require.NoError(t, err)
	return crs
}

func Test_Service_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown course", func(t *testing.T) {
		f := setup(t)
		usr := f.createUser(t, "asha", "asha@test.cd")
		_, err := f.svc.Create(ctx, usr.ID, payment.NewPayment{CourseID: "nope"})
		assert.Equal(t, course.ErrNotFound, err)
	})

	t.Run("unpublished course", func(t *testing.T) {
		f := setup(t)
		usr := f.createUser(t, "asha", "asha@test.cd")
		crs := f.createCourse(t, "Go for Beginners", 1500, false)
		_, err := f.svc.Create(ctx, usr.ID, payment.NewPayment{CourseID: crs.ID})
		assert.Equal(t, course.ErrNotPublished, err)
	})

	t.Run("free course", func(t *testing.T) {
		f := setup(t)
		usr := f.createUser(t, "asha", "asha@test.cd")
		crs := f.createCourse(t, "Go for Beginners", 0, true)
		_, err := f.svc.Create(ctx, usr.ID, payment.NewPayment{CourseID: crs.ID})
		assert.Equal(t, payment.ErrFreeCourse, err)
	})

	t.Run("paid course opens a pending payment", func(t *testing.T) {
		f := setup(t)
		usr := f.createUser(t, "asha", "asha@test.cd")
		crs := f.createCourse(t, "Go for Beginners", 1500, true)

		pmt, err := f.svc.Create(ctx, usr.ID, payment.NewPayment{CourseID: crs.ID})
		require.NoError(t, err)
		assert.Equal(t, payment.StatusPending, pmt.Status)
		// amount comes from the course, never the client
		assert.Equal(t, 1500, pmt.AmountCents)
		assert.Equal(t, "USD", pmt.Currency)
		assert.Equal(t, usr.ID, pmt.UserID)
	})
}

func Test_Service_Confirm(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	usr := f.createUser(t, "asha", "asha@test.cd")
	crs := f.createCourse(t, "Go for Beginners", 1500, true)

	pmt, err := f.svc.Create(ctx, usr.ID, payment.NewPayment{CourseID: crs.ID})
	require.NoError(t, err)

	t.Run("unknown payment", func(t *testing.T) {
		_, err := f.svc.Confirm(ctx, "nope", "ref-1")
		assert.Equal(t, payment.ErrNotFound, err)
	})

	t.Run("pending payment succeeds and enrolls", func(t *testing.T) {
		got, err := f.svc.Confirm(ctx, pmt.ID, "ref-1")
		require.NoError(t, err)
		assert.Equal(t, payment.StatusSucceeded, got.Status)
		assert.Equal(t, "ref-1", got.ProviderRef)

		// the paid enrollment is active
		enrs, err := f.crsSvc.ActiveEnrollments(ctx, crs.ID)
		require.NoError(t, err)
		require.Len(t, enrs, 1)
		assert.Equal(t, usr.ID, enrs[0].UserID)

		// receipt notification
		notifs, err := f.notifs.QueryUserNotifications(ctx, usr.ID)
		require.NoError(t, err)
		var receipts int
		for _, n := range notifs {
			if n.Type == notification.TypePaymentReceived {
				receipts++
			}
		}
		assert.Equal(t, 1, receipts)
	})

	t.Run("confirming twice is rejected", func(t *testing.T) {
		_, err := f.svc.Confirm(ctx, pmt.ID, "ref-2")
		assert.Equal(t, payment.ErrInvalidStatus, err)
	})
}

func Test_Service_Fail(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	usr := f.createUser(t, "asha", "asha@test.cd")
	crs := f.createCourse(t, "Go for Beginners", 1500, true)

	pmt, err := f.svc.Create(ctx, usr.ID, payment.NewPayment{CourseID: crs.ID})
	require.NoError(t, err)

	got, err := f.svc.Fail(ctx, pmt.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusFailed, got.Status)

	// no enrollment was created
	enrs, err := f.crsSvc.ActiveEnrollments(ctx, crs.ID)
	require.NoError(t, err)
	assert.Empty(t, enrs)

	// a failed payment cannot be confirmed
	_, err = f.svc.Confirm(ctx, pmt.ID, "ref-1")
	assert.Equal(t, payment.ErrInvalidStatus, err)
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}
