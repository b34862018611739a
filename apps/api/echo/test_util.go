package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/course"
	"github.com/darasa-app/darasa/core/liveclass"
	"github.com/darasa-app/darasa/core/notification"
	"github.com/darasa-app/darasa/core/payment"
	"github.com/darasa-app/darasa/core/user"
	emailsvc "github.com/darasa-app/darasa/services/email"
	dummydb "github.com/darasa-app/darasa/storage/database/dummy"
)

var testConf = &core.Config{
	TestMode:                  true,
	AppName:                   "Darasa",
	SecretKey:                 "secret",
	FrontendBaseURL:           "http://localhost:3000",
	DefaultFromEmailAddr:      "noreply@localhost",
	PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	Server: core.ServerConfig{
		JWTExpirationDelta:        10 * time.Minute,
		JWTRefreshExpirationDelta: 4 * time.Hour,
	},
	Sweep: core.SweepConfig{Lead: 5 * time.Minute},
}

type testApp struct {
	server Server

	usrRepo   user.Repository
	crsRepo   course.Repository
	sessRepo  liveclass.Repository
	notifRepo notification.Repository
	pmtRepo   payment.Repository

	usrSvc   *user.Service
	crsSvc   *course.Service
	sessSvc  *liveclass.Service
	notifSvc *notification.Service
	pmtSvc   *payment.Service
}

func setup(t *testing.T) *testApp {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	emailsvc.ClearSentMessages()

	mailSvc := emailsvc.NewConsoleServiceMock(testConf)
	logger := testLogger{}

	app := &testApp{
		usrRepo:   dummydb.NewUserRepository(db),
		crsRepo:   dummydb.NewCourseRepository(db),
		sessRepo:  dummydb.NewLiveClassRepository(db),
		notifRepo: dummydb.NewNotificationRepository(db),
		pmtRepo:   dummydb.NewPaymentRepository(db),
	}
	app.usrSvc = user.NewService(app.usrRepo, mailSvc, testConf, logger)
	app.notifSvc = notification.NewService(app.notifRepo)
	app.crsSvc = course.NewService(app.crsRepo, app.usrRepo, app.notifSvc, mailSvc, testConf, logger)
	app.sessSvc = liveclass.NewService(app.sessRepo, app.crsRepo)
	app.pmtSvc = payment.NewService(app.pmtRepo, app.crsSvc, app.usrRepo, app.notifSvc, mailSvc, testConf, logger)

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	app.server = NewServer(ServerDeps{
		Conf:           testConf,
		Logger:         logger,
		UserSvc:        app.usrSvc,
		CourseSvc:      app.crsSvc,
		LiveClassSvc:   app.sessSvc,
		NotifSvc:       app.notifSvc,
		PaymentSvc:     app.pmtSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return app
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func (app *testApp) createUser(t *testing.T, name, uname, email, pwd string, roles []string, isActive bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  &isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := app.usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func (app *testApp) createCourse(t *testing.T, title, instructorID string, priceCents int, published bool) course.Course {
	t.Helper()
	now := time.Now().UTC()
	crs, err := app.crsRepo.CreateCourse(context.Background(), course.Course{
		Title:        title,
		Slug:         course.Slugify(title),
		InstructorID: instructorID,
		PriceCents:   priceCents,
		Currency:     "USD",
		IsPublished:  published,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return crs
}

func (app *testApp) createSession(t *testing.T, courseID string, startsAt time.Time, status liveclass.Status) liveclass.Session {
	t.Helper()
	now := time.Now().UTC()
	sess, err := app.sessRepo.CreateSession(context.Background(), liveclass.Session{
		CourseID:  courseID,
		Title:     "Live session",
		StartsAt:  startsAt.UTC(),
		Duration:  time.Hour,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("createSession() failed: %v", err)
	}
	return sess
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	claims := GetUserClaims(testConf, usr)
	token, err := GenerateToken(testConf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func errorData(t *testing.T, messageCode string, message interface{}, errs ...fieldErrors) []byte {
	t.Helper()
	return marshallObj(t, errorResponse{
		Success:     false,
		MessageCode: messageCode,
		Message:     message,
		Errors:      errs,
	})
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	t.Helper()
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

type testLogger struct{}

func (testLogger) Debug(msg string, args ...interface{}) {}
func (testLogger) Info(msg string, args ...interface{})  {}
func (testLogger) Warn(msg string, args ...interface{})  {}
func (testLogger) Error(msg string, args ...interface{}) {}
func (testLogger) Fatal(msg string, args ...interface{}) {}
