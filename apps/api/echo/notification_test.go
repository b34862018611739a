package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/darasa-app/darasa/core/notification"
	"github.com/darasa-app/darasa/core/user"
)

func Test_notificationApi(t *testing.T) {
	app := setup(t)
	asha := app.createUser(t, "Asha", "asha01", "asha@test.cd", "LePassword", user.StudentRoles, true)
	bob := app.createUser(t, "Bob", "bob001", "bob@test.cd", "LePassword", user.StudentRoles, true)
	ashaToken := app.getToken(t, asha)

	ctx := context.Background()
	notif, err := app.notifSvc.Create(ctx, notification.Notification{
		UserID:     asha.ID,
		Title:      "Live class starting soon",
		Type:       notification.TypeLiveClassStarting,
		TargetLink: notification.LiveClassTarget("sess-1"),
	})
	if err != nil {
		t.Fatalf("creating notification failed: %v", err)
	}
	if _, err = app.notifSvc.Create(ctx, notification.Notification{
		UserID: asha.ID,
		Title:  "Welcome",
		Type:   notification.TypeAnnouncement,
	}); err != nil {
		t.Fatalf("creating notification failed: %v", err)
	}

	t.Run("anonymous", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/notifications")
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: errorData(t, codeAuthentication, "missing or malformed jwt"),
		}, rec)
	})

	t.Run("user sees only own notifications", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/notifications", app.getToken(t, bob))
		app.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var notifs []notification.Notification
		if err := json.Unmarshal(rec.Body.Bytes(), &notifs); err != nil {
			t.Fatalf("unmarshalling notifications failed: %v", err)
		}
		if len(notifs) != 0 {
			t.Errorf("failed! got %d notifications; want 0", len(notifs))
		}
	})

	t.Run("unread count", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/notifications/unread-count", ashaToken)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marshallObj(t, UnreadCountResponse{Count: 2}),
		}, rec)
	})

	t.Run("another user's notification reads as not found", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/notifications/"+notif.ID+"/read", app.getToken(t, bob))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: errorData(t, codeNotFound, "not found"),
		}, rec)
	})

	t.Run("owner marks read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/notifications/"+notif.ID+"/read", ashaToken)
		app.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got notification.Notification
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling notification failed: %v", err)
		}
		if !got.IsRead {
			t.Error("failed! notification still unread")
		}
	})

	t.Run("mark all read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/notifications/read-all", ashaToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/notifications/unread-count", ashaToken)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marshallObj(t, UnreadCountResponse{Count: 0}),
		}, rec)
	})
}
