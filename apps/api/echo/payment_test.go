package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/darasa-app/darasa/core/payment"
	"github.com/darasa-app/darasa/core/user"
)

func Test_paymentApi_create(t *testing.T) {
	app := setup(t)
	asha := app.createUser(t, "Asha", "asha01", "asha@test.cd", "LePassword", user.StudentRoles, true)
	token := app.getToken(t, asha)
	paid := app.createCourse(t, "Advanced Go", "", 2500, true)
	free := app.createCourse(t, "Go for Beginners", "", 0, true)
	draft := app.createCourse(t, "Unreleased", "", 2500, false)

	tests := []httpTest{
		{
			name:     "anonymous",
			body:     marshallObj(t, payment.NewPayment{CourseID: paid.ID}),
			wantCode: http.StatusUnauthorized,
			wantData: errorData(t, codeAuthentication, "missing or malformed jwt"),
		},
		{
			name:     "missing course",
			body:     []byte(`{}`),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown course",
			body:     marshallObj(t, payment.NewPayment{CourseID: "lol"}),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: errorData(t, codeNotFound, "not found"),
		},
		{
			name:     "free course",
			body:     marshallObj(t, payment.NewPayment{CourseID: free.ID}),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: errorData(t, codeValidation, payment.ErrFreeCourse.Error()),
		},
		{
			name:     "unpublished course",
			body:     marshallObj(t, payment.NewPayment{CourseID: draft.ID}),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "opens a pending payment",
			body:     marshallObj(t, payment.NewPayment{CourseID: paid.ID}),
			token:    token,
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/payments", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var pmt payment.Payment
				if err := json.Unmarshal(rec.Body.Bytes(), &pmt); err != nil {
					t.Fatalf("unmarshalling Payment failed: %v", err)
				}
				if pmt.Status != payment.StatusPending {
					t.Errorf("failed! status = %q; want %q", pmt.Status, payment.StatusPending)
				}
				if pmt.AmountCents != paid.PriceCents {
					t.Errorf("failed! amount = %d; want %d", pmt.AmountCents, paid.PriceCents)
				}
			}
		})
	}
}

func Test_paymentApi_confirm(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin1", "admin@test.cd", "LePassword", []string{user.RoleAdmin}, true)
	asha := app.createUser(t, "Asha", "asha01", "asha@test.cd", "LePassword", user.StudentRoles, true)
	adminToken := app.getToken(t, admin)
	crs := app.createCourse(t, "Advanced Go", "", 2500, true)

	pmt, err := app.pmtSvc.Create(context.Background(), asha.ID, payment.NewPayment{CourseID: crs.ID})
	if err != nil {
		t.Fatalf("creating payment failed: %v", err)
	}
	body := marshallObj(t, ConfirmPaymentRequest{ProviderRef: "ch_123"})

	tests := []httpTest{
		{
			name:     "payer cannot confirm",
			path:     "/v1/payments/" + pmt.ID + "/confirm",
			body:     body,
			token:    app.getToken(t, asha),
			wantCode: http.StatusForbidden,
			wantData: errorData(t, codeAuthorization, "permission denied"),
		},
		{
			name:     "missing provider ref",
			path:     "/v1/payments/" + pmt.ID + "/confirm",
			body:     []byte(`{}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown payment",
			path:     "/v1/payments/lol/confirm",
			body:     body,
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: errorData(t, codeNotFound, "not found"),
		},
		{
			name:     "confirms a pending payment",
			path:     "/v1/payments/" + pmt.ID + "/confirm",
			body:     body,
			token:    adminToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "confirming twice",
			path:     "/v1/payments/" + pmt.ID + "/confirm",
			body:     body,
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: errorData(t, codeValidation, payment.ErrInvalidStatus.Error()),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var got payment.Payment
				if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
					t.Fatalf("unmarshalling Payment failed: %v", err)
				}
				if got.Status != payment.StatusSucceeded {
					t.Errorf("failed! status = %q; want %q", got.Status, payment.StatusSucceeded)
				}
				if got.ProviderRef != "ch_123" {
					t.Errorf("failed! providerRef = %q", got.ProviderRef)
				}

				// the paid enrollment is now active
				enrs, err := app.crsSvc.ActiveEnrollments(context.Background(), crs.ID)
				if err != nil {
					t.Fatalf("querying enrollments failed: %v", err)
				}
				if len(enrs) != 1 || enrs[0].UserID != asha.ID {
					t.Errorf("failed! enrollments = %+v", enrs)
				}
			}
		})
	}
}

func Test_paymentApi_query(t *testing.T) {
	app := setup(t)
	asha := app.createUser(t, "Asha", "asha01", "asha@test.cd", "LePassword", user.StudentRoles, true)
	bob := app.createUser(t, "Bob", "bob001", "bob@test.cd", "LePassword", user.StudentRoles, true)
	crs := app.createCourse(t, "Advanced Go", "", 2500, true)

	if _, err := app.pmtSvc.Create(context.Background(), asha.ID, payment.NewPayment{CourseID: crs.ID}); err != nil {
		t.Fatalf("creating payment failed: %v", err)
	}

	t.Run("user sees own payments", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/payments", app.getToken(t, asha))
		app.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var pmts []payment.Payment
		if err := json.Unmarshal(rec.Body.Bytes(), &pmts); err != nil {
			t.Fatalf("unmarshalling payments failed: %v", err)
		}
		if len(pmts) != 1 {
			t.Errorf("failed! got %d payments; want 1", len(pmts))
		}
	})

	t.Run("other users see nothing", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/payments", app.getToken(t, bob))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marshallObj(t, []payment.Payment{}),
		}, rec)
	})
}
