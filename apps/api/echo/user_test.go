package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/darasa-app/darasa/core/user"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	app.createUser(t, "Asha", "asha01", "asha@test.cd", "LePassword", user.StudentRoles, true)
	app.createUser(t, "Gone", "gone01", "gone@test.cd", "LePassword", nil, false)

	tests := []httpTest{
		{
			name:     "empty body",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: errorData(t, codeValidation, "invalid input",
				fieldErrors{Field: "Username", Messages: []string{"Username is a required field"}},
				fieldErrors{Field: "Password", Messages: []string{"Password is a required field"}},
			),
		},
		{
			name:     "unknown user",
			body:     marshallObj(t, LoginRequest{Username: "whodis", Password: "LePassword"}),
			wantCode: http.StatusUnauthorized,
			wantData: errorData(t, codeAuthentication, "authentication failed"),
		},
		{
			name:     "wrong password",
			body:     marshallObj(t, LoginRequest{Username: "asha01", Password: "nope"}),
			wantCode: http.StatusUnauthorized,
			wantData: errorData(t, codeAuthentication, "authentication failed"),
		},
		{
			name:     "deactivated account",
			body:     marshallObj(t, LoginRequest{Username: "gone01", Password: "LePassword"}),
			wantCode: http.StatusForbidden,
			wantData: errorData(t, codeAuthorization, "account deactivated"),
		},
		{
			name:     "login with username",
			body:     marshallObj(t, LoginRequest{Username: "asha01", Password: "LePassword"}),
			wantCode: http.StatusOK,
		},
		{
			name:     "login with email",
			body:     marshallObj(t, LoginRequest{Username: "asha@test.cd", Password: "LePassword"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var res LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
					t.Fatalf("unmarshalling LoginResponse failed: %v", err)
				}
				if res.Token == "" {
					t.Error("failed! empty token")
				}
			}
		})
	}
}

func Test_userApi_register(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin1", "admin@test.cd", "LePassword", []string{user.RoleAdmin}, true)
	student := app.createUser(t, "Asha", "asha01", "asha@test.cd", "LePassword", user.StudentRoles, true)
	adminToken := app.getToken(t, admin)

	newUser := func(uname, email string, roles ...string) []byte {
		return marshallObj(t, user.NewUser{
			Name:            "New User",
			Username:        uname,
			Email:           email,
			Password:        "LePassword",
			PasswordConfirm: "LePassword",
			Roles:           roles,
		})
	}

	tests := []httpTest{
		{
			name:     "anonymous",
			body:     newUser("newbie", "newbie@test.cd"),
			wantCode: http.StatusUnauthorized,
			wantData: errorData(t, codeAuthentication, "missing or malformed jwt"),
		},
		{
			name:     "student cannot register users",
			body:     newUser("newbie", "newbie@test.cd"),
			token:    app.getToken(t, student),
			wantCode: http.StatusForbidden,
			wantData: errorData(t, codeAuthorization, "permission denied"),
		},
		{
			name:     "duplicate username",
			body:     newUser("asha01", "newbie@test.cd"),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: errorData(t, codeValidation, user.ErrUsernameExists.Error(),
				fieldErrors{Field: "username", Messages: []string{user.ErrUsernameExists.Error()}}),
		},
		{
			name:     "duplicate email",
			body:     newUser("newbie", "asha@test.cd"),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: errorData(t, codeValidation, user.ErrEmailExists.Error(),
				fieldErrors{Field: "email", Messages: []string{user.ErrEmailExists.Error()}}),
		},
		{
			name:     "cannot grant a role above own",
			body:     newUser("newbie", "newbie@test.cd", user.RoleAdminOwner),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: errorData(t, codeValidation, "invalid input",
				fieldErrors{Field: "roles", Messages: []string{errNoPermsToSetRoles}}),
		},
		{
			name:     "admin registers a student",
			body:     newUser("newbie", "newbie@test.cd", user.RoleStudent),
			token:    adminToken,
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var usr user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
					t.Fatalf("unmarshalling User failed: %v", err)
				}
				if usr.ID == "" {
					t.Error("failed! empty user ID")
				}
				if !usr.Active() {
					t.Error("failed! new user not active")
				}
			}
		})
	}
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin1", "admin@test.cd", "LePassword", []string{user.RoleAdmin}, true)
	student := app.createUser(t, "Asha", "asha01", "asha@test.cd", "LePassword", user.StudentRoles, true)

	tests := []httpTest{
		{
			name:     "anonymous",
			wantCode: http.StatusUnauthorized,
			wantData: errorData(t, codeAuthentication, "missing or malformed jwt"),
		},
		{
			name:     "student forbidden",
			token:    app.getToken(t, student),
			wantCode: http.StatusForbidden,
			wantData: errorData(t, codeAuthorization, "permission denied"),
		},
		{
			name:     "admin gets all",
			token:    app.getToken(t, admin),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, []user.User{admin, student}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users", tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_detail(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin1", "admin@test.cd", "LePassword", []string{user.RoleAdmin}, true)
	asha := app.createUser(t, "Asha", "asha01", "asha@test.cd", "LePassword", user.StudentRoles, true)
	bob := app.createUser(t, "Bob", "bob001", "bob@test.cd", "LePassword", user.StudentRoles, true)

	tests := []httpTest{
		{
			name:     "user retrieves self",
			method:   http.MethodGet,
			path:     "/v1/users/" + asha.ID,
			token:    app.getToken(t, asha),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, asha),
		},
		{
			name:     "user cannot see another user",
			method:   http.MethodGet,
			path:     "/v1/users/" + bob.ID,
			token:    app.getToken(t, asha),
			wantCode: http.StatusNotFound,
			wantData: errorData(t, codeNotFound, "not found"),
		},
		{
			name:     "admin retrieves any user",
			method:   http.MethodGet,
			path:     "/v1/users/" + bob.ID,
			token:    app.getToken(t, admin),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, bob),
		},
		{
			name:     "unknown user ID",
			method:   http.MethodGet,
			path:     "/v1/users/lol",
			token:    app.getToken(t, admin),
			wantCode: http.StatusNotFound,
			wantData: errorData(t, codeNotFound, "not found"),
		},
		{
			name:     "student cannot change own roles",
			method:   http.MethodPut,
			path:     "/v1/users/" + asha.ID,
			body:     marshallObj(t, user.UpdateUser{Roles: []string{user.RoleAdmin}}),
			token:    app.getToken(t, asha),
			wantCode: http.StatusForbidden,
			wantData: errorData(t, codeAuthorization, "permission denied"),
		},
		{
			name:     "student updates own name",
			method:   http.MethodPut,
			path:     "/v1/users/" + asha.ID,
			body:     []byte(`{"name": "Asha M"}`),
			token:    app.getToken(t, asha),
			wantCode: http.StatusOK,
		},
		{
			name:     "student cannot delete",
			method:   http.MethodDelete,
			path:     "/v1/users/" + asha.ID,
			token:    app.getToken(t, asha),
			wantCode: http.StatusForbidden,
			wantData: errorData(t, codeAuthorization, "permission denied"),
		},
		{
			name:     "admin cannot delete self",
			method:   http.MethodDelete,
			path:     "/v1/users/" + admin.ID,
			token:    app.getToken(t, admin),
			wantCode: http.StatusForbidden,
			wantData: errorData(t, codeAuthorization, "permission denied"),
		},
		{
			name:     "admin deletes another user",
			method:   http.MethodDelete,
			path:     "/v1/users/" + bob.ID,
			token:    app.getToken(t, admin),
			wantCode: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_tokenRefresh(t *testing.T) {
	app := setup(t)
	asha := app.createUser(t, "Asha", "asha01", "asha@test.cd", "LePassword", user.StudentRoles, true)
	token := app.getToken(t, asha)

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", token)
	app.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var res LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshalling LoginResponse failed: %v", err)
	}
	if res.Token == "" {
		t.Error("failed! empty token")
	}
}

func Test_userApi_queryRoles(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin1", "admin@test.cd", "LePassword", []string{user.RoleAdmin}, true)

	tt := httpTest{
		wantCode: http.StatusOK,
		wantData: marshallObj(t, user.Roles),
	}
	req, rec := newAuthRequest(http.MethodGet, "/v1/users/roles", app.getToken(t, admin))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}
