package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/silabo/apps/api/echo"
	"github.com/trezcool/silabo/core"
	"github.com/trezcool/silabo/core/user"
	testutil "github.com/trezcool/silabo/tests"
)

func Test_userApi_login(t *testing.T) {
	resetApp()

	testutil.CreateUser(t, usrRepo, "Ada Mwamba", "ada", "ada@test.cd", "LePass123!", user.LecturerRoles, true)
	testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@test.cd", "LePass123!", user.LecturerRoles, false)

	requiredErrs := marchallObj(t, map[string]string{
		"username": "this field is required",
		"password": "this field is required",
	})

	tests := []httpTest{
		{name: "Fields required", body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: requiredErrs},
		{
			name: "Unknown user", body: marchallObj(t, LoginRequest{Username: "who", Password: "LePass123!"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Wrong password", body: marchallObj(t, LoginRequest{Username: "ada", Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Deactivated account", body: marchallObj(t, LoginRequest{Username: "ndog", Password: "LePass123!"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Login by email works too", body: marchallObj(t, LoginRequest{Username: "ada@test.cd", Password: "LePass123!"}),
			wantCode: http.StatusOK,
		},
		{name: "Login ok", body: marchallObj(t, LoginRequest{Username: "ada", Password: "LePass123!"}), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				assert.Equal(t, http.StatusOK, rec.Code)
				var resp LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshalling LoginResponse: %v", err)
				}
				assert.NotEmpty(t, resp.Token)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_tokenRefresh(t *testing.T) {
	resetApp()

	lect := testutil.CreateUser(t, usrRepo, "Ada Mwamba", "ada", "ada@test.cd", "", user.LecturerRoles, true)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@test.cd", "", user.LecturerRoles, false)

	// a token whose original issue date is past the refresh window
	staleOriat := time.Now().Add(-2 * core.Conf.Server.JWTRefreshExpirationDelta).Unix()
	staleToken, err := GenerateToken(GetUserClaims(lect, staleOriat))
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Inactive user not allowed", token: getToken(t, naughty),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Refresh period expired", token: staleToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: getToken(t, lect), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", tt.token)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				assert.Equal(t, http.StatusOK, rec.Code)
				var resp LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshalling LoginResponse: %v", err)
				}
				assert.NotEmpty(t, resp.Token)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userQuery(t *testing.T) {
	resetApp()

	lect := testutil.CreateUser(t, usrRepo, "Ada Mwamba", "ada", "ada@test.cd", "", user.LecturerRoles, true)
	rev := testutil.CreateUser(t, usrRepo, "Rita Kabila", "rita", "rita@test.cd", "", user.ReviewerRoles, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", user.AdminRoles, true)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, lect),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "Reviewers are not admins either", token: getToken(t, rev),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "Get all", token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallList(t, lect, rev, admin),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userDetail(t *testing.T) {
	resetApp()

	lect := testutil.CreateUser(t, usrRepo, "Ada Mwamba", "ada", "ada@test.cd", "", user.LecturerRoles, true)
	other := testutil.CreateUser(t, usrRepo, "Beko Ilunga", "beko", "beko@test.cd", "", user.LecturerRoles, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", user.AdminRoles, true)

	tests := []httpTest{
		{
			name: "Own detail", path: "/v1/users/" + lect.ID, token: getToken(t, lect),
			wantCode: http.StatusOK, wantData: marchallObj(t, lect),
		},
		{
			name: "Someone else's detail is hidden", path: "/v1/users/" + other.ID, token: getToken(t, lect),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Admin sees anyone", path: "/v1/users/" + other.ID, token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallObj(t, other),
		},
		{
			name: "Unknown id", path: "/v1/users/nope", token: getToken(t, admin),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userDestroy(t *testing.T) {
	resetApp()

	victim := testutil.CreateUser(t, usrRepo, "Ada Mwamba", "ada", "ada@test.cd", "", user.LecturerRoles, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", user.AdminRoles, true)
	adminToken := getToken(t, admin)

	tests := []httpTest{
		{
			name: "Non-admins cannot delete", path: "/v1/users/" + victim.ID, token: getToken(t, victim),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "Admins cannot delete themselves", path: "/v1/users/" + admin.ID, token: adminToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{name: "Deleted", path: "/v1/users/" + victim.ID, token: adminToken, wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodDelete, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
		})
	}

	if _, err := usrSvc.GetByID(victim.ID); err != user.ErrNotFound {
		t.Errorf("GetByID() after delete = %v; want ErrNotFound", err)
	}
}

func Test_userApi_register(t *testing.T) {
	resetApp()

	lect := testutil.CreateUser(t, usrRepo, "Ada Mwamba", "ada", "ada@test.cd", "", user.LecturerRoles, true)
	registrar := testutil.CreateUser(t, usrRepo, "Reg", "reg", "reg@test.cd", "", []string{user.RoleAdminRegistrar}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", user.AdminRoles, true)

	newLect := user.NewUser{
		Name:            "Beko Ilunga",
		Username:        "bekoilunga",
		Email:           "beko@test.cd",
		Password:        "V3ryStr0ng!",
		PasswordConfirm: "V3ryStr0ng!",
		Roles:           user.LecturerRoles,
	}

	tests := []httpTest{
		{
			name: "Admin required", token: getToken(t, lect), body: marchallObj(t, newLect),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "Cannot grant a role above your own", token: getToken(t, registrar),
			body: marchallObj(t, user.NewUser{
				Name: "Root", Username: "rootadmin", Email: "root@test.cd",
				Password: "V3ryStr0ng!", PasswordConfirm: "V3ryStr0ng!", Roles: []string{user.RoleAdmin},
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{name: "Registered", token: getToken(t, admin), body: marchallObj(t, newLect), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				assert.Equal(t, http.StatusCreated, rec.Code)
				var created user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
					t.Fatalf("unmarshalling User: %v", err)
				}
				assert.Equal(t, "bekoilunga", created.Username)
				assert.True(t, created.IsLecturer())
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}
