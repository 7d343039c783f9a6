package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/silabo/core/academic"
	"github.com/trezcool/silabo/core/user"
	testutil "github.com/trezcool/silabo/tests"
)

func createAcademicYear(t *testing.T, name string, start time.Time) academic.AcademicYear {
	t.Helper()
	y, err := yearSvc.Create(academic.NewAcademicYear{
		Name:      name,
		StartDate: start,
		EndDate:   start.AddDate(0, 10, 0),
	})
	if err != nil {
		t.Fatalf("createAcademicYear() failed: %v", err)
	}
	return y
}

func Test_academicApi_create(t *testing.T) {
	resetApp()

	lect := testutil.CreateUser(t, usrRepo, "Ada Mwamba", "ada", "ada@test.cd", "", user.LecturerRoles, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", user.AdminRoles, true)

	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	body := marchallObj(t, academic.NewAcademicYear{
		Name:      "2025/2026",
		StartDate: start,
		EndDate:   start.AddDate(0, 10, 0),
	})

	tests := []httpTest{
		{name: "Auth required", body: body, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, lect), body: body,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "Name format enforced", token: getToken(t, admin),
			body: marchallObj(t, academic.NewAcademicYear{
				Name: "2025-2026", StartDate: start, EndDate: start.AddDate(0, 10, 0),
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "must be an academic year like 2025/2026"}),
		},
		{name: "Created", token: getToken(t, admin), body: body, wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/academic-years", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				assert.Equal(t, http.StatusCreated, rec.Code)
				var created academic.AcademicYear
				if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
					t.Fatalf("unmarshalling AcademicYear: %v", err)
				}
				assert.NotEmpty(t, created.ID)
				assert.Equal(t, "2025/2026", created.Name)
				assert.False(t, created.IsActive)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_academicApi_activation(t *testing.T) {
	resetApp()

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", user.AdminRoles, true)
	adminToken := getToken(t, admin)

	y1 := createAcademicYear(t, "2024/2025", time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))
	y2 := createAcademicYear(t, "2025/2026", time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))

	// no active year yet
	req, rec := newAuthRequest(http.MethodGet, "/v1/academic-years/active", adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	activate := func(id string) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/academic-years/"+id+"/activate", adminToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	activate(y1.ID)
	activate(y2.ID)

	// activating the second year deactivated the first
	req, rec = newAuthRequest(http.MethodGet, "/v1/academic-years/active", adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var active academic.AcademicYear
	if err := json.Unmarshal(rec.Body.Bytes(), &active); err != nil {
		t.Fatalf("unmarshalling AcademicYear: %v", err)
	}
	assert.Equal(t, y2.ID, active.ID)

	years, err := yearSvc.QueryAll()
	if err != nil {
		t.Fatalf("QueryAll() failed: %v", err)
	}
	actives := 0
	for _, y := range years {
		if y.IsActive {
			actives++
		}
	}
	assert.Equal(t, 1, actives)

	// deactivation leaves no active year
	req, rec = newAuthRequest(http.MethodPost, "/v1/academic-years/"+y2.ID+"/deactivate", adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	req, rec = newAuthRequest(http.MethodGet, "/v1/academic-years/active", adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_academicApi_query(t *testing.T) {
	resetApp()

	lect := testutil.CreateUser(t, usrRepo, "Ada Mwamba", "ada", "ada@test.cd", "", user.LecturerRoles, true)
	y1 := createAcademicYear(t, "2024/2025", time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))
	y2 := createAcademicYear(t, "2025/2026", time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))

	// any authenticated user can list years, newest first
	tt := httpTest{wantCode: http.StatusOK, wantData: marchallList(t, y2, y1)}
	req, rec := newAuthRequest(http.MethodGet, "/v1/academic-years", getToken(t, lect))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}
