package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	. "github.com/trezcool/silabo/apps/api/echo"
	"github.com/trezcool/silabo/core/academic"
	"github.com/trezcool/silabo/core/notification"
	"github.com/trezcool/silabo/core/syllabus"
	"github.com/trezcool/silabo/core/user"
	emailsvc "github.com/trezcool/silabo/services/email"
	inmemdb "github.com/trezcool/silabo/storage/database/inmem"
	testutil "github.com/trezcool/silabo/tests"
)

var (
	app Server

	usrRepo   user.Repository
	notifRepo notification.Repository

	usrSvc   *user.Service
	sylSvc   *syllabus.Service
	cmtSvc   *syllabus.CommentService
	notifSvc *notification.Service
	yearSvc  *academic.Service

	errMissingToken     = httpErr{Error: "missing or malformed jwt"}
	errPermissionDenied = httpErr{Error: "permission denied"}
	errNotFound         = httpErr{Error: "not found"}
)

func TestMain(m *testing.M) {
	testutil.InitConfig()
	resetApp()
	os.Exit(m.Run())
}

// resetApp rebuilds the whole stack on a fresh in-memory database; tests
// call it first to start from a clean slate.
func resetApp() {
	db, err := inmemdb.Open()
	if err != nil {
		fmt.Printf("inmemdb.Open(): %v\n", err)
		os.Exit(1)
	}

	logger := nopLogger{}
	mailSvc := emailsvc.NewConsoleServiceMock()

	usrRepo = inmemdb.NewUserRepository(db)
	notifRepo = inmemdb.NewNotificationRepository(db)

	usrSvc = user.NewService(usrRepo)
	notifSvc = notification.NewService(notifRepo, logger)
	sylSvc = syllabus.NewService(inmemdb.NewSyllabusRepository(db), usrSvc, notifSvc, mailSvc, logger)
	cmtSvc = syllabus.NewCommentService(inmemdb.NewCommentRepository(db))
	yearSvc = academic.NewService(inmemdb.NewAcademicYearRepository(db))

	app = NewServer(&Options{
		DisableReqLogs: true,
		Logger:         logger,
		UserSvc:        usrSvc,
		SyllabusSvc:    sylSvc,
		CommentSvc:     cmtSvc,
		NotifSvc:       notifSvc,
		AcademicSvc:    yearSvc,
	})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
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

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
