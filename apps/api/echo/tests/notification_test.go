package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/silabo/core/notification"
	"github.com/trezcool/silabo/core/user"
	testutil "github.com/trezcool/silabo/tests"
)

func Test_notificationApi(t *testing.T) {
	resetApp()

	ada := testutil.CreateUser(t, usrRepo, "Ada Mwamba", "ada", "ada@test.cd", "", user.LecturerRoles, true)
	rita := testutil.CreateUser(t, usrRepo, "Rita Kabila", "rita", "rita@test.cd", "", user.ReviewerRoles, true)
	adaToken := getToken(t, ada)

	adaNotif, err := notifSvc.Notify(ada.ID, notification.KindSyllabusReviewed, "your SE301 syllabus was approved", "syl1")
	if err != nil {
		t.Fatalf("Notify() failed: %v", err)
	}
	ritaNotif, err := notifSvc.Notify(rita.ID, notification.KindSyllabusSubmitted, "Ada Mwamba submitted the SE301 syllabus for review", "syl1")
	if err != nil {
		t.Fatalf("Notify() failed: %v", err)
	}

	// the inbox only ever shows the authenticated user's notices
	req, rec := newAuthRequest(http.MethodGet, "/v1/notifications", adaToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var notifs []notification.Notification
	if err := json.Unmarshal(rec.Body.Bytes(), &notifs); err != nil {
		t.Fatalf("unmarshalling notifications: %v", err)
	}
	if assert.Len(t, notifs, 1) {
		assert.Equal(t, adaNotif.ID, notifs[0].ID)
		assert.False(t, notifs[0].Read)
	}

	// someone else's notification reads as absent
	req, rec = newAuthRequest(http.MethodPost, "/v1/notifications/"+ritaNotif.ID+"/read", adaToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, "/v1/notifications/"+adaNotif.ID+"/read", adaToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var read notification.Notification
	if err := json.Unmarshal(rec.Body.Bytes(), &read); err != nil {
		t.Fatalf("unmarshalling notification: %v", err)
	}
	assert.True(t, read.Read)

	// read-all only touches the caller's inbox
	req, rec = newAuthRequest(http.MethodPost, "/v1/notifications/read-all", adaToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	stored, err := notifSvc.GetByID(ritaNotif.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	assert.False(t, stored.Read)
}
