package syllabus_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/silabo/core/notification"
	"github.com/trezcool/silabo/core/syllabus"
	"github.com/trezcool/silabo/core/user"
	emailsvc "github.com/trezcool/silabo/services/email"
	inmemdb "github.com/trezcool/silabo/storage/database/inmem"
	testutil "github.com/trezcool/silabo/tests"
)

var errRepoDown = errors.New("repository unavailable")

// scriptedRepo wraps the in-memory repository so tests can count and
// fail persistence calls.
type scriptedRepo struct {
	syllabus.Repository

	mu          sync.Mutex
	creates     int
	updates     int
	createDelay time.Duration
	createErr   error
	updateErr   error
}

func (r *scriptedRepo) CreateSyllabus(s syllabus.Syllabus) (syllabus.Syllabus, error) {
	r.mu.Lock()
	r.creates++
	delay, err := r.createDelay, r.createErr
	r.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return syllabus.Syllabus{}, err
	}
	return r.Repository.CreateSyllabus(s)
}

func (r *scriptedRepo) UpdateSyllabus(s syllabus.Syllabus) (syllabus.Syllabus, error) {
	r.mu.Lock()
	r.updates++
	err := r.updateErr
	r.mu.Unlock()

	if err != nil {
		return syllabus.Syllabus{}, err
	}
	return r.Repository.UpdateSyllabus(s)
}

func (r *scriptedRepo) createCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates
}

func (r *scriptedRepo) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates
}

func (r *scriptedRepo) failCreates(err error) {
	r.mu.Lock()
	r.createErr = err
	r.mu.Unlock()
}

type testEnv struct {
	svc       *syllabus.Service
	repo      *scriptedRepo
	usrRepo   user.Repository
	notifRepo notification.Repository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	testutil.InitConfig()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	logger := testutil.NewLogger(t)
	repo := &scriptedRepo{Repository: inmemdb.NewSyllabusRepository(db)}
	usrRepo := inmemdb.NewUserRepository(db)
	notifRepo := inmemdb.NewNotificationRepository(db)
	svc := syllabus.NewService(
		repo,
		user.NewService(usrRepo),
		notification.NewService(notifRepo, logger),
		emailsvc.NewConsoleServiceMock(),
		logger,
	)
	return &testEnv{svc: svc, repo: repo, usrRepo: usrRepo, notifRepo: notifRepo}
}

func newSession(t *testing.T, env *testEnv, doc syllabus.Syllabus, interval time.Duration) *syllabus.DraftSession {
	t.Helper()
	ds := syllabus.NewDraftSession(env.svc, doc, interval, testutil.NewLogger(t), nil)
	t.Cleanup(ds.Close)
	return ds
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

func partialDraft(lecturerID string) syllabus.Syllabus {
	return syllabus.Syllabus{
		CourseTitle: "Software Engineering III",
		LecturerID:  lecturerID,
	}
}

func TestDraftSession_firstSaveCreatesAndCapturesIdentity(t *testing.T) {
	env := newTestEnv(t)
	ds := newSession(t, env, partialDraft("lect1"), time.Hour)

	if ds.Identified() {
		t.Fatal("a fresh draft must not have an identity")
	}

	saved, err := ds.SaveDraft(context.Background())
	if err != nil {
		t.Fatalf("SaveDraft() failed: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected a server-issued id")
	}
	if !ds.Identified() || ds.ID() != saved.ID {
		t.Errorf("session id = %q; want %q", ds.ID(), saved.ID)
	}
	if n := env.repo.createCount(); n != 1 {
		t.Errorf("creates = %d; want 1", n)
	}

	// subsequent saves go through the update path
	ds.Edit(func(s *syllabus.Syllabus) { s.Summary = "Large-scale software systems." })
	if _, err = ds.SaveDraft(context.Background()); err != nil {
		t.Fatalf("second SaveDraft() failed: %v", err)
	}
	if n := env.repo.createCount(); n != 1 {
		t.Errorf("creates after second save = %d; want 1", n)
	}
	if n := env.repo.updateCount(); n != 1 {
		t.Errorf("updates after second save = %d; want 1", n)
	}
	if got, err := env.svc.GetByID(saved.ID); err != nil || got.Summary != "Large-scale software systems." {
		t.Errorf("persisted summary = %q (err %v)", got.Summary, err)
	}
}

func TestDraftSession_concurrentSavesShareOneCreate(t *testing.T) {
	env := newTestEnv(t)
	env.repo.createDelay = 30 * time.Millisecond
	ds := newSession(t, env, partialDraft("lect1"), time.Hour)

	const savers = 5
	ids := make([]string, savers)
	errs := make([]error, savers)
	var wg sync.WaitGroup
	for i := 0; i < savers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			saved, err := ds.SaveDraft(context.Background())
			ids[i], errs[i] = saved.ID, err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("saver %d failed: %v", i, err)
		}
	}
	if n := env.repo.createCount(); n != 1 {
		t.Errorf("creates = %d; want exactly 1", n)
	}
	for i, id := range ids {
		if id != ids[0] {
			t.Errorf("saver %d got id %q; want %q", i, id, ids[0])
		}
	}
	// the waiters settled as updates against the captured identity
	if n := env.repo.updateCount(); n != savers-1 {
		t.Errorf("updates = %d; want %d", n, savers-1)
	}
}

func TestDraftSession_createFailureLeavesDraftUnidentified(t *testing.T) {
	env := newTestEnv(t)
	env.repo.failCreates(errRepoDown)
	ds := newSession(t, env, partialDraft("lect1"), time.Hour)

	_, err := ds.SaveDraft(context.Background())
	if err == nil {
		t.Fatal("expected a save error")
	}
	if !syllabus.IsDraftSaveFailure(err) {
		t.Errorf("expected a draft-save failure, got %v", err)
	}
	if syllabus.IsSubmitFailure(err) {
		t.Error("a draft save must not report as a submit failure")
	}
	if ds.Identified() {
		t.Error("a failed create must not capture an identity")
	}

	// the session recovers once the repository does
	env.repo.failCreates(nil)
	if _, err = ds.SaveDraft(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if !ds.Identified() {
		t.Error("expected the retry to capture an identity")
	}
}

func TestDraftSession_autosaveFiresOnceAfterQuietPeriod(t *testing.T) {
	env := newTestEnv(t)
	ds := newSession(t, env, partialDraft("lect1"), 20*time.Millisecond)

	// a burst of edits within the debounce window collapses to one save
	ds.Edit(func(s *syllabus.Syllabus) { s.CourseTitle = "S" })
	ds.Edit(func(s *syllabus.Syllabus) { s.CourseTitle = "Se" })
	ds.Edit(func(s *syllabus.Syllabus) { s.CourseTitle = "Sec" })

	if !waitFor(t, time.Second, func() bool { return ds.Identified() }) {
		t.Fatal("autosave never persisted the draft")
	}
	if n := env.repo.createCount(); n != 1 {
		t.Errorf("creates = %d; want 1", n)
	}
	got, err := env.svc.GetByID(ds.ID())
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.CourseTitle != "Sec" {
		t.Errorf("persisted title = %q; want the last edit", got.CourseTitle)
	}
}

func TestDraftSession_noAutosaveWithoutEdits(t *testing.T) {
	env := newTestEnv(t)
	newSession(t, env, partialDraft("lect1"), 10*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	if n := env.repo.createCount(); n != 0 {
		t.Errorf("creates = %d; opening a draft must not persist it", n)
	}
}

func TestDraftSession_autosaveFailureRetriesOnNextEdit(t *testing.T) {
	env := newTestEnv(t)
	env.repo.failCreates(errRepoDown)

	var mu sync.Mutex
	var notices []error
	notify := func(err error) {
		mu.Lock()
		notices = append(notices, err)
		mu.Unlock()
	}
	ds := syllabus.NewDraftSession(env.svc, partialDraft("lect1"), 10*time.Millisecond, testutil.NewLogger(t), notify)
	defer ds.Close()

	ds.Edit(func(s *syllabus.Syllabus) { s.Summary = "v1" })
	if !waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(notices) > 0
	}) {
		t.Fatal("the failure was never surfaced")
	}
	mu.Lock()
	notice := notices[0]
	mu.Unlock()
	if !syllabus.IsDraftSaveFailure(notice) {
		t.Errorf("expected a draft-save failure notice, got %v", notice)
	}
	if ds.Identified() {
		t.Fatal("a failed autosave must not capture an identity")
	}

	env.repo.failCreates(nil)
	ds.Edit(func(s *syllabus.Syllabus) { s.Summary = "v2" })
	if !waitFor(t, time.Second, func() bool { return ds.Identified() }) {
		t.Fatal("the next edit never retried the save")
	}
}

func TestDraftSession_closeCancelsPendingAutosave(t *testing.T) {
	env := newTestEnv(t)
	ds := newSession(t, env, partialDraft("lect1"), 20*time.Millisecond)

	ds.Edit(func(s *syllabus.Syllabus) { s.Summary = "about to leave" })
	ds.Close()

	time.Sleep(80 * time.Millisecond)
	if n := env.repo.createCount(); n != 0 {
		t.Errorf("creates = %d; closing must cancel the pending save", n)
	}
}

func TestDraftSession_disableAutosaveCancelsPending(t *testing.T) {
	env := newTestEnv(t)
	ds := newSession(t, env, partialDraft("lect1"), 20*time.Millisecond)

	ds.Edit(func(s *syllabus.Syllabus) { s.Summary = "unsaved" })
	ds.SetAutosaveEnabled(false)

	time.Sleep(80 * time.Millisecond)
	if n := env.repo.createCount(); n != 0 {
		t.Errorf("creates = %d; disabling must cancel the pending save", n)
	}
}

func TestDraftSession_explicitSaveSuppressesPendingAutosave(t *testing.T) {
	env := newTestEnv(t)
	ds := newSession(t, env, partialDraft("lect1"), 30*time.Millisecond)

	ds.Edit(func(s *syllabus.Syllabus) { s.Summary = "saved by hand" })
	if _, err := ds.SaveDraft(context.Background()); err != nil {
		t.Fatalf("SaveDraft() failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if n := env.repo.createCount() + env.repo.updateCount(); n != 1 {
		t.Errorf("persists = %d; the explicit save must absorb the pending autosave", n)
	}
}

func TestDraftSession_submitMovesDraftIntoReview(t *testing.T) {
	env := newTestEnv(t)
	lect := testutil.CreateUser(t, env.usrRepo, "Ada", "ada", "ada@silabo.cd", "", user.LecturerRoles, true)
	rev := testutil.CreateUser(t, env.usrRepo, "Rita", "rita", "rita@silabo.cd", "", user.ReviewerRoles, true)

	ds := newSession(t, env, testutil.CompleteSyllabus("year1", lect.ID), time.Hour)
	submitted, err := ds.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if submitted.Status != syllabus.StatusPendingReview {
		t.Errorf("status = %q; want %q", submitted.Status, syllabus.StatusPendingReview)
	}
	if doc := ds.Document(); doc.Status != syllabus.StatusPendingReview {
		t.Errorf("session document status = %q; want %q", doc.Status, syllabus.StatusPendingReview)
	}

	notifs, err := env.notifRepo.QueryNotificationsByUserID(rev.ID)
	if err != nil {
		t.Fatalf("querying notifications: %v", err)
	}
	if len(notifs) != 1 {
		t.Fatalf("reviewer notifications = %d; want 1", len(notifs))
	}
	if notifs[0].RefID != submitted.ID {
		t.Errorf("notification ref = %q; want %q", notifs[0].RefID, submitted.ID)
	}
}

func TestDraftSession_submitOfIncompleteDraftIsSubmitFailure(t *testing.T) {
	env := newTestEnv(t)
	ds := newSession(t, env, partialDraft("lect1"), time.Hour)

	_, err := ds.Submit(context.Background())
	if err == nil {
		t.Fatal("expected a submit error")
	}
	if !syllabus.IsSubmitFailure(err) {
		t.Errorf("expected a submit failure, got %v", err)
	}
	// the draft itself was persisted; only the transition was refused
	if !ds.Identified() {
		t.Error("submit must still persist the draft before validating")
	}
	got, err := env.svc.GetByID(ds.ID())
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.Status != syllabus.StatusDraft {
		t.Errorf("status = %q; want %q", got.Status, syllabus.StatusDraft)
	}
}

func TestDraftSession_identifiedSessionSkipsCreate(t *testing.T) {
	env := newTestEnv(t)
	lect := testutil.CreateUser(t, env.usrRepo, "Ada", "ada2", "ada2@silabo.cd", "", user.LecturerRoles, true)

	seed, err := env.svc.Create(testutil.CompleteSyllabus("year1", lect.ID))
	if err != nil {
		t.Fatalf("seeding syllabus: %v", err)
	}
	env.repo.mu.Lock()
	env.repo.creates = 0
	env.repo.mu.Unlock()

	ds := newSession(t, env, seed, time.Hour)
	if !ds.Identified() {
		t.Fatal("a persisted document must open identified")
	}
	ds.Edit(func(s *syllabus.Syllabus) { s.Summary = "revised" })
	if _, err = ds.SaveDraft(context.Background()); err != nil {
		t.Fatalf("SaveDraft() failed: %v", err)
	}
	if n := env.repo.createCount(); n != 0 {
		t.Errorf("creates = %d; an identified session must never create", n)
	}
}
