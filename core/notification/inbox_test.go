package notification_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/silabo/core/notification"
	"github.com/trezcool/silabo/storage/cache"
	inmemdb "github.com/trezcool/silabo/storage/database/inmem"
	testutil "github.com/trezcool/silabo/tests"
)

type failableNotifRepo struct {
	notification.Repository

	mu        sync.Mutex
	updateErr error
}

func (r *failableNotifRepo) UpdateNotification(n notification.Notification) (notification.Notification, error) {
	r.mu.Lock()
	err := r.updateErr
	r.mu.Unlock()
	if err != nil {
		return notification.Notification{}, err
	}
	return r.Repository.UpdateNotification(n)
}

func (r *failableNotifRepo) failUpdates(err error) {
	r.mu.Lock()
	r.updateErr = err
	r.mu.Unlock()
}

func newInboxEnv(t *testing.T) (*notification.Service, *failableNotifRepo) {
	t.Helper()
	testutil.InitConfig()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	repo := &failableNotifRepo{Repository: inmemdb.NewNotificationRepository(db)}
	return notification.NewService(repo, testutil.NewLogger(t)), repo
}

func notify(t *testing.T, svc *notification.Service, userID, msg string) notification.Notification {
	t.Helper()
	n, err := svc.Notify(userID, notification.KindSyllabusReviewed, msg, "syl1")
	if err != nil {
		t.Fatalf("Notify() failed: %v", err)
	}
	return n
}

func TestInbox_loadAndUnreadCount(t *testing.T) {
	svc, _ := newInboxEnv(t)
	notify(t, svc, "usr1", "first")
	notify(t, svc, "usr1", "second")
	notify(t, svc, "usr2", "someone else's")

	in := notification.NewInbox(svc, cache.NewMemoryCache(), "usr1")
	notifs, err := in.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(notifs) != 2 {
		t.Fatalf("inbox length = %d; want 2", len(notifs))
	}
	unread, err := in.Unread()
	if err != nil {
		t.Fatalf("Unread() failed: %v", err)
	}
	if unread != 2 {
		t.Errorf("Unread() = %d; want 2", unread)
	}
}

func TestInbox_markReadSettles(t *testing.T) {
	svc, _ := newInboxEnv(t)
	n := notify(t, svc, "usr1", "first")
	notify(t, svc, "usr1", "second")

	in := notification.NewInbox(svc, cache.NewMemoryCache(), "usr1")
	if _, err := in.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if err := in.MarkRead(context.Background(), n.ID, true); err != nil {
		t.Fatalf("MarkRead() failed: %v", err)
	}

	unread, err := in.Unread()
	if err != nil {
		t.Fatalf("Unread() failed: %v", err)
	}
	if unread != 1 {
		t.Errorf("Unread() = %d; want 1", unread)
	}

	// the source of truth was updated too
	stored, err := svc.GetByID(n.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if !stored.Read {
		t.Error("the stored notification must be read")
	}
}

func TestInbox_failedMarkReadRestoresTheView(t *testing.T) {
	svc, repo := newInboxEnv(t)
	n := notify(t, svc, "usr1", "first")

	in := notification.NewInbox(svc, cache.NewMemoryCache(), "usr1")
	if _, err := in.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	repo.failUpdates(errors.New("update refused"))
	if err := in.MarkRead(context.Background(), n.ID, true); err == nil {
		t.Fatal("expected MarkRead to fail")
	}

	unread, err := in.Unread()
	if err != nil {
		t.Fatalf("Unread() failed: %v", err)
	}
	if unread != 1 {
		t.Errorf("Unread() = %d; the failed flip must be rolled back", unread)
	}
}

func TestInbox_markAllRead(t *testing.T) {
	svc, _ := newInboxEnv(t)
	notify(t, svc, "usr1", "first")
	notify(t, svc, "usr1", "second")
	other := notify(t, svc, "usr2", "someone else's")

	in := notification.NewInbox(svc, cache.NewMemoryCache(), "usr1")
	if _, err := in.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if err := in.MarkAllRead(context.Background()); err != nil {
		t.Fatalf("MarkAllRead() failed: %v", err)
	}

	unread, err := in.Unread()
	if err != nil {
		t.Fatalf("Unread() failed: %v", err)
	}
	if unread != 0 {
		t.Errorf("Unread() = %d; want 0", unread)
	}

	// other inboxes are untouched
	stored, err := svc.GetByID(other.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if stored.Read {
		t.Error("another user's notification must stay unread")
	}
}

func TestInbox_markReadRefusesForeignNotifications(t *testing.T) {
	svc, _ := newInboxEnv(t)
	notify(t, svc, "usr1", "mine")
	foreign := notify(t, svc, "usr2", "someone else's")

	in := notification.NewInbox(svc, cache.NewMemoryCache(), "usr1")
	if _, err := in.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	err := in.MarkRead(context.Background(), foreign.ID, true)
	if errors.Cause(err) != notification.ErrNotFound {
		t.Fatalf("MarkRead() error = %v; want %v", err, notification.ErrNotFound)
	}

	// the refusal happened before anything reached the source of truth
	stored, err := svc.GetByID(foreign.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if stored.Read {
		t.Error("the foreign notification must stay unread")
	}
}
