package syllabus

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/silabo/core"
)

// SaveError wraps a persistence failure. Draft-save failures are transient
// and retryable; submit failures block progression past the review step and
// must be shown. The two classes are distinguished because the user-visible
// remedy differs.
type SaveError struct {
	Submit bool
	Err    error
}

func (e *SaveError) Error() string {
	if e.Submit {
		return "submitting syllabus: " + e.Err.Error()
	}
	return "saving draft: " + e.Err.Error()
}

func (e *SaveError) Cause() error  { return e.Err }
func (e *SaveError) Unwrap() error { return e.Err }

func IsSubmitFailure(err error) bool {
	var se *SaveError
	return errors.As(err, &se) && se.Submit
}

func IsDraftSaveFailure(err error) bool {
	var se *SaveError
	return errors.As(err, &se) && !se.Submit
}

// createCall is the single in-flight creation shared by all persist
// callers while the session is still unidentified.
type createCall struct {
	done chan struct{}
}

// DraftSession coordinates one editing session of a Syllabus: it owns the
// in-memory document, debounces background saves, and reconciles the draft
// identity.
//
// Identity is a two-state machine: unidentified (no server id) and
// identified. The transition happens exactly once, on the first create
// success to land; the id is immutable for the rest of the session and a
// late-resolving create response never overwrites it. While unidentified,
// at most one create request is in flight; concurrent persists wait for it
// to settle and then proceed as updates.
type DraftSession struct {
	svc       *Service
	logger    core.Logger
	notifyErr func(error)

	mu       sync.Mutex
	doc      Syllabus
	id       string // "" = unidentified
	inflight *createCall

	saver *core.AutoSaver
}

// NewDraftSession starts a session over doc. A zero interval falls back to
// the AutoSaver default. notifyErr surfaces background save failures as
// transient notices; it must not block.
func NewDraftSession(svc *Service, doc Syllabus, interval time.Duration, logger core.Logger, notifyErr func(error)) *DraftSession {
	if notifyErr == nil {
		notifyErr = func(error) {}
	}
	ds := &DraftSession{
		svc:       svc,
		logger:    logger,
		notifyErr: notifyErr,
		doc:       doc,
		id:        doc.ID,
	}
	ds.saver = core.NewAutoSaver(interval, ds.persistValue, ds.reportSaveError)
	ds.saver.Observe(ds.Document()) // prime: never fire on mount
	return ds
}

// Document returns a structural copy of the in-memory document.
func (ds *DraftSession) Document() Syllabus {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	cp, err := core.CopyValue(ds.doc)
	if err != nil {
		// Syllabus is plain data; a copy failure is a programming error.
		panic(err)
	}
	return cp.(Syllabus)
}

// Identified reports whether the document has a server identity.
func (ds *DraftSession) Identified() bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.id != ""
}

func (ds *DraftSession) ID() string {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.id
}

// Edit applies a mutation to the in-memory document and feeds the result to
// the autosave scheduler.
func (ds *DraftSession) Edit(mutate func(*Syllabus)) {
	ds.mu.Lock()
	mutate(&ds.doc)
	ds.mu.Unlock()
	ds.saver.Observe(ds.Document())
}

// SetAutosaveEnabled toggles background saving; disabling cancels any
// pending save.
func (ds *DraftSession) SetAutosaveEnabled(enabled bool) {
	ds.saver.SetEnabled(enabled)
}

// SaveDraft persists the current document immediately. It shares identity
// state with the background scheduler, so an explicit save can never race a
// background save into a duplicate create.
func (ds *DraftSession) SaveDraft(ctx context.Context) (Syllabus, error) {
	saved, err := ds.persistDoc(ctx, ds.Document(), false)
	if err != nil {
		return Syllabus{}, err
	}
	ds.saver.MarkClean(ds.Document())
	return saved, nil
}

// Submit persists the full document (create-or-update, identical branching
// to draft saves) and moves it into review. The caller always gets back the
// canonical identified document.
func (ds *DraftSession) Submit(ctx context.Context) (Syllabus, error) {
	saved, err := ds.persistDoc(ctx, ds.Document(), true)
	if err != nil {
		return Syllabus{}, err
	}
	ds.saver.MarkClean(ds.Document())

	submitted, err := ds.svc.SubmitForReview(saved.ID)
	if err != nil {
		return Syllabus{}, &SaveError{Submit: true, Err: err}
	}

	ds.mu.Lock()
	ds.doc.Status = submitted.Status
	ds.doc.Version = submitted.Version
	ds.doc.UpdatedAt = submitted.UpdatedAt
	ds.mu.Unlock()
	return submitted, nil
}

// Close tears the session down; any pending autosave timer is cancelled.
// In-flight requests are not cancelled: the identity rule, not
// cancellation, is what keeps racing persists correct.
func (ds *DraftSession) Close() {
	ds.saver.Stop()
}

// persistValue adapts the autosave callback: it persists the settled
// snapshot from the debounce window, not the possibly newer live document.
func (ds *DraftSession) persistValue(v interface{}) error {
	doc, ok := v.(Syllabus)
	if !ok {
		return errors.Errorf("unexpected autosave value of type %T", v)
	}
	_, err := ds.persistDoc(context.Background(), doc, false)
	return err
}

func (ds *DraftSession) reportSaveError(err error) {
	// Draft failures never interrupt editing; the next edit retries.
	if ds.logger != nil {
		ds.logger.Warn("background draft save failed", err)
	}
	ds.notifyErr(err)
}

// persistDoc routes a persist through the identity state machine.
func (ds *DraftSession) persistDoc(ctx context.Context, doc Syllabus, submit bool) (Syllabus, error) {
	for {
		ds.mu.Lock()
		if ds.id != "" {
			id := ds.id
			ds.mu.Unlock()

			doc.ID = id
			saved, err := ds.svc.Update(id, doc)
			if err != nil {
				return Syllabus{}, &SaveError{Submit: submit, Err: err}
			}
			ds.syncSaved(saved)
			return saved, nil
		}

		if call := ds.inflight; call != nil {
			// Another persist is already creating; wait for it to settle
			// and re-read the shared state.
			ds.mu.Unlock()
			select {
			case <-call.done:
			case <-ctx.Done():
				return Syllabus{}, &SaveError{Submit: submit, Err: ctx.Err()}
			}
			continue
		}

		call := &createCall{done: make(chan struct{})}
		ds.inflight = call
		ds.mu.Unlock()

		saved, err := ds.svc.Create(doc)

		ds.mu.Lock()
		ds.inflight = nil
		if err != nil {
			ds.mu.Unlock()
			close(call.done)
			return Syllabus{}, &SaveError{Submit: submit, Err: err}
		}
		if !ds.captureIdentityLocked(saved.ID) {
			// A racing create landed first; its id stands.
			saved.ID = ds.id
		}
		ds.mu.Unlock()
		close(call.done)
		return saved, nil
	}
}

// captureIdentityLocked records the server-issued id. Only the first
// success wins; later captures are rejected. Callers must hold ds.mu.
func (ds *DraftSession) captureIdentityLocked(id string) bool {
	if ds.id != "" {
		return false
	}
	ds.id = id
	ds.doc.ID = id
	return true
}

func (ds *DraftSession) syncSaved(saved Syllabus) {
	ds.mu.Lock()
	ds.doc.Version = saved.Version
	ds.doc.UpdatedAt = saved.UpdatedAt
	ds.mu.Unlock()
}
