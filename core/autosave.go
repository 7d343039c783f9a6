package core

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// DirtyTracker detects change in a watched value by structural comparison
// against the last captured snapshot. The first observation only captures;
// dirtiness is always relative to the last call to Capture.
type DirtyTracker struct {
	captured interface{}
	primed   bool
}

// Dirty reports whether v differs structurally from the captured snapshot.
// Before any capture it reports false.
func (dt *DirtyTracker) Dirty(v interface{}) bool {
	if !dt.primed {
		return false
	}
	return !ValuesEqual(v, dt.captured)
}

// Capture snapshots v as the new clean state.
func (dt *DirtyTracker) Capture(v interface{}) error {
	cp, err := CopyValue(v)
	if err != nil {
		return errors.Wrap(err, "capturing clean state")
	}
	dt.captured = cp
	dt.primed = true
	return nil
}

func (dt *DirtyTracker) Primed() bool { return dt.primed }

type (
	// PersistFunc receives the settled value once a debounce window closes.
	PersistFunc func(value interface{}) error

	// AutoSaver collapses bursts of change into one persist call per quiet
	// period. It owns no domain knowledge: callers feed it observations and
	// it fires the persist callback with the last settled value.
	//
	// At most one timer is live at any time; a new change always cancels
	// and rearms rather than stacking timers.
	AutoSaver struct {
		interval time.Duration
		persist  PersistFunc
		onError  func(error)

		mu      sync.Mutex
		tracker DirtyTracker
		pending interface{}
		timer   *time.Timer
		enabled bool
		stopped bool
	}
)

// NewAutoSaver returns an enabled AutoSaver. onError is invoked with persist
// failures; it must not block. A zero or negative interval falls back to the
// configured Conf.AutosaveInterval, then to 30s.
func NewAutoSaver(interval time.Duration, persist PersistFunc, onError func(error)) *AutoSaver {
	if interval <= 0 {
		if Conf != nil && Conf.AutosaveInterval > 0 {
			interval = Conf.AutosaveInterval
		} else {
			interval = 30 * time.Second
		}
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &AutoSaver{
		interval: interval,
		persist:  persist,
		onError:  onError,
		enabled:  true,
	}
}

// Observe feeds the current value. The first observation captures without
// scheduling a persist, so mounting with an initial value never fires.
func (as *AutoSaver) Observe(v interface{}) {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.stopped {
		return
	}
	if !as.tracker.Primed() {
		if err := as.tracker.Capture(v); err != nil {
			as.onError(err)
		}
		return
	}
	if !as.enabled || !as.tracker.Dirty(v) {
		return
	}

	cp, err := CopyValue(v)
	if err != nil {
		as.onError(errors.Wrap(err, "copying observed value"))
		return
	}
	as.pending = cp

	if as.timer == nil {
		as.timer = time.AfterFunc(as.interval, as.onTimer)
		return
	}
	as.timer.Stop()
	as.timer.Reset(as.interval)
}

func (as *AutoSaver) onTimer() {
	as.mu.Lock()
	if as.stopped || !as.enabled || as.pending == nil {
		as.mu.Unlock()
		return
	}
	val := as.pending
	as.pending = nil
	as.mu.Unlock()

	// The callback runs outside the lock so a slow persist never delays
	// new observations.
	if err := as.persist(val); err != nil {
		// The clean snapshot is left untouched: the document is still
		// dirty and the next edit rearms the timer for a retry.
		as.onError(err)
		return
	}

	as.mu.Lock()
	if err := as.tracker.Capture(val); err != nil {
		as.onError(err)
	}
	as.mu.Unlock()
}

// SetEnabled toggles scheduling. Disabling cancels any pending timer;
// changes observed while disabled do not persist.
func (as *AutoSaver) SetEnabled(enabled bool) {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.enabled = enabled
	if !enabled {
		as.pending = nil
		as.cancelTimer()
	}
}

// MarkClean recaptures v as the persisted state, suppressing any pending
// fire. Callers use it after an explicit save performed outside the saver.
func (as *AutoSaver) MarkClean(v interface{}) {
	as.mu.Lock()
	defer as.mu.Unlock()
	if err := as.tracker.Capture(v); err != nil {
		as.onError(err)
		return
	}
	as.pending = nil
	as.cancelTimer()
}

// Stop tears the saver down, cancelling any pending timer so it can never
// fire into a destroyed context. A stopped saver ignores all observations.
func (as *AutoSaver) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.stopped = true
	as.pending = nil
	as.cancelTimer()
}

func (as *AutoSaver) cancelTimer() {
	if as.timer != nil {
		as.timer.Stop()
		as.timer = nil
	}
}
