package core

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const placeholderPrefix = "local-"

// PlaceholderID returns a locally generated identifier for a sub-resource
// created speculatively, before the server has confirmed it. Placeholder ids
// never collide with server-issued ids and are discarded wholesale by the
// post-success refresh.
func PlaceholderID() string {
	return placeholderPrefix + uuid.New().String()
}

func IsPlaceholderID(id string) bool {
	return strings.HasPrefix(id, placeholderPrefix)
}

type snapEntry struct {
	key     string
	value   interface{}
	present bool
}

// MutationSnapshot is a previous-value capture of the cache regions a
// mutation is about to touch. It is consumed exactly once: discarded on
// success or used to restore state on failure.
type MutationSnapshot struct {
	cache   Cache
	entries []snapEntry
	used    bool
}

// Snapshot captures the listed keys from the cache by value.
func Snapshot(cache Cache, keys ...string) (*MutationSnapshot, error) {
	snap := &MutationSnapshot{cache: cache, entries: make([]snapEntry, 0, len(keys))}
	for _, key := range keys {
		val, err := cache.Read(key)
		if err != nil {
			if err == ErrCacheMiss {
				snap.entries = append(snap.entries, snapEntry{key: key})
				continue
			}
			return nil, errors.Wrapf(err, "snapshotting %q", key)
		}
		cp, err := CopyValue(val)
		if err != nil {
			return nil, errors.Wrapf(err, "copying %q", key)
		}
		snap.entries = append(snap.entries, snapEntry{key: key, value: cp, present: true})
	}
	return snap, nil
}

// Restore overwrites every captured key with its captured value. Keys that
// were absent at capture time are invalidated. Restoring twice is a no-op.
func (snap *MutationSnapshot) Restore() {
	if snap.used {
		return
	}
	snap.used = true
	for _, e := range snap.entries {
		if e.present {
			_ = snap.cache.Write(e.key, e.value)
		} else {
			snap.cache.Invalidate(e.key)
		}
	}
}

// Discard marks the snapshot consumed without restoring.
func (snap *MutationSnapshot) Discard() { snap.used = true }

type (
	// Mutation is one optimistic cache mutation: a speculative change
	// applied to a set of cache keys ahead of the authoritative request.
	Mutation struct {
		Cache Cache
		// Keys lists every cache key the mutation could affect.
		Keys []string
		// Apply performs the speculative change against the cache.
		Apply func(cache Cache) error
		// Call issues the authoritative request.
		Call func(ctx context.Context) error
		// Refresh, when set, refetches the affected views from the source
		// of truth after a successful Call. When nil the affected keys are
		// invalidated instead, so the next reader refetches.
		Refresh func(cache Cache) error
	}
)

// Run executes the three-phase optimistic protocol: snapshot + speculate,
// then call, then settle. Exactly one of the settle paths runs: on success
// the snapshot is discarded and the affected views refreshed; on failure
// every affected view is restored from the snapshot and the error returned
// for notice display. There is no automatic retry.
func (m Mutation) Run(ctx context.Context) error {
	snap, err := Snapshot(m.Cache, m.Keys...)
	if err != nil {
		return err
	}

	if err := m.Apply(m.Cache); err != nil {
		snap.Restore()
		return errors.Wrap(err, "applying speculative change")
	}

	if err := m.Call(ctx); err != nil {
		snap.Restore()
		return err
	}

	snap.Discard()
	if m.Refresh != nil {
		return m.Refresh(m.Cache)
	}
	for _, key := range m.Keys {
		m.Cache.Invalidate(key)
	}
	return nil
}
