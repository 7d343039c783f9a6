package core

import "errors"

// ErrCacheMiss is returned by Cache.Read when a key has never been written
// or has been invalidated.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a key-addressed store of view state. It is the substrate that
// optimistic mutations snapshot and speculate against; implementations must
// isolate stored values from callers (structural copies in and out) so that
// a snapshot can never be corrupted through a retained reference.
type Cache interface {
	Read(key string) (interface{}, error)
	Write(key string, value interface{}) error
	// Invalidate drops the key so the next reader refetches from the
	// source of truth. Invalidating an absent key is a no-op.
	Invalidate(key string)
}
