package core

import (
	"context"
	"errors"
	"testing"
)

// mapCache is a minimal Cache for exercising the mutation protocol.
type mapCache map[string]interface{}

func (c mapCache) Read(key string) (interface{}, error) {
	v, ok := c[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (c mapCache) Write(key string, value interface{}) error {
	c[key] = value
	return nil
}

func (c mapCache) Invalidate(key string) { delete(c, key) }

func TestPlaceholderID(t *testing.T) {
	id := PlaceholderID()
	if !IsPlaceholderID(id) {
		t.Errorf("PlaceholderID() = %q; want a placeholder", id)
	}
	if IsPlaceholderID("3f1c0f2e") {
		t.Error("server-issued id misdetected as placeholder")
	}
	if id2 := PlaceholderID(); id2 == id {
		t.Error("placeholder ids must not collide")
	}
}

func TestMutation_successRefreshesFromSource(t *testing.T) {
	cache := mapCache{"items": []string{"a"}}

	var called bool
	m := Mutation{
		Cache: cache,
		Keys:  []string{"items"},
		Apply: func(c Cache) error {
			return c.Write("items", []string{"a", "pending-b"})
		},
		Call: func(context.Context) error {
			called = true
			return nil
		},
		Refresh: func(c Cache) error {
			return c.Write("items", []string{"a", "b"})
		},
	}

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !called {
		t.Fatal("authoritative call never issued")
	}

	got, err := cache.Read("items")
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	items := got.([]string)
	if len(items) != 2 || items[1] != "b" {
		t.Errorf("cache = %v; want refreshed authoritative view", items)
	}
}

func TestMutation_callFailureRestoresPreviousValue(t *testing.T) {
	cache := mapCache{"items": []string{"a"}}
	boom := errors.New("server rejected")

	m := Mutation{
		Cache: cache,
		Keys:  []string{"items"},
		Apply: func(c Cache) error {
			return c.Write("items", []string{"a", "b"})
		},
		Call: func(context.Context) error { return boom },
	}

	if err := m.Run(context.Background()); err != boom {
		t.Fatalf("Run() error = %v; want %v", err, boom)
	}

	got, err := cache.Read("items")
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	items := got.([]string)
	if len(items) != 1 || items[0] != "a" {
		t.Errorf("cache = %v; want previous value restored", items)
	}
}

func TestMutation_failureInvalidatesKeyAbsentAtCapture(t *testing.T) {
	cache := mapCache{}
	boom := errors.New("server rejected")

	m := Mutation{
		Cache: cache,
		Keys:  []string{"items"},
		Apply: func(c Cache) error {
			return c.Write("items", []string{"b"})
		},
		Call: func(context.Context) error { return boom },
	}

	if err := m.Run(context.Background()); err != boom {
		t.Fatalf("Run() error = %v; want %v", err, boom)
	}
	if _, err := cache.Read("items"); err != ErrCacheMiss {
		t.Errorf("key absent at capture must be invalidated on restore; got err = %v", err)
	}
}

func TestMutation_successWithoutRefreshInvalidates(t *testing.T) {
	cache := mapCache{"items": []string{"a"}}

	m := Mutation{
		Cache: cache,
		Keys:  []string{"items"},
		Apply: func(c Cache) error {
			return c.Write("items", []string{"a", "b"})
		},
		Call: func(context.Context) error { return nil },
	}

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if _, err := cache.Read("items"); err != ErrCacheMiss {
		t.Errorf("affected keys must be invalidated when no Refresh is set; got err = %v", err)
	}
}

func TestMutation_applyFailureRestores(t *testing.T) {
	cache := mapCache{"items": []string{"a"}}
	boom := errors.New("bad speculation")

	var called bool
	m := Mutation{
		Cache: cache,
		Keys:  []string{"items"},
		Apply: func(c Cache) error {
			_ = c.Write("items", []string{"partial"})
			return boom
		},
		Call: func(context.Context) error {
			called = true
			return nil
		},
	}

	if err := m.Run(context.Background()); err == nil {
		t.Fatal("Run() must fail when Apply fails")
	}
	if called {
		t.Error("authoritative call must not be issued after a failed Apply")
	}

	got, _ := cache.Read("items")
	items := got.([]string)
	if len(items) != 1 || items[0] != "a" {
		t.Errorf("cache = %v; want previous value restored", items)
	}
}

func TestMutationSnapshot_restoreIsIdempotent(t *testing.T) {
	cache := mapCache{"k": "old"}

	snap, err := Snapshot(cache, "k")
	if err != nil {
		t.Fatalf("Snapshot() failed: %v", err)
	}

	_ = cache.Write("k", "speculative")
	snap.Restore()

	if v, _ := cache.Read("k"); v != "old" {
		t.Fatalf("cache = %v; want restored value", v)
	}

	// a second restore must not clobber later writes
	_ = cache.Write("k", "newer")
	snap.Restore()
	if v, _ := cache.Read("k"); v != "newer" {
		t.Errorf("cache = %v; consumed snapshot must not restore again", v)
	}
}

func TestAuthorizeOwner(t *testing.T) {
	res := ownedRes{owner: "u1"}

	if err := AuthorizeOwner("u1", res, "denied"); err != nil {
		t.Errorf("owner must pass the gate; got %v", err)
	}

	err := AuthorizeOwner("u2", res, "denied")
	if err == nil {
		t.Fatal("non-owner must be denied")
	}
	if !IsPermissionDenied(err) {
		t.Errorf("denial must be a PermissionError; got %T", err)
	}
	if err.Error() != "denied" {
		t.Errorf("denial message = %q; want %q", err.Error(), "denied")
	}

	if err := AuthorizeOwner("", res, "denied"); err == nil {
		t.Error("anonymous actor must be denied")
	}
}

type ownedRes struct {
	owner string
}

func (r ownedRes) OwnerID() string { return r.owner }
