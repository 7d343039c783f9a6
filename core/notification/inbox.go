package notification

import (
	"context"

	"github.com/trezcool/silabo/core"
)

// InboxKey is the cache key for a user's notification list view.
func InboxKey(userID string) string { return "notifications:" + userID }

// Inbox is the client-side view over one user's notifications. Read-state
// flips are applied optimistically to the cached view and rolled back if
// the authoritative call fails.
type Inbox struct {
	svc    *Service
	cache  core.Cache
	userID string
}

func NewInbox(svc *Service, cache core.Cache, userID string) *Inbox {
	return &Inbox{svc: svc, cache: cache, userID: userID}
}

// Load returns the cached notification list, fetching from the source of
// truth on a miss.
func (in *Inbox) Load() ([]Notification, error) {
	key := InboxKey(in.userID)
	if v, err := in.cache.Read(key); err == nil {
		return v.([]Notification), nil
	} else if err != core.ErrCacheMiss {
		return nil, err
	}

	notifs, err := in.svc.ListByUser(in.userID)
	if err != nil {
		return nil, err
	}
	if err := in.cache.Write(key, notifs); err != nil {
		return nil, err
	}
	return notifs, nil
}

// Unread counts unread notifications in the current view.
func (in *Inbox) Unread() (int, error) {
	notifs, err := in.Load()
	if err != nil {
		return 0, err
	}
	var count int
	for _, n := range notifs {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

// MarkRead optimistically flips one notification's read state. The id must
// belong to this inbox's owner; a foreign or unknown notification reads as
// absent, before anything is speculated.
func (in *Inbox) MarkRead(ctx context.Context, id string, read bool) error {
	if err := in.checkOwned(id); err != nil {
		return err
	}

	key := InboxKey(in.userID)
	m := core.Mutation{
		Cache: in.cache,
		Keys:  []string{key},
		Apply: func(cache core.Cache) error {
			return in.rewrite(cache, func(n *Notification) {
				if n.ID == id {
					n.Read = read
				}
			})
		},
		Call: func(context.Context) error {
			_, err := in.svc.MarkRead(id, read)
			return err
		},
		Refresh: in.refresh,
	}
	return m.Run(ctx)
}

// MarkAllRead optimistically marks the whole view read.
func (in *Inbox) MarkAllRead(ctx context.Context) error {
	key := InboxKey(in.userID)
	m := core.Mutation{
		Cache: in.cache,
		Keys:  []string{key},
		Apply: func(cache core.Cache) error {
			return in.rewrite(cache, func(n *Notification) { n.Read = true })
		},
		Call: func(context.Context) error {
			return in.svc.MarkAllRead(in.userID)
		},
		Refresh: in.refresh,
	}
	return m.Run(ctx)
}

func (in *Inbox) checkOwned(id string) error {
	notifs, err := in.Load()
	if err != nil {
		return err
	}
	for _, n := range notifs {
		if n.ID == id {
			return nil
		}
	}
	return ErrNotFound
}

func (in *Inbox) rewrite(cache core.Cache, mutate func(*Notification)) error {
	key := InboxKey(in.userID)
	v, err := cache.Read(key)
	if err != nil {
		if err == core.ErrCacheMiss {
			return nil // nothing speculated; the call still proceeds
		}
		return err
	}
	notifs := v.([]Notification)
	for i := range notifs {
		mutate(&notifs[i])
	}
	return cache.Write(key, notifs)
}

func (in *Inbox) refresh(cache core.Cache) error {
	notifs, err := in.svc.ListByUser(in.userID)
	if err != nil {
		return err
	}
	return cache.Write(InboxKey(in.userID), notifs)
}
