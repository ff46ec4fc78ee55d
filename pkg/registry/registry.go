// Package registry holds the live subscription state: which connections are
// currently subscribed to which channel. Each channel entry is synchronized
// independently so unrelated channels never contend.
package registry

import (
	"context"
	"errors"
	"sync"
)

// ErrNotAMember is returned when the user is not an accepted member of the
// channel at subscribe time.
var ErrNotAMember = errors.New("registry: not an accepted channel member")

// Conn is a live subscriber endpoint owned by a connection session.
type Conn interface {
	// UserID is the authenticated identity behind the connection.
	UserID() string

	// Send queues an event without blocking. False means the connection is
	// closed or too slow to keep up; the owner tears it down.
	Send(payload []byte) bool
}

// Checker re-validates durable membership. Implemented by the store
// gateway; the check runs on every Subscribe, never from a stale cache.
type Checker interface {
	IsAcceptedMember(ctx context.Context, channelID, userID string) (bool, error)
}

type channelSet struct {
	mu    sync.Mutex
	conns map[Conn]struct{}
	// dead marks a set that was removed from the registry map; a Subscribe
	// racing the removal retries against a fresh entry.
	dead bool
}

type Registry struct {
	checker Checker

	mu       sync.RWMutex
	channels map[string]*channelSet
}

func New(checker Checker) *Registry {
	return &Registry{
		checker:  checker,
		channels: make(map[string]*channelSet),
	}
}

// Subscribe registers the connection under the channel's live set after
// re-validating invite_accepted membership through the store. The store
// call runs before any registry lock is taken so slow membership reads
// never block subscribes on other channels.
func (r *Registry) Subscribe(ctx context.Context, channelID string, c Conn) error {
	ok, err := r.checker.IsAcceptedMember(ctx, channelID, c.UserID())
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAMember
	}

	for {
		set := r.channel(channelID)
		set.mu.Lock()
		if set.dead {
			set.mu.Unlock()
			continue
		}
		set.conns[c] = struct{}{}
		set.mu.Unlock()
		return nil
	}
}

// Unsubscribe removes the connection from the channel's live set. Idempotent:
// removing an absent connection is a no-op.
func (r *Registry) Unsubscribe(channelID string, c Conn) {
	r.mu.RLock()
	set := r.channels[channelID]
	r.mu.RUnlock()
	if set == nil {
		return
	}

	set.mu.Lock()
	delete(set.conns, c)
	empty := len(set.conns) == 0
	if empty {
		set.dead = true
	}
	set.mu.Unlock()

	if empty {
		r.mu.Lock()
		if r.channels[channelID] == set {
			delete(r.channels, channelID)
		}
		r.mu.Unlock()
	}
}

// LiveMembers returns a consistent snapshot of the channel's subscribed
// connections: no duplicates, no connection removed before the call.
func (r *Registry) LiveMembers(channelID string) []Conn {
	r.mu.RLock()
	set := r.channels[channelID]
	r.mu.RUnlock()
	if set == nil {
		return nil
	}

	set.mu.Lock()
	conns := make([]Conn, 0, len(set.conns))
	for c := range set.conns {
		conns = append(conns, c)
	}
	set.mu.Unlock()
	return conns
}

func (r *Registry) channel(channelID string) *channelSet {
	r.mu.RLock()
	set := r.channels[channelID]
	r.mu.RUnlock()
	if set != nil {
		return set
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if set := r.channels[channelID]; set != nil {
		return set
	}
	set = &channelSet{conns: make(map[Conn]struct{})}
	r.channels[channelID] = set
	return set
}
