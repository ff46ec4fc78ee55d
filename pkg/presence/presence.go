// Package presence tracks whether a user has at least one open connection
// anywhere in the system, independent of which channel each connection
// serves.
package presence

import (
	"context"
	"hash/fnv"
	"sync"
)

// Mirror publishes online/offline transitions to shared infrastructure so
// other processes can see them. Mirror failures are logged by the
// implementation and never affect the local count.
type Mirror interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
}

const shardCount = 32

type shard struct {
	mu     sync.Mutex
	counts map[string]int
}

// Tracker is a reference-counted presence map, sharded by user id so
// unrelated users never share a lock.
type Tracker struct {
	shards [shardCount]shard
	mirror Mirror
}

// New creates a tracker. mirror may be nil for single-process setups.
func New(mirror Mirror) *Tracker {
	t := &Tracker{mirror: mirror}
	for i := range t.shards {
		t.shards[i].counts = make(map[string]int)
	}
	return t
}

// MarkOnline increments the user's connection count. The mirror is notified
// only on the offline-to-online transition.
func (t *Tracker) MarkOnline(ctx context.Context, userID string) {
	s := t.shard(userID)
	s.mu.Lock()
	s.counts[userID]++
	first := s.counts[userID] == 1
	s.mu.Unlock()

	if first && t.mirror != nil {
		_ = t.mirror.SetOnline(ctx, userID)
	}
}

// MarkOffline decrements the user's connection count; called on every
// session close regardless of which channel it served. The mirror is
// notified only when the last connection goes away.
func (t *Tracker) MarkOffline(ctx context.Context, userID string) {
	s := t.shard(userID)
	s.mu.Lock()
	n, ok := s.counts[userID]
	last := false
	if ok {
		n--
		if n <= 0 {
			delete(s.counts, userID)
			last = true
		} else {
			s.counts[userID] = n
		}
	}
	s.mu.Unlock()

	if last && t.mirror != nil {
		_ = t.mirror.SetOffline(ctx, userID)
	}
}

// Online reports whether the user currently has any open connection in this
// process.
func (t *Tracker) Online(userID string) bool {
	s := t.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[userID] > 0
}

func (t *Tracker) shard(userID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return &t.shards[h.Sum32()%shardCount]
}
