// Package presence tracks which users currently have a reachable network
// address. Absence of an entry means offline.
package presence

import (
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Entry is one online user's last-known address.
type Entry struct {
	UserID   int64
	Addr     net.Addr
	LastSeen time.Time
}

// Registry maintains the userID→address map under one mutex. Callers must
// not invoke storage operations while holding registry methods open; every
// method returns before any persistence work happens.
type Registry struct {
	mu      sync.RWMutex
	entries map[int64]*Entry
	logger  *zap.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		entries: make(map[int64]*Entry),
		logger:  logger,
	}
}

// MarkOnline claims the presence slot for a user. It fails when the user
// already has a live entry, enforcing single-session login. The check and
// the claim are one atomic step: of two concurrent logins that both passed
// credential verification, exactly one wins.
func (r *Registry) MarkOnline(userID int64, addr net.Addr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[userID]; ok {
		return false
	}
	r.entries[userID] = &Entry{UserID: userID, Addr: addr, LastSeen: time.Now()}
	r.logger.Info("user online", zap.Int64("user_id", userID), zap.String("addr", addr.String()))
	return true
}

// MarkOffline removes the entry for a user, if any.
func (r *Registry) MarkOffline(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[userID]; ok {
		delete(r.entries, userID)
		r.logger.Info("user offline", zap.Int64("user_id", userID))
	}
}

// Lookup returns the user's address, or nil when offline.
func (r *Registry) Lookup(userID int64) net.Addr {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[userID]; ok {
		return e.Addr
	}
	return nil
}

// Touch refreshes the last-seen time for a user. No-op when offline.
func (r *Registry) Touch(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[userID]; ok {
		e.LastSeen = time.Now()
	}
}

// Count returns the number of online users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot returns a copy of all current entries.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	return out
}

// SweepIdle removes entries whose last-seen time is older than timeout and
// returns the evicted user ids.
func (r *Registry) SweepIdle(timeout time.Duration) []int64 {
	cutoff := time.Now().Add(-timeout)
	r.mu.Lock()
	defer r.mu.Unlock()
	var evicted []int64
	for id, e := range r.entries {
		if e.LastSeen.Before(cutoff) {
			delete(r.entries, id)
			evicted = append(evicted, id)
		}
	}
	if len(evicted) > 0 {
		r.logger.Info("idle presence entries evicted", zap.Int64s("user_ids", evicted))
	}
	return evicted
}
