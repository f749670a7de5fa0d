// Package session owns the canonical transaction set for one dashboard
// session. The set is replaced wholesale on every upload and only ever read
// through copied snapshots, so queries operate on immutable data and there is
// no partial state to roll back.
//
// The session is an explicit object handed to the HTTP layer by its owner;
// nothing in this package is process-global. A multi-user deployment scopes
// one Session per user.
package session

import (
	"sync"

	"budgetviz/internal/core"
)

// Session holds the transactions of the most recent upload. The zero value
// is ready to use and represents "no upload yet".
type Session struct {
	mu         sync.RWMutex
	txs        []core.Transaction
	generation uint64
}

func New() *Session {
	return &Session{}
}

// Replace swaps in a new canonical transaction set, dropping the previous
// one, and bumps the generation so derived-response caches invalidate.
func (s *Session) Replace(txs []core.Transaction) {
	copied := make([]core.Transaction, len(txs))
	copy(copied, txs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = copied
	s.generation++
}

// Snapshot returns a copy of the canonical transactions. Every query derives
// its views from such a snapshot and never mutates it.
func (s *Session) Snapshot() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]core.Transaction, len(s.txs))
	copy(copied, s.txs)
	return copied
}

// Generation is a monotonic upload counter, 0 before the first upload.
func (s *Session) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Empty reports whether no upload has populated the session. Queries against
// an empty session yield empty, well-formed results rather than errors.
func (s *Session) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.txs) == 0
}

// Len returns the number of canonical transactions.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.txs)
}
