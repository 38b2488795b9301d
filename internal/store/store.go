// Package store holds the single current aggregated grid snapshot.
package store

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/grid-status-aggregator/internal/domain"
)

// Store is the Snapshot Store. Writers are serialized and publish a new
// immutable snapshot per merge; readers load the latest one without locking.
type Store struct {
	mu      sync.Mutex // serializes merges
	current atomic.Pointer[domain.Snapshot]
}

// New creates a Store holding the empty snapshot.
func New() *Store {
	s := &Store{}
	empty := domain.Snapshot{}.Clone()
	s.current.Store(&empty)
	return s
}

// Snapshot returns the current snapshot. The returned value is a deep copy and
// may be modified freely by the caller.
func (s *Store) Snapshot() domain.Snapshot {
	return s.current.Load().Clone()
}

// Apply merges a successful poll: the source's fields are replaced whole and
// its failure counter resets. Fields owned by other sources are untouched.
func (s *Store) Apply(u domain.Update, at time.Time) domain.Snapshot {
	return s.merge(u.Source(), at, func(next *domain.Snapshot, st *domain.SourceHealth) {
		u.Apply(next)
		ts := at
		st.LastSuccess = &ts
		st.ConsecutiveFailures = 0
		st.Permanent = false
	})
}

// RecordFailure records a failed poll of source. Data fields keep their last
// good values; only the source's diagnostics change.
func (s *Store) RecordFailure(source domain.SourceID, err error, at time.Time) domain.Snapshot {
	return s.merge(source, at, func(_ *domain.Snapshot, st *domain.SourceHealth) {
		ts := at
		st.LastError = err.Error()
		st.LastErrorAt = &ts
		st.ConsecutiveFailures++
		st.Permanent = domain.IsPermanent(err)
	})
}

func (s *Store) merge(source domain.SourceID, at time.Time, fn func(*domain.Snapshot, *domain.SourceHealth)) domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().Clone()
	st := next.Sources[source]
	fn(&next, &st)
	next.Sources[source] = st
	next.UpdatedAt = at

	published := next
	s.current.Store(&published)
	return next.Clone()
}
