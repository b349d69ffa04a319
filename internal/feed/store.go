package feed

import (
	"sync"
	"time"

	"lifetrack/internal/model"
)

// Store is a bounded in-memory buffer of the most recent callouts, kept for
// serving the API between report runs. The buffer is ordered most recent
// first on every write path; when full, the oldest entry falls off the end.
type Store struct {
	mu    sync.RWMutex
	buf   []model.Callout
	limit int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 1000
	}
	return &Store{limit: limit}
}

// Add pushes one callout to the front as the newest entry.
func (s *Store) Add(c model.Callout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(c)
}

// AddBatch pushes a batch to the front, preserving the batch's own order
// (its first element stays newest).
func (s *Store) AddBatch(batch []model.Callout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(batch) - 1; i >= 0; i-- {
		s.add(batch[i])
	}
}

// Replace swaps the whole buffer for the output of a fresh report run.
func (s *Store) Replace(batch []model.Callout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = s.buf[:0]
	for i := len(batch) - 1; i >= 0; i-- {
		s.add(batch[i])
	}
}

func (s *Store) add(c model.Callout) {
	if len(s.buf) < s.limit {
		s.buf = append(s.buf, model.Callout{})
	}
	copy(s.buf[1:], s.buf)
	s.buf[0] = c
}

// List returns up to limit callouts, most recent first.
func (s *Store) List(limit int) []model.Callout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.buf) {
		limit = len(s.buf)
	}
	out := make([]model.Callout, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, s.buf[i])
	}
	return out
}

// Since returns dated callouts on or after ts. Metric-only callouts have no
// date and are always included.
func (s *Store) Since(ts time.Time) []model.Callout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Callout, 0)
	for _, c := range s.buf {
		if c.Kind == model.KindMetricOnly || !c.Date.Before(ts) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
}
