package series

import (
	"sync"
	"time"
)

// KeyStats is the most recent baseline of one key for one metric, as
// published after a report run.
type KeyStats struct {
	Metric  string    `json:"metric"`
	Date    time.Time `json:"date"`
	Value   float64   `json:"value"`
	Mean    float64   `json:"rolling_mean"`
	Std     float64   `json:"rolling_std"`
	Samples int       `json:"samples"`
}

// Snapshot keeps the latest per-key baselines for serving over the API.
// Keys beyond the limit evict oldest-updated first.
type Snapshot struct {
	mu        sync.RWMutex
	byKey     map[string]map[string]KeyStats
	updatedAt map[string]time.Time
	limit     int
}

func NewSnapshot(limit int) *Snapshot {
	if limit <= 0 {
		limit = 1000
	}
	return &Snapshot{
		byKey:     make(map[string]map[string]KeyStats),
		updatedAt: make(map[string]time.Time),
		limit:     limit,
	}
}

func (s *Snapshot) Update(key string, stats []KeyStats) {
	if key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byKey[key]
	if !ok {
		m = make(map[string]KeyStats)
		s.byKey[key] = m
	}
	for _, st := range stats {
		m[st.Metric] = st
	}
	s.updatedAt[key] = time.Now().UTC()
	if len(s.byKey) > s.limit {
		s.evictOldest()
	}
}

func (s *Snapshot) Get(key string) ([]KeyStats, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byKey[key]
	if !ok {
		return nil, time.Time{}, false
	}
	out := make([]KeyStats, 0, len(m))
	for _, st := range m {
		out = append(out, st)
	}
	return out, s.updatedAt[key], true
}

func (s *Snapshot) GetAll() map[string][]KeyStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]KeyStats, len(s.byKey))
	for key, m := range s.byKey {
		list := make([]KeyStats, 0, len(m))
		for _, st := range m {
			list = append(list, st)
		}
		out[key] = list
	}
	return out
}

func (s *Snapshot) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, ts := range s.updatedAt {
		if oldestKey == "" || ts.Before(oldest) {
			oldestKey = key
			oldest = ts
		}
	}
	if oldestKey != "" {
		delete(s.byKey, oldestKey)
		delete(s.updatedAt, oldestKey)
	}
}

func (s *Snapshot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey = make(map[string]map[string]KeyStats)
	s.updatedAt = make(map[string]time.Time)
}
