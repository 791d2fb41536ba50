package metrics

import (
	"sync"
	"time"
)

// Store is an in-memory Recorder holding a bounded history of runs plus
// running totals.
//
// Usage:
//
//	store := NewStore(DefaultStoreConfig(), time.Now())
//	store.RecordRun(run)
//	summary := store.GetRunMetrics()
type Store struct {
	mu sync.RWMutex

	// Run history (circular buffer)
	history []RunRecord
	cap     int
	head    int
	size    int

	totalRuns    int64
	totalSuccess int64
	totalErrors  int64
	byMode       map[string]*modeStats

	units   Counts
	uploads map[string]*Counts
	cache   Counts

	startTime time.Time
	version   string
}

type modeStats struct {
	count         int64
	successCount  int64
	totalDuration time.Duration
}

// StoreConfig configures the Store behavior.
type StoreConfig struct {
	// HistoryCapacity is the max number of runs to retain
	HistoryCapacity int
	// Version is the application version string
	Version string
}

// DefaultStoreConfig returns a default configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		HistoryCapacity: 100,
		Version:         "0.0.0",
	}
}

// NewStore creates a Store. The startTime is used to calculate uptime.
func NewStore(config StoreConfig, startTime time.Time) *Store {
	capacity := config.HistoryCapacity
	if capacity < 1 {
		capacity = 100
	}
	return &Store{
		history:   make([]RunRecord, capacity),
		cap:       capacity,
		byMode:    make(map[string]*modeStats),
		uploads:   make(map[string]*Counts),
		startTime: startTime,
		version:   config.Version,
	}
}

// RecordRun implements Recorder.
func (s *Store) RecordRun(run RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[s.head] = run
	s.head = (s.head + 1) % s.cap
	if s.size < s.cap {
		s.size++
	}

	s.totalRuns++
	switch run.Status {
	case RunStatusSuccess:
		s.totalSuccess++
	case RunStatusError:
		s.totalErrors++
	}

	stats, ok := s.byMode[run.Mode]
	if !ok {
		stats = &modeStats{}
		s.byMode[run.Mode] = stats
	}
	stats.count++
	if run.Status == RunStatusSuccess {
		stats.successCount++
	}
	stats.totalDuration += run.Duration
}

// RecordUnit implements Recorder.
func (s *Store) RecordUnit(_ string, succeeded bool, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units.Total++
	if succeeded {
		s.units.Succeeded++
	}
}

// RecordUpload implements Recorder.
func (s *Store) RecordUpload(path string, succeeded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.uploads[path]
	if !ok {
		c = &Counts{}
		s.uploads[path] = c
	}
	c.Total++
	if succeeded {
		c.Succeeded++
	}
}

// RecordCacheLookup implements Recorder.
func (s *Store) RecordCacheLookup(hit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Total++
	if hit {
		s.cache.Succeeded++
	}
}

// GetRunMetrics returns aggregated statistics.
func (s *Store) GetRunMetrics() RunMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics := RunMetrics{
		TotalRuns:    s.totalRuns,
		TotalSuccess: s.totalSuccess,
		TotalErrors:  s.totalErrors,
		ByMode:       make(map[string]*ModeMetrics, len(s.byMode)),
		Units:        s.units,
		Cache:        s.cache,
	}

	for mode, stats := range s.byMode {
		var successRate float64
		var avgDuration time.Duration
		if stats.count > 0 {
			successRate = float64(stats.successCount) / float64(stats.count) * 100
			avgDuration = stats.totalDuration / time.Duration(stats.count)
		}
		metrics.ByMode[mode] = &ModeMetrics{
			Count:       stats.count,
			SuccessRate: successRate,
			AvgDuration: avgDuration,
		}
	}

	for _, c := range s.uploads {
		metrics.Uploads.Total += c.Total
		metrics.Uploads.Succeeded += c.Succeeded
	}
	return metrics
}

// GetUploadCounts returns the counts for one upload path.
func (s *Store) GetUploadCounts(path string) Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.uploads[path]; ok {
		return *c
	}
	return Counts{}
}

// GetRecentRuns returns up to limit runs, oldest first.
func (s *Store) GetRecentRuns(limit int) []RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || s.size == 0 {
		return []RunRecord{}
	}
	if limit > s.size {
		limit = s.size
	}

	result := make([]RunRecord, limit)
	for i := 0; i < limit; i++ {
		idx := (s.head - limit + i + s.cap) % s.cap
		result[i] = s.history[idx]
	}
	return result
}

// Uptime returns the time since the store was created.
func (s *Store) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Version returns the configured application version.
func (s *Store) Version() string {
	return s.version
}

var _ Recorder = (*Store)(nil)
