// Package history records the outcome of every questcheck run so repeated
// runs against the same build can be compared.
package history

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Store provides persistent storage for run history.
type Store interface {
	// Save stores a finished run, replacing any record with the same run ID
	Save(ctx context.Context, rec *Record) error

	// Get retrieves a run by ID
	Get(ctx context.Context, runID string) (*Record, error)

	// List returns runs matching the filter, newest first
	List(ctx context.Context, filter Filter) ([]*Record, error)

	// Stats returns aggregate statistics
	Stats(ctx context.Context) (*Stats, error)

	Close() error
}

// StepRecord is the stored outcome of one step.
type StepRecord struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration"`
}

// Record is one stored run.
type Record struct {
	RunID       string        `json:"run_id"`
	Scenario    string        `json:"scenario"`
	Passed      bool          `json:"passed"`
	GatesPassed bool          `json:"gates_passed"`
	FailedStep  string        `json:"failed_step,omitempty"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	Checked     int           `json:"checked"`
	SpawnedURL  string        `json:"spawned_url,omitempty"`
	Screenshot  string        `json:"screenshot,omitempty"`
	Steps       []StepRecord  `json:"steps"`
	StartedAt   time.Time     `json:"started_at"`
}

// Filter specifies criteria for listing runs.
type Filter struct {
	Scenario string    // Filter by scenario name
	Passed   *bool     // Filter by outcome
	After    time.Time // Runs started after this time
	Before   time.Time // Runs started before this time
	Limit    int       // Max results (default 100)
	Offset   int       // Pagination offset
}

// Stats provides aggregate metrics.
type Stats struct {
	TotalRuns   int64            `json:"total_runs"`
	PassedRuns  int64            `json:"passed_runs"`
	FailedRuns  int64            `json:"failed_runs"`
	AvgDuration time.Duration    `json:"avg_duration"`
	FailedSteps map[string]int64 `json:"failed_steps"` // failing step name → count
}

// PassRate returns the fraction of runs that passed, 0 with no runs.
func (s *Stats) PassRate() float64 {
	if s.TotalRuns == 0 {
		return 0
	}
	return float64(s.PassedRuns) / float64(s.TotalRuns)
}

const defaultListLimit = 100

// MemoryStore implements Store in memory, for tests and for runs with
// history disabled.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*Record)}
}

func (m *MemoryStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.RunID == "" {
		return errors.New("record needs a run ID")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	cp.Steps = append([]StepRecord(nil), rec.Steps...)
	m.runs[rec.RunID] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, runID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context, filter Filter) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []*Record
	for _, rec := range m.runs {
		if filter.Scenario != "" && rec.Scenario != filter.Scenario {
			continue
		}
		if filter.Passed != nil && rec.Passed != *filter.Passed {
			continue
		}
		if !filter.After.IsZero() && !rec.StartedAt.After(filter.After) {
			continue
		}
		if !filter.Before.IsZero() && !rec.StartedAt.Before(filter.Before) {
			continue
		}
		cp := *rec
		results = append(results, &cp)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(results) {
			return nil, nil
		}
		results = results[filter.Offset:]
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{FailedSteps: make(map[string]int64)}
	var total time.Duration
	for _, rec := range m.runs {
		stats.TotalRuns++
		total += rec.Duration
		if rec.Passed {
			stats.PassedRuns++
			continue
		}
		stats.FailedRuns++
		if rec.FailedStep != "" {
			stats.FailedSteps[rec.FailedStep]++
		}
	}
	if stats.TotalRuns > 0 {
		stats.AvgDuration = total / time.Duration(stats.TotalRuns)
	}
	return stats, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
