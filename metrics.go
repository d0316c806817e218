package pulsim

import (
	"sync"
	"time"
)

// Metrics tracks run statistics across realizations.
type Metrics struct {
	mu sync.RWMutex

	Realizations     int64
	SolveCount       int64
	TotalSolveTime   time.Duration
	AverageSolveTime time.Duration
	LastRun          time.Time
}

func newMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) recordSolve(start time.Time) {
	duration := time.Since(start)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.SolveCount++
	m.TotalSolveTime += duration
	m.AverageSolveTime = m.TotalSolveTime / time.Duration(m.SolveCount)
}

func (m *Metrics) recordRealizations(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Realizations += n
	m.LastRun = time.Now()
}

// MetricsSnapshot is a copy of the counters, safe to hand out.
type MetricsSnapshot struct {
	Realizations     int64
	SolveCount       int64
	TotalSolveTime   time.Duration
	AverageSolveTime time.Duration
	LastRun          time.Time
}

// Snapshot returns the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		Realizations:     m.Realizations,
		SolveCount:       m.SolveCount,
		TotalSolveTime:   m.TotalSolveTime,
		AverageSolveTime: m.AverageSolveTime,
		LastRun:          m.LastRun,
	}
}
