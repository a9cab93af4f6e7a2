package app

import (
	"sync/atomic"
	"time"
)

// Metrics counts what the reconciliation loop has done.
type Metrics struct {
	eventsApplied     atomic.Uint64
	eventsDropped     atomic.Uint64
	eventsReplayed    atomic.Uint64
	retrievals        atomic.Uint64
	retrievalFailures atomic.Uint64
	pushes            atomic.Uint64
	pushFailures      atomic.Uint64
	rollbacks         atomic.Uint64

	taskCount   atomic.Uint64
	taskTotalNs atomic.Int64
	taskMaxNs   atomic.Int64

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordTask records the time one loop task took.
func (m *Metrics) RecordTask(d time.Duration) {
	ns := d.Nanoseconds()
	m.taskCount.Add(1)
	m.taskTotalNs.Add(ns)
	for {
		old := m.taskMaxNs.Load()
		if ns <= old || m.taskMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	tasks := m.taskCount.Load()
	var avg int64
	if tasks > 0 {
		avg = m.taskTotalNs.Load() / int64(tasks)
	}
	return MetricsSnapshot{
		Uptime:            time.Since(m.startTime),
		EventsApplied:     m.eventsApplied.Load(),
		EventsDropped:     m.eventsDropped.Load(),
		EventsReplayed:    m.eventsReplayed.Load(),
		Retrievals:        m.retrievals.Load(),
		RetrievalFailures: m.retrievalFailures.Load(),
		Pushes:            m.pushes.Load(),
		PushFailures:      m.pushFailures.Load(),
		Rollbacks:         m.rollbacks.Load(),
		Tasks:             tasks,
		AvgTaskNs:         avg,
		MaxTaskNs:         m.taskMaxNs.Load(),
	}
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime            time.Duration
	EventsApplied     uint64
	EventsDropped     uint64
	EventsReplayed    uint64
	Retrievals        uint64
	RetrievalFailures uint64
	Pushes            uint64
	PushFailures      uint64
	Rollbacks         uint64
	Tasks             uint64
	AvgTaskNs         int64
	MaxTaskNs         int64
}

// Timer provides a simple way to measure elapsed time.
type Timer struct {
	start time.Time
}

// StartTimer creates a new timer.
func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
