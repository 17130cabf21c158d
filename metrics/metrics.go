// Package metrics exposes the indexer's Prometheus metrics and a mutex-guarded
// stats snapshot served by the health endpoint.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_jobs_processed_total",
		Help: "Total number of reconciliation jobs processed, by record kind",
	}, []string{"kind"})

	jobsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_jobs_failed_total",
		Help: "Total number of reconciliation jobs that failed, by record kind",
	}, []string{"kind"})

	deadLetteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "indexer_jobs_dead_lettered_total",
		Help: "Total number of jobs routed to the dead-letter channel",
	})

	parseDropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_extractor_drops_total",
		Help: "Total number of log events dropped during extraction, by reason",
	}, []string{"reason"})

	snapshotRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "indexer_snapshot_fetch_retries_total",
		Help: "Total number of game snapshot fetch retries due to ledger lag",
	})

	snapshotMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_snapshot_misses_total",
		Help: "Total number of snapshot fetches that returned no data, by kind",
	}, []string{"kind"})

	batchFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "indexer_player_batch_fallbacks_total",
		Help: "Total number of bulk player upserts degraded to per-item commits",
	})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "indexer_job_duration_seconds",
		Help:    "Time taken to process one reconciliation job",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"kind"})
)

// RecordJobProcessed increments the processed counter for a record kind.
func RecordJobProcessed(kind string) {
	jobsProcessedTotal.WithLabelValues(kind).Inc()
}

// RecordJobFailed increments the failure counter for a record kind.
func RecordJobFailed(kind string) {
	jobsFailedTotal.WithLabelValues(kind).Inc()
}

// RecordDeadLetter increments the dead-letter counter.
func RecordDeadLetter() {
	deadLetteredTotal.Inc()
}

// RecordParseDrop increments the parse-drop counter for a drop reason.
func RecordParseDrop(reason string) {
	parseDropsTotal.WithLabelValues(reason).Inc()
}

// RecordSnapshotRetry increments the game-fetch retry counter.
func RecordSnapshotRetry() {
	snapshotRetriesTotal.Inc()
}

// RecordSnapshotMiss increments the miss counter for a snapshot kind.
func RecordSnapshotMiss(kind string) {
	snapshotMissesTotal.WithLabelValues(kind).Inc()
}

// RecordBatchFallback increments the bulk-upsert fallback counter.
func RecordBatchFallback() {
	batchFallbacksTotal.Inc()
}

// StartJobTimer returns a stop function that observes the job's duration.
func StartJobTimer(kind string) func() {
	timer := prometheus.NewTimer(jobDuration.WithLabelValues(kind))
	return func() { timer.ObserveDuration() }
}

// Stats tracks aggregate counts served by the health endpoint.
type Stats struct {
	mu sync.RWMutex

	JobsProcessed     int64
	JobsFailed        int64
	DeadLettered      int64
	RecordsExtracted  int64
	EventsDropped     int64
	LastProcessedSlot uint64
	LastProcessedTime time.Time
	StartTime         time.Time
}

// NewStats creates a stats tracker with the start time set.
func NewStats() *Stats {
	return &Stats{StartTime: time.Now()}
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		JobsProcessed:     s.JobsProcessed,
		JobsFailed:        s.JobsFailed,
		DeadLettered:      s.DeadLettered,
		RecordsExtracted:  s.RecordsExtracted,
		EventsDropped:     s.EventsDropped,
		LastProcessedSlot: s.LastProcessedSlot,
		LastProcessedTime: s.LastProcessedTime,
		StartTime:         s.StartTime,
	}
}

// IncrJobsProcessed records one completed job and its slot.
func (s *Stats) IncrJobsProcessed(slot uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.JobsProcessed++
	if slot > s.LastProcessedSlot {
		s.LastProcessedSlot = slot
	}
	s.LastProcessedTime = time.Now()
}

// IncrJobsFailed records one failed job.
func (s *Stats) IncrJobsFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.JobsFailed++
}

// IncrDeadLettered records one dead-lettered job.
func (s *Stats) IncrDeadLettered() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DeadLettered++
}

// AddRecordsExtracted records extractor output counts.
func (s *Stats) AddRecordsExtracted(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RecordsExtracted += int64(n)
}

// IncrEventsDropped records one silently dropped log event.
func (s *Stats) IncrEventsDropped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EventsDropped++
}
