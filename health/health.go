// Package health exposes the indexer's HTTP surface: a JSON health report
// and the Prometheus metrics endpoint.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/WeShipHQ/panda-monopoly-indexer/logging"
	"github.com/WeShipHQ/panda-monopoly-indexer/metrics"
)

// PoolStats reports connection pool state for the health response.
type PoolStats interface {
	Stats() map[string]interface{}
}

// Server serves /health and /metrics.
type Server struct {
	port   int
	stats  *metrics.Stats
	pool   PoolStats
	log    *logging.ComponentLogger
	server *http.Server
}

// Response is the JSON body served by /health.
type Response struct {
	Status            string                 `json:"status"`
	Uptime            string                 `json:"uptime"`
	JobsProcessed     int64                  `json:"jobs_processed"`
	JobsFailed        int64                  `json:"jobs_failed"`
	DeadLettered      int64                  `json:"dead_lettered"`
	RecordsExtracted  int64                  `json:"records_extracted"`
	EventsDropped     int64                  `json:"events_dropped"`
	LastProcessedSlot uint64                 `json:"last_processed_slot"`
	LastProcessedTime string                 `json:"last_processed_time,omitempty"`
	Database          map[string]interface{} `json:"database,omitempty"`
}

// NewServer creates the health server. pool may be nil when the store is not
// backed by a connection pool (tests).
func NewServer(port int, stats *metrics.Stats, pool PoolStats, log *logging.ComponentLogger) *Server {
	return &Server{
		port:  port,
		stats: stats,
		pool:  pool,
		log:   log,
	}
}

// Start serves in a background goroutine and returns immediately.
func (s *Server) Start() {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: r,
	}

	go func() {
		s.log.Info().Int("port", s.port).Msg("health server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("health server stopped")
		}
	}()
}

// Stop drains in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.stats.Snapshot()

	resp := Response{
		Status:            "healthy",
		Uptime:            time.Since(snap.StartTime).String(),
		JobsProcessed:     snap.JobsProcessed,
		JobsFailed:        snap.JobsFailed,
		DeadLettered:      snap.DeadLettered,
		RecordsExtracted:  snap.RecordsExtracted,
		EventsDropped:     snap.EventsDropped,
		LastProcessedSlot: snap.LastProcessedSlot,
	}
	if !snap.LastProcessedTime.IsZero() {
		resp.LastProcessedTime = snap.LastProcessedTime.Format(time.RFC3339)
	}
	if s.pool != nil {
		resp.Database = s.pool.Stats()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
