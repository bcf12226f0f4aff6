package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hookbench/hookbench/engine"
)

// Metrics counts what the listeners see and what the engine does with it.
type Metrics struct {
	totalEvents  atomic.Int64
	totalDropped atomic.Int64
	totalPaired  atomic.Int64

	portMetrics sync.Map // map[int]*PortMetrics
}

// PortMetrics holds counters for a single listener port.
type PortMetrics struct {
	Events  atomic.Int64
	Dropped atomic.Int64
	Paired  atomic.Int64
}

// NewMetrics creates an empty collector.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordEvent counts one inbound event. Dropped events are those the engine
// discarded as non-actionable; paired counts merges that completed an entry
// with both halves.
func (m *Metrics) RecordEvent(port int, merged bool, entry engine.Entry) {
	m.totalEvents.Add(1)
	pm := m.forPort(port)
	pm.Events.Add(1)

	if !merged {
		m.totalDropped.Add(1)
		pm.Dropped.Add(1)
		return
	}
	if entry.HasRequest && entry.HasResponse {
		m.totalPaired.Add(1)
		pm.Paired.Add(1)
	}
}

func (m *Metrics) forPort(port int) *PortMetrics {
	if val, ok := m.portMetrics.Load(port); ok {
		return val.(*PortMetrics)
	}
	pm := &PortMetrics{}
	actual, _ := m.portMetrics.LoadOrStore(port, pm)
	return actual.(*PortMetrics)
}

// StatsResponse is the JSON shape served on /metrics.
type StatsResponse struct {
	TotalEvents  int64             `json:"total_events"`
	TotalDropped int64             `json:"total_dropped"`
	TotalPaired  int64             `json:"total_paired"`
	Ports        map[int]PortStats `json:"ports"`
}

// PortStats is the per-port slice of StatsResponse.
type PortStats struct {
	Events  int64 `json:"events"`
	Dropped int64 `json:"dropped"`
	Paired  int64 `json:"paired"`
}

// GetStats snapshots the counters.
func (m *Metrics) GetStats() StatsResponse {
	resp := StatsResponse{
		TotalEvents:  m.totalEvents.Load(),
		TotalDropped: m.totalDropped.Load(),
		TotalPaired:  m.totalPaired.Load(),
		Ports:        make(map[int]PortStats),
	}

	m.portMetrics.Range(func(key, value interface{}) bool {
		pm := value.(*PortMetrics)
		resp.Ports[key.(int)] = PortStats{
			Events:  pm.Events.Load(),
			Dropped: pm.Dropped.Load(),
			Paired:  pm.Paired.Load(),
		}
		return true
	})

	return resp
}

// ServeMetrics starts an HTTP server exposing the counters as JSON on
// /metrics and Prometheus text on /metrics/prometheus.
func (m *Metrics) ServeMetrics(ctx context.Context, port int, logger interface{ Info(msg string, args ...any) }) {
	mux := http.NewServeMux()

	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m.GetStats())
	})

	mux.HandleFunc("/metrics/prometheus", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		m.writePrometheusMetrics(w)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/metrics", http.StatusFound)
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	logger.Info("metrics endpoint listening", "addr", server.Addr)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Metrics are best-effort; the listeners keep running.
			logger.Info("metrics server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
}

func (m *Metrics) writePrometheusMetrics(w http.ResponseWriter) {
	fmt.Fprintf(w, "# HELP hookbench_events_total Total normalized events delivered\n")
	fmt.Fprintf(w, "# TYPE hookbench_events_total counter\n")
	fmt.Fprintf(w, "hookbench_events_total %d\n\n", m.totalEvents.Load())

	fmt.Fprintf(w, "# HELP hookbench_dropped_total Events discarded as non-actionable\n")
	fmt.Fprintf(w, "# TYPE hookbench_dropped_total counter\n")
	fmt.Fprintf(w, "hookbench_dropped_total %d\n\n", m.totalDropped.Load())

	fmt.Fprintf(w, "# HELP hookbench_paired_total Merges that completed a request/response pair\n")
	fmt.Fprintf(w, "# TYPE hookbench_paired_total counter\n")
	fmt.Fprintf(w, "hookbench_paired_total %d\n\n", m.totalPaired.Load())

	fmt.Fprintf(w, "# HELP hookbench_port_events_total Events per listener port\n")
	fmt.Fprintf(w, "# TYPE hookbench_port_events_total counter\n")
	m.portMetrics.Range(func(key, value interface{}) bool {
		pm := value.(*PortMetrics)
		fmt.Fprintf(w, "hookbench_port_events_total{port=\"%d\"} %d\n", key.(int), pm.Events.Load())
		return true
	})
	fmt.Fprintln(w)

	fmt.Fprintf(w, "# HELP hookbench_port_paired_total Completed pairs per listener port\n")
	fmt.Fprintf(w, "# TYPE hookbench_port_paired_total counter\n")
	m.portMetrics.Range(func(key, value interface{}) bool {
		pm := value.(*PortMetrics)
		fmt.Fprintf(w, "hookbench_port_paired_total{port=\"%d\"} %d\n", key.(int), pm.Paired.Load())
		return true
	})
}
