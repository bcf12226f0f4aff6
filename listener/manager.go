// Package listener owns the ad-hoc inbound HTTP endpoints, one per
// registered port. It normalizes every inbound call into an event for the
// correlation engine and guarantees events for a port reach the engine in
// the order they were observed on the wire.
package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hookbench/hookbench/engine"
	"github.com/hookbench/hookbench/event"
)

// ErrPortInUse is returned when a listener for the port is already running,
// or when the bind itself fails because another process holds the port.
var ErrPortInUse = errors.New("port already in use")

// maxBodyBytes caps how much of an inbound body is read for normalization.
const maxBodyBytes = 1024 * 1024

// EntrySink receives a copy of every merged entry the engine produces.
// Implementations must not block; the dashboard uses this to fan out SSE
// updates.
type EntrySink interface {
	Publish(entry engine.Entry)
}

// Config holds manager options.
type Config struct {
	Host      string  // bind host, default 127.0.0.1
	RateLimit float64 // events per second per client IP, 0 to disable
	RateBurst int     // burst capacity, defaults to 2x rate
}

type portListener struct {
	port     int
	server   *http.Server
	listener net.Listener

	// Serializes normalization + engine delivery so events for this port hit
	// the engine in accept order even though net/http handles concurrently.
	mu sync.Mutex
}

// Manager owns zero or more independent listeners, one per port.
type Manager struct {
	config  Config
	logger  *slog.Logger
	engine  *engine.Engine
	sink    EntrySink
	metrics *Metrics

	mu        sync.Mutex
	listeners map[int]*portListener

	rateLimiter *RateLimiter
	rateDone    chan struct{}
}

// NewManager creates a manager feeding the given engine. sink may be nil.
func NewManager(cfg Config, eng *engine.Engine, logger *slog.Logger) *Manager {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}

	m := &Manager{
		config:    cfg,
		logger:    logger,
		engine:    eng,
		metrics:   NewMetrics(),
		listeners: make(map[int]*portListener),
		rateDone:  make(chan struct{}),
	}

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst == 0 {
			burst = int(cfg.RateLimit) * 2
		}
		m.rateLimiter = NewRateLimiter(cfg.RateLimit, burst)
		m.rateLimiter.StartCleanup(5*time.Minute, 10*time.Minute, m.rateDone)
	}

	return m
}

// SetSink installs the merged-entry sink. Call before Start.
func (m *Manager) SetSink(sink EntrySink) {
	m.sink = sink
}

// Metrics exposes the manager's counters.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// Start binds a listener on the port and opens the matching engine session.
// The registry lock is held across the existence check and the bind so two
// concurrent starts for the same port cannot both succeed.
func (m *Manager) Start(port int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.listeners[port]; exists {
		return "", fmt.Errorf("listener on %d: %w", port, ErrPortInUse)
	}

	addr := fmt.Sprintf("%s:%d", m.config.Host, port)
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("bind %s: %w", addr, ErrPortInUse)
	}

	endpoint := l.Addr().String()
	if _, err := m.engine.OpenSession(port, endpoint); err != nil {
		l.Close()
		return "", err
	}

	pl := &portListener{port: port, listener: l}
	pl.server = &http.Server{
		Handler:           m.handler(pl),
		ReadHeaderTimeout: 10 * time.Second,
	}
	m.listeners[port] = pl

	go func() {
		if err := pl.server.Serve(l); err != nil && err != http.ErrServerClosed {
			m.logger.Error("listener failed", "port", port, "error", err)
		}
	}()

	m.logger.Info("listener started", "port", port, "endpoint", endpoint)
	return endpoint, nil
}

// Stop shuts the listener down gracefully and closes its engine session.
// Events still in flight for the port land after the session is gone and are
// dropped by the engine.
func (m *Manager) Stop(port int) error {
	m.mu.Lock()
	pl, exists := m.listeners[port]
	if exists {
		delete(m.listeners, port)
	}
	m.mu.Unlock()

	if !exists {
		return engine.ErrUnknownPort
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pl.server.Shutdown(ctx)

	if err := m.engine.CloseSession(port); err != nil {
		return err
	}
	m.logger.Info("listener stopped", "port", port)
	return nil
}

// Ports returns the ports with running listeners, ascending.
func (m *Manager) Ports() []int {
	return m.engine.Ports()
}

// StopAll tears down every listener. Used on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	ports := make([]int, 0, len(m.listeners))
	for p := range m.listeners {
		ports = append(ports, p)
	}
	m.mu.Unlock()

	for _, p := range ports {
		if err := m.Stop(p); err != nil && !errors.Is(err, engine.ErrUnknownPort) {
			m.logger.Error("stop failed", "port", p, "error", err)
		}
	}
	close(m.rateDone)
}

// handler normalizes every inbound call, regardless of method or path, and
// hands it to the engine. The body is best-effort parsed: a JSON document is
// passed through as-is, anything else is carried as a JSON-quoted string so
// the classification boundary sees one shape.
func (m *Manager) handler(pl *portListener) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.rateLimiter != nil && !m.rateLimiter.Allow(clientIP(r.RemoteAddr)) {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		body, _ := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))

		headers := make(map[string]string, len(r.Header))
		for k := range r.Header {
			headers[k] = r.Header.Get(k)
		}

		var data json.RawMessage
		if len(body) > 0 {
			if json.Valid(body) {
				data = body
			} else {
				// Opaque raw text; still delivered, the engine drops it as
				// non-actionable.
				quoted, _ := json.Marshal(string(body))
				data = quoted
			}
		}

		// Serialize so arrival order on this port is delivery order.
		pl.mu.Lock()
		ev := event.Event{
			Port:      pl.port,
			Timestamp: time.Now(),
			Method:    r.Method,
			Path:      r.URL.Path,
			Headers:   headers,
			Data:      data,
		}
		entry, merged := m.engine.ProcessEvent(ev)
		pl.mu.Unlock()

		m.metrics.RecordEvent(pl.port, merged, entry)
		if merged && m.sink != nil {
			m.sink.Publish(entry)
		}

		w.Header().Set("Content-Type", "application/json")
		if !merged {
			json.NewEncoder(w).Encode(map[string]string{"status": "ignored"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "accepted", "id": entry.ID})
	})
}

// clientIP extracts the IP from a RemoteAddr string (ip:port).
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
