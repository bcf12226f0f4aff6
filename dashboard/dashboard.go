// Package dashboard serves the local web UI and JSON API over the engine's
// query surface. It is strictly a reader of engine state plus a control
// surface over the listener manager; all entry mutation stays in the engine.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hookbench/hookbench/engine"
	"github.com/hookbench/hookbench/listener"
)

// Dashboard fans live merged entries out to SSE clients and answers API
// queries against the engine.
type Dashboard struct {
	engine  *engine.Engine
	manager *listener.Manager
	logger  *slog.Logger

	broadcast chan engine.Entry

	sseClientsMu sync.RWMutex
	sseClients   map[chan engine.Entry]struct{}
}

// New creates a dashboard over the given engine and manager.
func New(eng *engine.Engine, mgr *listener.Manager, logger *slog.Logger) *Dashboard {
	return &Dashboard{
		engine:     eng,
		manager:    mgr,
		logger:     logger,
		broadcast:  make(chan engine.Entry, 16),
		sseClients: make(map[chan engine.Entry]struct{}),
	}
}

// Publish implements listener.EntrySink. Full broadcast buffers drop the
// update rather than stall the listener path.
func (d *Dashboard) Publish(entry engine.Entry) {
	select {
	case d.broadcast <- entry:
	default:
	}
}

func (d *Dashboard) addSSEClient(ch chan engine.Entry) {
	d.sseClientsMu.Lock()
	defer d.sseClientsMu.Unlock()
	d.sseClients[ch] = struct{}{}
}

func (d *Dashboard) removeSSEClient(ch chan engine.Entry) {
	d.sseClientsMu.Lock()
	defer d.sseClientsMu.Unlock()
	delete(d.sseClients, ch)
	close(ch)
}

func (d *Dashboard) runBroadcaster(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry := <-d.broadcast:
			d.sseClientsMu.RLock()
			for clientCh := range d.sseClients {
				select {
				case clientCh <- entry:
				default:
					// Client channel full, skip
				}
			}
			d.sseClientsMu.RUnlock()
		}
	}
}

// Handler returns the dashboard routes. Split out so tests can drive the API
// without a listening socket.
func (d *Dashboard) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/sessions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, d.engine.Sessions())

		case http.MethodPost:
			var body struct {
				Port int `json:"port"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Port <= 0 {
				writeError(w, http.StatusBadRequest, "port required")
				return
			}
			endpoint, err := d.manager.Start(body.Port)
			if err != nil {
				status := http.StatusInternalServerError
				if errors.Is(err, listener.ErrPortInUse) || errors.Is(err, engine.ErrDuplicatePort) {
					status = http.StatusConflict
				}
				writeError(w, status, err.Error())
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"port": body.Port, "endpoint": endpoint})

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/sessions/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
		portStr, tail, _ := strings.Cut(rest, "/")
		port, err := strconv.Atoi(portStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid port")
			return
		}

		switch {
		case tail == "" && r.Method == http.MethodGet:
			info, err := d.engine.Session(port)
			if err != nil {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, info)

		case tail == "" && r.Method == http.MethodDelete:
			if err := d.manager.Stop(port); err != nil {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			w.WriteHeader(http.StatusNoContent)

		case tail == "entries" && r.Method == http.MethodGet:
			entries, err := d.engine.Entries(port, r.URL.Query().Get("filter"))
			if err != nil {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, entries)

		case tail == "entries" && r.Method == http.MethodDelete:
			if err := d.engine.ClearEntries(port); err != nil {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		clientChan := make(chan engine.Entry, 16)
		d.addSSEClient(clientChan)
		defer d.removeSSEClient(clientChan)

		fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ctx.Done():
				return
			case entry := <-clientChan:
				jsonBytes, err := json.Marshal(entry)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: entry\ndata: %s\n\n", jsonBytes)
				flusher.Flush()
			}
		}
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dashboardHTML))
	})

	return mux
}

// Serve runs the dashboard until the context is canceled.
func (d *Dashboard) Serve(ctx context.Context, port int) {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	server := &http.Server{
		Addr:    addr,
		Handler: d.Handler(ctx),
	}

	d.logger.Info("dashboard listening", "url", "http://"+addr)

	go d.runBroadcaster(ctx)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.logger.Error("dashboard server error", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
