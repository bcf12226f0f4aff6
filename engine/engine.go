// Package engine implements the request/response correlation core: it
// consumes normalized listener events and maintains a per-port, newest-first
// log of merged entries. It knows nothing about networking; the listener
// manager owns the sockets and feeds it one event at a time.
package engine

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hookbench/hookbench/event"
)

var (
	// ErrDuplicatePort is returned when opening a session for a port that
	// already has an active one.
	ErrDuplicatePort = errors.New("session already open for port")

	// ErrUnknownPort is returned by control-surface operations referencing a
	// port with no active session.
	ErrUnknownPort = errors.New("no session for port")
)

// Session holds the state of one open, port-bound listener: its identity and
// the entry log it exclusively owns.
type Session struct {
	ID       string
	Port     int
	Endpoint string
	OpenedAt time.Time

	mu      sync.Mutex
	entries []*Entry
	max     int
}

// SessionInfo is the read-only projection of a session handed to callers.
type SessionInfo struct {
	ID       string    `json:"id"`
	Port     int       `json:"port"`
	Endpoint string    `json:"endpoint"`
	OpenedAt time.Time `json:"opened_at"`
	Entries  int       `json:"entries"`
}

// Engine owns the registry of active sessions. All mutation goes through it;
// queries hand out copies so callers can never reach into a session's log.
type Engine struct {
	mu       sync.RWMutex
	sessions map[int]*Session

	// MaxEntries caps each session's log, dropping the oldest entries past
	// the cap. Zero means unbounded. Set before use, not concurrently.
	MaxEntries int
}

// New creates an engine with no open sessions.
func New() *Engine {
	return &Engine{
		sessions: make(map[int]*Session),
	}
}

// OpenSession creates a session for the port. The endpoint is the display
// address assigned at bind time and is immutable for the session's lifetime.
func (e *Engine) OpenSession(port int, endpoint string) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.sessions[port]; exists {
		return nil, ErrDuplicatePort
	}

	s := &Session{
		ID:       uuid.NewString(),
		Port:     port,
		Endpoint: endpoint,
		OpenedAt: time.Now(),
		max:      e.MaxEntries,
	}
	e.sessions[port] = s
	return s, nil
}

// CloseSession discards the session and all its entries. Re-opening the same
// port number later creates a brand-new session with no history.
func (e *Engine) CloseSession(port int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.sessions[port]; !exists {
		return ErrUnknownPort
	}
	delete(e.sessions, port)
	return nil
}

// ClearEntries empties the session's log in place without closing it.
func (e *Engine) ClearEntries(port int) error {
	e.mu.RLock()
	s, exists := e.sessions[port]
	e.mu.RUnlock()

	if !exists {
		return ErrUnknownPort
	}

	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
	return nil
}

// Ports returns the active ports in ascending order.
func (e *Engine) Ports() []int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ports := make([]int, 0, len(e.sessions))
	for p := range e.sessions {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports
}

// Sessions returns a snapshot of all active sessions, ordered by port.
func (e *Engine) Sessions() []SessionInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(e.sessions))
	for _, s := range e.sessions {
		s.mu.Lock()
		n := len(s.entries)
		s.mu.Unlock()
		infos = append(infos, SessionInfo{
			ID:       s.ID,
			Port:     s.Port,
			Endpoint: s.Endpoint,
			OpenedAt: s.OpenedAt,
			Entries:  n,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Port < infos[j].Port })
	return infos
}

// Session returns the session info for a port.
func (e *Engine) Session(port int) (SessionInfo, error) {
	e.mu.RLock()
	s, exists := e.sessions[port]
	e.mu.RUnlock()

	if !exists {
		return SessionInfo{}, ErrUnknownPort
	}
	s.mu.Lock()
	n := len(s.entries)
	s.mu.Unlock()
	return SessionInfo{
		ID:       s.ID,
		Port:     s.Port,
		Endpoint: s.Endpoint,
		OpenedAt: s.OpenedAt,
		Entries:  n,
	}, nil
}

// ProcessEvent merges one normalized event into the owning session's log and
// returns a copy of the affected entry. It never fails outward: events for an
// unknown port, payloads without a discriminator, and payloads without an id
// are silent no-ops (ok=false). Malformed data degrades to a partially
// populated entry rather than an error, since delivery order and payload
// shape are not guaranteed upstream.
func (e *Engine) ProcessEvent(ev event.Event) (Entry, bool) {
	e.mu.RLock()
	s, exists := e.sessions[ev.Port]
	e.mu.RUnlock()

	if !exists {
		// Events can race session teardown; nothing to attach to.
		return Entry{}, false
	}

	kind, req, res := event.Classify(ev.Data)
	if kind == event.KindNone {
		return Entry{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case event.KindRequest:
		return s.mergeRequest(req, ev.Timestamp), true
	case event.KindResponse:
		return s.mergeResponse(res, ev.Timestamp), true
	}
	return Entry{}, false
}

// Entries returns the session's merged entries, newest first, filtered by a
// case-insensitive substring match (see Entry.Matches). The result is a copy;
// mutating it cannot affect engine state.
func (e *Engine) Entries(port int, filter string) ([]Entry, error) {
	e.mu.RLock()
	s, exists := e.sessions[port]
	e.mu.RUnlock()

	if !exists {
		return nil, ErrUnknownPort
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		if entry.Matches(filter) {
			out = append(out, entry.clone())
		}
	}
	return out, nil
}

// mergeRequest fills the request half. A matching entry means an orphaned
// response (or a reused id) arrived first; its request side is overwritten in
// place and the response side is preserved. Otherwise a new request-only
// entry is prepended.
func (s *Session) mergeRequest(p *event.RequestPayload, ts time.Time) Entry {
	if entry := s.find(p.ID.String()); entry != nil {
		entry.applyRequest(p, ts)
		return entry.clone()
	}

	entry := &Entry{ID: p.ID.String(), Port: s.Port}
	entry.applyRequest(p, ts)
	s.prepend(entry)
	return entry.clone()
}

// mergeResponse fills the response half of the matching entry, computing the
// duration from the stored request timestamp. With no prior request seen it
// synthesizes an entry with an unknown method, both timestamps set to the
// response's arrival, and a zero duration.
func (s *Session) mergeResponse(p *event.ResponsePayload, ts time.Time) Entry {
	if entry := s.find(p.ID.String()); entry != nil {
		entry.applyResponse(p, ts)
		return entry.clone()
	}

	entry := &Entry{
		ID:          p.ID.String(),
		Port:        s.Port,
		Method:      MethodUnknown,
		RequestTime: ts,
	}
	entry.applyResponse(p, ts)
	s.prepend(entry)
	return entry.clone()
}

func (s *Session) find(id string) *Entry {
	for _, entry := range s.entries {
		if entry.ID == id {
			return entry
		}
	}
	return nil
}

func (s *Session) prepend(entry *Entry) {
	s.entries = append([]*Entry{entry}, s.entries...)
	if s.max > 0 && len(s.entries) > s.max {
		s.entries = s.entries[:s.max]
	}
}
