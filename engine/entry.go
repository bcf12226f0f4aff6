package engine

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/hookbench/hookbench/event"
)

// MethodUnknown marks the request side of an entry synthesized from an
// orphaned response.
const MethodUnknown = "UNKNOWN"

// Entry is a correlated record combining a request and its (possibly
// not-yet-arrived) response. Identity is (ID, Port), unique within a
// session's log. Either half may be unpopulated; once set, fields are only
// ever overwritten by a later event of the same half, never unset.
type Entry struct {
	ID   string `json:"id"`
	Port int    `json:"port"`

	// Request side
	Method          string            `json:"method,omitempty"`
	URI             string            `json:"uri,omitempty"`
	RequestTime     time.Time         `json:"request_time,omitzero"`
	RequestHeaders  map[string]string `json:"request_headers,omitempty"`
	RequestData     json.RawMessage   `json:"request_data,omitempty"`
	QueryParameters map[string]string `json:"query_parameters,omitempty"`
	HasRequest      bool              `json:"has_request"`

	// Response side
	ResponseTime    time.Time       `json:"response_time,omitzero"`
	StatusCode      int             `json:"status_code,omitempty"`
	ResponseMessage string          `json:"response_message,omitempty"`
	ResponseData    json.RawMessage `json:"response_data,omitempty"`
	HasResponse     bool            `json:"has_response"`

	// Duration is response arrival minus request arrival, computed when the
	// response merges into an entry that already has a request timestamp.
	// Stored as-is even when ordering makes it zero or negative.
	Duration time.Duration `json:"duration_ns"`
}

// applyRequest overwrites the request half from a request payload. The
// response half and any computed duration are left untouched.
func (e *Entry) applyRequest(p *event.RequestPayload, ts time.Time) {
	e.Method = p.Method
	e.URI = p.URI
	e.RequestTime = ts
	e.RequestHeaders = p.Headers
	e.RequestData = p.Data
	e.QueryParameters = p.QueryParameters
	e.HasRequest = true
}

// applyResponse overwrites the response half from a response payload and
// recomputes the duration from the stored request timestamp.
func (e *Entry) applyResponse(p *event.ResponsePayload, ts time.Time) {
	e.ResponseTime = ts
	e.StatusCode = p.Status
	e.ResponseMessage = p.Message
	if p.URI != "" && e.URI == "" {
		e.URI = p.URI
	}
	e.ResponseData = p.Data
	e.HasResponse = true
	if !e.RequestTime.IsZero() {
		e.Duration = ts.Sub(e.RequestTime)
	}
}

// Matches reports whether the entry matches a case-insensitive substring
// filter across method, uri, status code, and both JSON bodies. The empty
// filter matches everything.
func (e *Entry) Matches(filter string) bool {
	if filter == "" {
		return true
	}
	f := strings.ToLower(filter)

	for _, field := range []string{
		e.Method,
		e.URI,
		event.FormatStatus(e.StatusCode),
		string(e.RequestData),
		string(e.ResponseData),
	} {
		if field != "" && strings.Contains(strings.ToLower(field), f) {
			return true
		}
	}
	return false
}

// clone returns a deep enough copy for handing outside the engine: callers
// must never be able to mutate the session-owned entry through the result.
func (e *Entry) clone() Entry {
	c := *e
	c.RequestHeaders = copyMap(e.RequestHeaders)
	c.QueryParameters = copyMap(e.QueryParameters)
	c.RequestData = copyRaw(e.RequestData)
	c.ResponseData = copyRaw(e.ResponseData)
	return c
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	dst := make(map[string]string, len(m))
	for k, v := range m {
		dst[k] = v
	}
	return dst
}

func copyRaw(r json.RawMessage) json.RawMessage {
	if r == nil {
		return nil
	}
	dst := make(json.RawMessage, len(r))
	copy(dst, r)
	return dst
}
