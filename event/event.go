package event

import (
	"encoding/json"
	"strconv"
	"time"
)

// Event is a normalized inbound call as produced by the listener manager.
// Timestamp is the arrival time and is authoritative for ordering and
// duration math. Data is the best-effort parsed body: a JSON object, a
// JSON-quoted raw string, or nil when the call had no body.
type Event struct {
	Port      int               `json:"port"`
	Timestamp time.Time         `json:"timestamp"`
	Method    string            `json:"method"`
	Path      string            `json:"path"`
	Headers   map[string]string `json:"headers,omitempty"`
	Data      json.RawMessage   `json:"data,omitempty"`
}

// Kind discriminates what an event payload describes.
type Kind int

const (
	KindNone Kind = iota
	KindRequest
	KindResponse
)

// ID is the caller-assigned correlation key. Upstream clients send it as
// either a JSON string or a number, so it unmarshals from both.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// RequestPayload is the request half of a correlated exchange.
type RequestPayload struct {
	ID              ID                `json:"id"`
	Method          string            `json:"method"`
	URI             string            `json:"uri"`
	Headers         map[string]string `json:"headers,omitempty"`
	Data            json.RawMessage   `json:"data,omitempty"`
	QueryParameters map[string]string `json:"queryParameters,omitempty"`
}

// ResponsePayload is the response half of a correlated exchange.
type ResponsePayload struct {
	ID      ID              `json:"id"`
	Status  int             `json:"status"`
	Message string          `json:"message,omitempty"`
	URI     string          `json:"uri,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// envelope mirrors the duck-typed wire shape: exactly one of the two fields
// is expected to be present.
type envelope struct {
	Request  *RequestPayload  `json:"request"`
	Response *ResponsePayload `json:"response"`
}

// Classify collapses the field-presence discriminator into a tagged result.
// Data that is not a JSON object, or an object carrying neither a request nor
// a response field, or a payload with an empty id, classifies as KindNone.
// Exactly one of the returned payloads is non-nil for the other kinds.
func Classify(data json.RawMessage) (Kind, *RequestPayload, *ResponsePayload) {
	if len(data) == 0 {
		return KindNone, nil, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return KindNone, nil, nil
	}

	// Request wins when a payload improbably carries both halves.
	if env.Request != nil {
		if env.Request.ID == "" {
			return KindNone, nil, nil
		}
		return KindRequest, env.Request, nil
	}
	if env.Response != nil {
		if env.Response.ID == "" {
			return KindNone, nil, nil
		}
		return KindResponse, nil, env.Response
	}
	return KindNone, nil, nil
}

// FormatStatus renders a status code for filter matching and display.
func FormatStatus(code int) string {
	if code == 0 {
		return ""
	}
	return strconv.Itoa(code)
}
