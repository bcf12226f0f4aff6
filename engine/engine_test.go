package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hookbench/hookbench/event"
)

var t0 = time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)

func requestEvent(port int, id, method, uri string, ts time.Time, body string) event.Event {
	data := fmt.Sprintf(`{"request":{"id":%q,"method":%q,"uri":%q`, id, method, uri)
	if body != "" {
		data += `,"data":` + body
	}
	data += `}}`
	return event.Event{Port: port, Timestamp: ts, Method: "POST", Path: "/", Data: json.RawMessage(data)}
}

func responseEvent(port int, id string, status int, ts time.Time, body string) event.Event {
	data := fmt.Sprintf(`{"response":{"id":%q,"status":%d`, id, status)
	if body != "" {
		data += `,"data":` + body
	}
	data += `}}`
	return event.Event{Port: port, Timestamp: ts, Method: "POST", Path: "/", Data: json.RawMessage(data)}
}

func openSession(t *testing.T, e *Engine, port int) {
	t.Helper()
	if _, err := e.OpenSession(port, fmt.Sprintf("127.0.0.1:%d", port)); err != nil {
		t.Fatalf("OpenSession(%d) failed: %v", port, err)
	}
}

func TestOpenSession_DuplicatePort(t *testing.T) {
	e := New()
	openSession(t, e, 4000)

	if _, err := e.OpenSession(4000, "127.0.0.1:4000"); !errors.Is(err, ErrDuplicatePort) {
		t.Errorf("second OpenSession error = %v, want ErrDuplicatePort", err)
	}
}

func TestCloseSession_UnknownPort(t *testing.T) {
	e := New()

	if err := e.CloseSession(5000); !errors.Is(err, ErrUnknownPort) {
		t.Errorf("CloseSession(5000) error = %v, want ErrUnknownPort", err)
	}
}

func TestCloseSession_ReopenIsFresh(t *testing.T) {
	e := New()
	openSession(t, e, 4000)
	e.ProcessEvent(requestEvent(4000, "1", "GET", "/x", t0, ""))

	if err := e.CloseSession(4000); err != nil {
		t.Fatalf("CloseSession failed: %v", err)
	}
	openSession(t, e, 4000)

	entries, err := e.Entries(4000, "")
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("re-opened session has %d entries, want 0", len(entries))
	}
}

func TestProcessEvent_RequestOnly(t *testing.T) {
	e := New()
	openSession(t, e, 4000)

	entry, ok := e.ProcessEvent(requestEvent(4000, "1", "GET", "/x", t0, ""))
	if !ok {
		t.Fatal("ProcessEvent returned ok=false for a valid request event")
	}

	if !entry.HasRequest {
		t.Error("HasRequest = false, want true")
	}
	if entry.HasResponse {
		t.Error("HasResponse = true, want false (response pending)")
	}
	if entry.Method != "GET" || entry.URI != "/x" {
		t.Errorf("request fields = %s %s, want GET /x", entry.Method, entry.URI)
	}
	if !entry.RequestTime.Equal(t0) {
		t.Errorf("RequestTime = %v, want %v", entry.RequestTime, t0)
	}
	if entry.Duration != 0 {
		t.Errorf("Duration = %v, want 0 with no response", entry.Duration)
	}
	if entry.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", entry.StatusCode)
	}
}

func TestProcessEvent_RequestThenResponse(t *testing.T) {
	e := New()
	openSession(t, e, 4000)

	e.ProcessEvent(requestEvent(4000, "1", "GET", "/x", t0, ""))

	respTime := t0.Add(50 * time.Millisecond)
	entry, ok := e.ProcessEvent(responseEvent(4000, "1", 200, respTime, `{"ok":true}`))
	if !ok {
		t.Fatal("ProcessEvent returned ok=false for a valid response event")
	}

	if entry.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", entry.StatusCode)
	}
	if entry.Duration != 50*time.Millisecond {
		t.Errorf("Duration = %v, want 50ms", entry.Duration)
	}
	if string(entry.ResponseData) != `{"ok":true}` {
		t.Errorf("ResponseData = %s, want {\"ok\":true}", entry.ResponseData)
	}

	entries, _ := e.Entries(4000, "")
	if len(entries) != 1 {
		t.Fatalf("log has %d entries, want 1 (merged)", len(entries))
	}
	if !entries[0].HasRequest || !entries[0].HasResponse {
		t.Error("stored entry should have both halves")
	}
}

func TestProcessEvent_ClockSkewStoredAsIs(t *testing.T) {
	e := New()
	openSession(t, e, 4000)

	e.ProcessEvent(requestEvent(4000, "1", "GET", "/x", t0, ""))
	entry, _ := e.ProcessEvent(responseEvent(4000, "1", 200, t0.Add(-time.Second), ""))

	if entry.Duration != -time.Second {
		t.Errorf("Duration = %v, want -1s stored as-is", entry.Duration)
	}
}

func TestProcessEvent_OrphanedResponse(t *testing.T) {
	e := New()
	openSession(t, e, 4000)

	entry, ok := e.ProcessEvent(responseEvent(4000, "9", 404, t0, `{"err":"missing"}`))
	if !ok {
		t.Fatal("ProcessEvent returned ok=false for an orphaned response")
	}

	if entry.Method != MethodUnknown {
		t.Errorf("Method = %q, want %q", entry.Method, MethodUnknown)
	}
	if entry.Duration != 0 {
		t.Errorf("Duration = %v, want 0", entry.Duration)
	}
	if !entry.RequestTime.Equal(t0) || !entry.ResponseTime.Equal(t0) {
		t.Error("both timestamps should be the response arrival time")
	}
	if entry.HasRequest {
		t.Error("HasRequest = true, want false for orphan")
	}
}

func TestProcessEvent_LateRequestFillsOrphan(t *testing.T) {
	e := New()
	openSession(t, e, 4000)

	e.ProcessEvent(responseEvent(4000, "9", 201, t0, `{"made":1}`))
	entry, ok := e.ProcessEvent(requestEvent(4000, "9", "PUT", "/things", t0.Add(time.Second), `{"name":"a"}`))
	if !ok {
		t.Fatal("ProcessEvent returned ok=false for the late request")
	}

	if entry.Method != "PUT" || entry.URI != "/things" {
		t.Errorf("request fields = %s %s, want PUT /things", entry.Method, entry.URI)
	}
	if entry.StatusCode != 201 {
		t.Errorf("StatusCode = %d, want stored 201 preserved", entry.StatusCode)
	}
	if string(entry.ResponseData) != `{"made":1}` {
		t.Error("response data should survive the late request")
	}
	if entry.Duration != 0 {
		t.Errorf("Duration = %v, want the already-computed 0 preserved", entry.Duration)
	}

	entries, _ := e.Entries(4000, "")
	if len(entries) != 1 {
		t.Errorf("log has %d entries, want 1", len(entries))
	}
}

func TestProcessEvent_DuplicateRequestIDOverwrites(t *testing.T) {
	e := New()
	openSession(t, e, 4000)

	e.ProcessEvent(requestEvent(4000, "1", "GET", "/old", t0, ""))
	e.ProcessEvent(requestEvent(4000, "1", "POST", "/new", t0.Add(time.Second), ""))

	entries, _ := e.Entries(4000, "")
	if len(entries) != 1 {
		t.Fatalf("log has %d entries, want 1 (overwrite wins)", len(entries))
	}
	if entries[0].Method != "POST" || entries[0].URI != "/new" {
		t.Errorf("entry = %s %s, want the later request's POST /new", entries[0].Method, entries[0].URI)
	}
}

func TestProcessEvent_UnknownPortIsNoOp(t *testing.T) {
	e := New()
	openSession(t, e, 4000)
	e.ProcessEvent(requestEvent(4000, "1", "GET", "/x", t0, ""))

	before, _ := e.Entries(4000, "")

	if _, ok := e.ProcessEvent(requestEvent(9999, "2", "GET", "/y", t0, "")); ok {
		t.Error("event for unknown port should be a no-op")
	}

	after, _ := e.Entries(4000, "")
	if len(before) != len(after) {
		t.Fatalf("other session changed: %d -> %d entries", len(before), len(after))
	}
	b, _ := json.Marshal(before)
	a, _ := json.Marshal(after)
	if string(b) != string(a) {
		t.Error("other session's entries changed byte-for-byte")
	}
}

func TestProcessEvent_NonActionablePayloads(t *testing.T) {
	e := New()
	openSession(t, e, 4000)

	tests := []struct {
		name string
		data string
	}{
		{name: "no discriminator", data: `{"hello":"world"}`},
		{name: "missing id", data: `{"request":{"method":"GET","uri":"/x"}}`},
		{name: "empty id", data: `{"request":{"id":"","method":"GET","uri":"/x"}}`},
		{name: "raw text body", data: `"plain text"`},
		{name: "null payload", data: `{"request":null}`},
		{name: "non-object data", data: `42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := event.Event{Port: 4000, Timestamp: t0, Data: json.RawMessage(tt.data)}
			if _, ok := e.ProcessEvent(ev); ok {
				t.Errorf("payload %s should be a no-op", tt.data)
			}
		})
	}

	if _, ok := e.ProcessEvent(event.Event{Port: 4000, Timestamp: t0}); ok {
		t.Error("absent data should be a no-op")
	}

	entries, _ := e.Entries(4000, "")
	if len(entries) != 0 {
		t.Errorf("log has %d entries after non-actionable events, want 0", len(entries))
	}
}

func TestProcessEvent_NumericID(t *testing.T) {
	e := New()
	openSession(t, e, 4000)

	ev := event.Event{
		Port:      4000,
		Timestamp: t0,
		Data:      json.RawMessage(`{"request":{"id":1,"method":"GET","uri":"/x"}}`),
	}
	entry, ok := e.ProcessEvent(ev)
	if !ok {
		t.Fatal("numeric id should be accepted")
	}
	if entry.ID != "1" {
		t.Errorf("ID = %q, want %q", entry.ID, "1")
	}

	// Correlates with a numeric-id response too
	res := event.Event{
		Port:      4000,
		Timestamp: t0.Add(50 * time.Millisecond),
		Data:      json.RawMessage(`{"response":{"id":1,"status":200,"data":{"ok":true}}}`),
	}
	entry, ok = e.ProcessEvent(res)
	if !ok {
		t.Fatal("numeric-id response should merge")
	}
	if entry.StatusCode != 200 || entry.Duration != 50*time.Millisecond {
		t.Errorf("merged entry = status %d duration %v, want 200 and 50ms", entry.StatusCode, entry.Duration)
	}
}

func TestEntries_NewestFirst(t *testing.T) {
	e := New()
	openSession(t, e, 4000)

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("%d", i)
		e.ProcessEvent(requestEvent(4000, id, "GET", "/"+id, t0.Add(time.Duration(i)*time.Second), ""))
	}

	entries, _ := e.Entries(4000, "")
	if len(entries) != 5 {
		t.Fatalf("got %d entries, want 5", len(entries))
	}
	if entries[0].ID != "4" {
		t.Errorf("first entry ID = %s, want 4 (newest first)", entries[0].ID)
	}
	if entries[4].ID != "0" {
		t.Errorf("last entry ID = %s, want 0", entries[4].ID)
	}
}

func TestEntries_Filter(t *testing.T) {
	e := New()
	openSession(t, e, 4000)

	e.ProcessEvent(requestEvent(4000, "a", "GET", "/a", t0, ""))
	e.ProcessEvent(responseEvent(4000, "a", 200, t0.Add(time.Millisecond), ""))
	e.ProcessEvent(requestEvent(4000, "b", "POST", "/b", t0, `{"color":"Purple"}`))
	e.ProcessEvent(responseEvent(4000, "b", 404, t0.Add(time.Millisecond), ""))

	tests := []struct {
		name    string
		filter  string
		wantIDs []string
	}{
		{name: "empty filter returns all in order", filter: "", wantIDs: []string{"b", "a"}},
		{name: "method case-insensitive", filter: "post", wantIDs: []string{"b"}},
		{name: "status code", filter: "404", wantIDs: []string{"b"}},
		{name: "uri", filter: "/a", wantIDs: []string{"a"}},
		{name: "request body", filter: "purple", wantIDs: []string{"b"}},
		{name: "no match", filter: "zebra", wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := e.Entries(4000, tt.filter)
			if err != nil {
				t.Fatalf("Entries failed: %v", err)
			}
			if len(entries) != len(tt.wantIDs) {
				t.Fatalf("got %d entries, want %d", len(entries), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if entries[i].ID != want {
					t.Errorf("entries[%d].ID = %s, want %s", i, entries[i].ID, want)
				}
			}
		})
	}
}

func TestEntries_UnknownPort(t *testing.T) {
	e := New()
	if _, err := e.Entries(4000, ""); !errors.Is(err, ErrUnknownPort) {
		t.Errorf("Entries on unknown port error = %v, want ErrUnknownPort", err)
	}
}

func TestEntries_ReturnsCopies(t *testing.T) {
	e := New()
	openSession(t, e, 4000)
	e.ProcessEvent(requestEvent(4000, "1", "GET", "/x", t0, `{"k":"v"}`))

	entries, _ := e.Entries(4000, "")
	entries[0].Method = "HACKED"
	entries[0].RequestData[0] = 'X'

	again, _ := e.Entries(4000, "")
	if again[0].Method != "GET" {
		t.Error("mutating a query result leaked into engine state")
	}
	if string(again[0].RequestData) != `{"k":"v"}` {
		t.Error("mutating returned raw data leaked into engine state")
	}
}

func TestClearEntries(t *testing.T) {
	e := New()
	openSession(t, e, 4000)
	openSession(t, e, 4001)

	e.ProcessEvent(requestEvent(4000, "1", "GET", "/x", t0, ""))
	e.ProcessEvent(requestEvent(4001, "1", "GET", "/y", t0, ""))

	if err := e.ClearEntries(4000); err != nil {
		t.Fatalf("ClearEntries failed: %v", err)
	}

	cleared, _ := e.Entries(4000, "")
	if len(cleared) != 0 {
		t.Errorf("cleared session has %d entries, want 0", len(cleared))
	}
	other, _ := e.Entries(4001, "")
	if len(other) != 1 {
		t.Errorf("other session has %d entries, want 1 untouched", len(other))
	}

	if err := e.ClearEntries(5000); !errors.Is(err, ErrUnknownPort) {
		t.Errorf("ClearEntries(5000) error = %v, want ErrUnknownPort", err)
	}
}

func TestMaxEntries(t *testing.T) {
	e := New()
	e.MaxEntries = 3
	openSession(t, e, 4000)

	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("%d", i)
		e.ProcessEvent(requestEvent(4000, id, "GET", "/"+id, t0, ""))
	}

	entries, _ := e.Entries(4000, "")
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].ID != "5" || entries[2].ID != "3" {
		t.Errorf("kept entries %s..%s, want 5..3 (newest kept)", entries[0].ID, entries[2].ID)
	}
}

// The walkthrough from the design discussion: open 4000, request at t=0,
// response 50ms later with a JSON body.
func TestScenario_Port4000(t *testing.T) {
	e := New()
	openSession(t, e, 4000)

	e.ProcessEvent(requestEvent(4000, "1", "GET", "/x", t0, ""))

	entries, _ := e.Entries(4000, "")
	if len(entries) != 1 || entries[0].HasResponse {
		t.Fatal("expected exactly one pending entry before the response")
	}

	e.ProcessEvent(responseEvent(4000, "1", 200, t0.Add(50*time.Millisecond), `{"ok":true}`))

	entries, _ = e.Entries(4000, "")
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	got := entries[0]
	if got.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", got.StatusCode)
	}
	if got.Duration != 50*time.Millisecond {
		t.Errorf("Duration = %v, want 50ms", got.Duration)
	}
	if string(got.ResponseData) != `{"ok":true}` {
		t.Errorf("ResponseData = %s, want {\"ok\":true}", got.ResponseData)
	}
}

func TestSessions_Snapshot(t *testing.T) {
	e := New()
	openSession(t, e, 4001)
	openSession(t, e, 4000)
	e.ProcessEvent(requestEvent(4001, "1", "GET", "/x", t0, ""))

	infos := e.Sessions()
	if len(infos) != 2 {
		t.Fatalf("got %d sessions, want 2", len(infos))
	}
	if infos[0].Port != 4000 || infos[1].Port != 4001 {
		t.Errorf("ports = %d,%d, want ascending 4000,4001", infos[0].Port, infos[1].Port)
	}
	if infos[1].Entries != 1 {
		t.Errorf("entry count = %d, want 1", infos[1].Entries)
	}
	if infos[0].ID == "" || infos[0].ID == infos[1].ID {
		t.Error("sessions should get distinct non-empty ids")
	}
}
