package ezerr

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// EventName is the name every published report carries.
const EventName = "ezerr.error_found"

// Payload keys. External subscribers may rely on these.
const (
	KeyDetail     = "detail"
	KeyFile       = "file"
	KeyFunction   = "function"
	KeyLine       = "line"
	KeyMainThread = "main_thread"
	KeyTimestamp  = "timestamp"
	KeyDomain     = "domain"
	KeyCode       = "code"
)

// PayloadKeys lists the payload keys in log order.
var PayloadKeys = []string{
	KeyDetail, KeyFile, KeyFunction, KeyLine,
	KeyMainThread, KeyTimestamp, KeyDomain, KeyCode,
}

// Record holds everything captured for one report.
type Record struct {
	Detail      string
	Description string
	File        string
	Function    string
	Line        int
	MainThread  bool
	Timestamp   time.Time
	Domain      string
	Code        string
}

// Payload returns the record as a mapping with exactly the PayloadKeys.
// The description is logged but not part of the payload.
func (r Record) Payload() map[string]any {
	return map[string]any{
		KeyDetail:     r.Detail,
		KeyFile:       r.File,
		KeyFunction:   r.Function,
		KeyLine:       r.Line,
		KeyMainThread: r.MainThread,
		KeyTimestamp:  r.Timestamp,
		KeyDomain:     r.Domain,
		KeyCode:       r.Code,
	}
}

// blockEscaper keeps every block value on its own line.
var blockEscaper = strings.NewReplacer("\r", `\r`, "\n", `\n`)

// Block renders the ten-line log block for kind. Carriage returns and
// newlines inside values are written as the two-character escapes \r and
// \n, so the block always has ten lines. Payload values are not escaped.
func (r Record) Block(kind string) string {
	mainThread := "No"
	if r.MainThread {
		mainThread = "Yes"
	}
	esc := blockEscaper.Replace
	kind = esc(kind)
	lines := []string{
		"* * * * * * * * [" + kind + " found]",
		"* Detail        : " + esc(r.Detail),
		"* Description   : " + esc(r.Description),
		"* Method name   : " + esc(r.Function),
		"* File name     : " + esc(r.File),
		"* Line number   : " + strconv.Itoa(r.Line),
		"* Main thread   : " + mainThread,
		"* Error domain  : " + esc(r.Domain),
		"* Error code    : " + esc(r.Code),
		"* * * * * * * * [End of " + kind + " log]",
	}
	return strings.Join(lines, "\n")
}

// Event is what a Reporter hands to its Publisher.
type Event struct {
	ID     string
	Name   string
	Record Record
}

// Payload returns the event payload.
func (e Event) Payload() map[string]any {
	return e.Record.Payload()
}

type eventJSON struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Payload map[string]any `json:"payload"`
}

// MarshalJSON encodes the event as {"id","name","payload"} with an
// RFC 3339 timestamp.
func (e Event) MarshalJSON() ([]byte, error) {
	payload := e.Payload()
	payload[KeyTimestamp] = e.Record.Timestamp.Format(time.RFC3339Nano)
	return json.Marshal(eventJSON{ID: e.ID, Name: e.Name, Payload: payload})
}
