package event

import (
	"encoding/json"
	"regexp"
)

var categoryRe = regexp.MustCompile(`^[0-9A-Za-z_]+$`)

// ValidCategory reports whether s is usable as a log event category on the
// wire: one or more of [0-9A-Za-z_].
func ValidCategory(s string) bool {
	return categoryRe.MatchString(s)
}

// Event is one parsed log record. Fields holds the decoded JSON payload
// minus the timestamp, which is normalized into Timestamp as floating-point
// seconds since the epoch. An event is shared by reference across all sinks
// and must not be modified after the listener hands it to the router.
type Event struct {
	Category  string
	Fields    map[string]any
	Timestamp float64

	// IngestID is assigned by the listener when the event is accepted and
	// is used as the broker partition key. It is not part of the wire
	// payload.
	IngestID string
}

// Map returns the event as a flat JSON-compatible map including category
// and timestamp, the document form downstream backends store.
func (e *Event) Map() map[string]any {
	m := make(map[string]any, len(e.Fields)+2)
	for k, v := range e.Fields {
		m[k] = v
	}
	m["category"] = e.Category
	if e.Timestamp != 0 {
		m["timestamp"] = e.Timestamp
	}
	return m
}

// Marshal encodes the event as a single JSON document.
func Marshal(e *Event) ([]byte, error) {
	return json.Marshal(e.Map())
}
