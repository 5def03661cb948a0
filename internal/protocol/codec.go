// Package protocol implements the udplog wire format: a category, a colon,
// at most one whitespace character, and a JSON object.
//
//	some_category: {"a_key": "a_value", "timestamp": "1379002018.000"}
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/udplog/udplogd/internal/event"
)

// DecodeKind classifies decode failures for drop accounting.
type DecodeKind string

const (
	InvalidCategory DecodeKind = "invalid_category"
	InvalidPayload  DecodeKind = "invalid_payload"
)

// DecodeError reports why a datagram could not be parsed.
type DecodeError struct {
	Kind DecodeKind
	Msg  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: %s: %s", e.Kind, e.Msg)
}

// Decode parses one datagram into an Event. A timestamp field in the
// payload is accepted in numeric or string form; when absent the event's
// Timestamp is left zero for the listener to fill in. Trailing whitespace
// on the datagram is ignored.
func Decode(datagram []byte) (*event.Event, error) {
	data := bytes.TrimRight(datagram, " \t\r\n\x00")

	i := bytes.IndexByte(data, ':')
	if i < 0 {
		return nil, &DecodeError{Kind: InvalidCategory, Msg: "missing category separator"}
	}
	category := string(data[:i])
	if !event.ValidCategory(category) {
		return nil, &DecodeError{Kind: InvalidCategory, Msg: fmt.Sprintf("bad category %q", category)}
	}

	rest := data[i+1:]
	if len(rest) > 0 && (rest[0] == ' ' || rest[0] == '\t') {
		rest = rest[1:]
	}

	var fields map[string]any
	if err := json.Unmarshal(rest, &fields); err != nil {
		return nil, &DecodeError{Kind: InvalidPayload, Msg: err.Error()}
	}
	if fields == nil {
		return nil, &DecodeError{Kind: InvalidPayload, Msg: "payload is not a JSON object"}
	}

	e := &event.Event{Category: category, Fields: fields}
	if raw, ok := fields["timestamp"]; ok {
		ts, err := parseTimestamp(raw)
		if err != nil {
			return nil, &DecodeError{Kind: InvalidPayload, Msg: err.Error()}
		}
		e.Timestamp = ts
		delete(fields, "timestamp")
	}
	return e, nil
}

func parseTimestamp(v any) (float64, error) {
	switch ts := v.(type) {
	case float64:
		return ts, nil
	case string:
		f, err := strconv.ParseFloat(ts, 64)
		if err != nil {
			return 0, fmt.Errorf("bad timestamp %q", ts)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("bad timestamp of type %T", v)
	}
}

// Encode is the inverse of Decode: category, colon, single space, JSON
// object. Used by the console sink and for loopback testing. Encoding an
// event with a JSON-safe field map round-trips through Decode.
func Encode(e *event.Event) ([]byte, error) {
	if !event.ValidCategory(e.Category) {
		return nil, fmt.Errorf("encode: bad category %q", e.Category)
	}
	payload := make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		payload[k] = v
	}
	if e.Timestamp != 0 {
		payload["timestamp"] = e.Timestamp
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	buf := make([]byte, 0, len(e.Category)+2+len(body))
	buf = append(buf, e.Category...)
	buf = append(buf, ':', ' ')
	return append(buf, body...), nil
}
