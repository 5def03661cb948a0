// Package syslog accepts RFC 3164 datagrams and converts them into udplog
// events, mirroring the field naming of the native protocol.
package syslog

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/udplog/udplogd/internal/event"
)

var facilities = []string{
	"kern", "user", "mail", "daemon", "auth", "syslog", "lpr", "news",
	"uucp", "cron", "authpriv", "ftp", "ntp", "audit", "alert", "at",
	"local0", "local1", "local2", "local3", "local4", "local5",
	"local6", "local7",
}

var severities = []string{
	"emerg", "alert", "crit", "err", "warn", "notice", "info", "debug",
}

// logLevels maps syslog severities onto udplog log levels.
var logLevels = map[string]string{
	"emerg":  "EMERGENCY",
	"alert":  "ALERT",
	"crit":   "CRITICAL",
	"err":    "ERROR",
	"warn":   "WARNING",
	"notice": "NOTICE",
	"info":   "INFO",
	"debug":  "DEBUG",
}

var lineRe = regexp.MustCompile(`^<(\d+)>([A-Za-z]{3} [ 0-9]\d \d\d:\d\d:\d\d) (\w+) (\w+)(?:\[(\d+)\])?: ?(.*)$`)

const ceeMarker = "@cee: "

// Parse converts one RFC 3164 syslog line into an event with category
// "syslog". Lines that do not match the RFC syntax become events carrying
// the whole line as the message. A trailing "@cee: {...}" JSON payload is
// merged into the event fields and may override the category.
func Parse(line string, now time.Time) *event.Event {
	fields := map[string]any{}
	e := &event.Event{Category: "syslog", Fields: fields}

	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		fields["message"] = line
		return e
	}

	if pri, err := strconv.Atoi(m[1]); err == nil && pri < len(facilities)*8 {
		fields["facility"] = facilities[pri/8]
		fields["logLevel"] = logLevels[severities[pri%8]]
	}
	if ts, err := time.ParseInLocation("Jan _2 15:04:05", m[2], now.Location()); err == nil {
		// RFC 3164 timestamps carry no year; assume the current one.
		ts = ts.AddDate(now.Year(), 0, 0)
		e.Timestamp = float64(ts.UnixNano()) / float64(time.Second)
	}
	fields["hostname"] = m[3]
	fields["appname"] = m[4]
	if m[5] != "" {
		fields["pid"] = m[5]
	}

	content := m[6]
	message := content
	if i := strings.Index(content, ceeMarker); i >= 0 {
		var cee map[string]any
		if err := json.Unmarshal([]byte(content[i+len(ceeMarker):]), &cee); err == nil && cee != nil {
			message = strings.TrimRight(content[:i], " ")
			for k, v := range cee {
				fields[k] = v
			}
		}
	}
	fields["message"] = message

	if c, ok := fields["category"].(string); ok && event.ValidCategory(c) {
		e.Category = c
	}
	delete(fields, "category")

	return e
}
