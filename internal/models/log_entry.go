package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	OutcomeSuccess = "SUCCESS"
	OutcomeFailure = "FAILURE"
)

// LogEntry is one completed command in the activity log.
type LogEntry struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	CommandID string      `json:"command_id"`
	Source    Source      `json:"source"`
	Command   CommandKind `json:"command"`
	Outcome   string      `json:"outcome"`          // SUCCESS | FAILURE
	Reason    string      `json:"reason,omitempty"` // e.g. modem_unavailable
}

// Succeeded reports whether the entry records a successful command.
func (e LogEntry) Succeeded() bool {
	return e.Outcome == OutcomeSuccess
}

// LineTimeLayout is the timestamp layout of the textual activity log.
const LineTimeLayout = "2006-01-02 15:04:05"

// Line renders the entry as one activity-log line in loc:
//
//	[2025-01-01 22:00:00] TIMER CLOSE FAILURE modem_unavailable cmd-Ab3xZ9qk
func (e LogEntry) Line(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(e.Timestamp.In(loc).Format(LineTimeLayout))
	b.WriteString("] ")
	b.WriteString(string(e.Source))
	b.WriteString(" ")
	b.WriteString(string(e.Command))
	b.WriteString(" ")
	b.WriteString(e.Outcome)
	if e.Reason != "" {
		b.WriteString(" ")
		b.WriteString(e.Reason)
	}
	if e.CommandID != "" {
		b.WriteString(" ")
		b.WriteString(e.CommandID)
	}
	return b.String()
}

// ParseLogLine is the inverse of Line. The entry ID is left empty; it is not
// part of the textual format.
func ParseLogLine(line string, loc *time.Location) (LogEntry, error) {
	if loc == nil {
		loc = time.Local
	}
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[") {
		return LogEntry{}, fmt.Errorf("log line %q: missing timestamp", line)
	}
	stamp, rest, ok := strings.Cut(line[1:], "] ")
	if !ok {
		return LogEntry{}, fmt.Errorf("log line %q: unterminated timestamp", line)
	}
	ts, err := time.ParseInLocation(LineTimeLayout, stamp, loc)
	if err != nil {
		return LogEntry{}, fmt.Errorf("log line %q: %w", line, err)
	}

	fields := strings.Fields(rest)
	if len(fields) < 3 {
		return LogEntry{}, fmt.Errorf("log line %q: want SOURCE COMMAND OUTCOME", line)
	}
	src, err := ParseSource(fields[0])
	if err != nil {
		return LogEntry{}, err
	}
	kind, err := ParseCommandKind(fields[1])
	if err != nil {
		return LogEntry{}, err
	}
	e := LogEntry{Timestamp: ts.UTC(), Source: src, Command: kind}
	switch fields[2] {
	case OutcomeSuccess, OutcomeFailure:
		e.Outcome = fields[2]
	default:
		return LogEntry{}, fmt.Errorf("log line %q: unknown outcome %q", line, fields[2])
	}

	tail := fields[3:]
	if e.Outcome == OutcomeFailure && len(tail) > 0 && !strings.HasPrefix(tail[0], CommandIDPrefix) {
		e.Reason, tail = tail[0], tail[1:]
	}
	if len(tail) > 0 {
		e.CommandID = tail[0]
	}
	return e, nil
}
