package models

import (
	"fmt"
	"strings"
	"time"
)

// CommandKind is the gate action requested by a command.
type CommandKind string

const (
	CommandOpen      CommandKind = "OPEN"
	CommandClose     CommandKind = "CLOSE"
	CommandStatus    CommandKind = "STATUS"
	CommandMomentary CommandKind = "MOMENTARY"
)

// CommandKinds lists every kind in display order.
var CommandKinds = []CommandKind{CommandOpen, CommandClose, CommandStatus, CommandMomentary}

// ParseCommandKind accepts any casing and surrounding spaces ("open", " Momentary ").
func ParseCommandKind(s string) (CommandKind, error) {
	k := CommandKind(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range CommandKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown command %q: must be OPEN, CLOSE, STATUS or MOMENTARY", s)
}

// IsOpenClass reports whether the command physically opens the gate.
func (k CommandKind) IsOpenClass() bool {
	return k == CommandOpen || k == CommandMomentary
}

// Source identifies which surface submitted a command.
type Source string

const (
	SourceTouch Source = "TOUCH"
	SourceCloud Source = "CLOUD"
	SourceTimer Source = "TIMER"
)

// ParseSource accepts any casing and surrounding spaces.
func ParseSource(s string) (Source, error) {
	src := Source(strings.ToUpper(strings.TrimSpace(s)))
	switch src {
	case SourceTouch, SourceCloud, SourceTimer:
		return src, nil
	}
	return "", fmt.Errorf("unknown source %q: must be TOUCH, CLOUD or TIMER", s)
}

// Trigger tells which timer produced a TIMER command.
type Trigger string

const (
	TriggerNone      Trigger = ""
	TriggerDaily     Trigger = "daily"
	TriggerMomentary Trigger = "momentary"
)

// CommandIDPrefix starts every generated command ID.
const CommandIDPrefix = "cmd-"

// Command is an immutable request consumed exactly once by the dispatcher.
type Command struct {
	ID        string      `json:"id"`
	Kind      CommandKind `json:"kind"`
	Source    Source      `json:"source"`
	Trigger   Trigger     `json:"trigger,omitempty"`
	Deadline  time.Time   `json:"deadline,omitempty"` // momentary deadline that produced this command
	CreatedAt time.Time   `json:"created_at"`
}

func (c Command) String() string {
	if c.Trigger != TriggerNone {
		return fmt.Sprintf("%s %s (%s)", c.Source, c.Kind, c.Trigger)
	}
	return fmt.Sprintf("%s %s", c.Source, c.Kind)
}
