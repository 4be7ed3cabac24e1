package models

import "time"

// ModemStatus is the last connectivity verdict of the modem probe.
type ModemStatus string

const (
	ModemConnected    ModemStatus = "CONNECTED"
	ModemDisconnected ModemStatus = "DISCONNECTED"
)

// ModemState is a read-only snapshot owned by the modem session.
type ModemState struct {
	Status    ModemStatus `json:"status"`
	CheckedAt time.Time   `json:"checked_at,omitempty"`
}

// Connected is shorthand for Status == ModemConnected.
func (m ModemState) Connected() bool {
	return m.Status == ModemConnected
}

// Failure reasons recorded on a command result.
const (
	ReasonModemUnavailable = "modem_unavailable"
	ReasonModemTimeout     = "modem_timeout"
	ReasonProtocolError    = "protocol_error"
	ReasonModemError       = "modem_error"
)

// Result is the outcome of one command. Reason is empty on success.
type Result struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func Success() Result { return Result{OK: true} }

func Failure(reason string) Result { return Result{Reason: reason} }

// Outcome renders the result as SUCCESS or FAILURE.
func (r Result) Outcome() string {
	if r.OK {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// GateSessionState is the process-wide gate state. The dispatcher is its only
// writer; everyone else receives copies from Clone.
type GateSessionState struct {
	LastAction        *Command   `json:"last_action,omitempty"`
	LastResult        Result     `json:"last_result"`
	AutoCloseAt       TimeOfDay  `json:"auto_close_at"`
	NextAutoClose     time.Time  `json:"next_auto_close,omitempty"`
	MomentaryDeadline *time.Time `json:"momentary_deadline,omitempty"`
	Modem             ModemState `json:"modem"`
	StatusText        string     `json:"status_text"`
	GateReply         string     `json:"gate_reply,omitempty"`
	LogDegraded       bool       `json:"log_degraded"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Clone returns a deep copy so callers never alias the live state.
func (s GateSessionState) Clone() GateSessionState {
	out := s
	if s.LastAction != nil {
		cmd := *s.LastAction
		out.LastAction = &cmd
	}
	if s.MomentaryDeadline != nil {
		d := *s.MomentaryDeadline
		out.MomentaryDeadline = &d
	}
	return out
}

// MomentaryRemaining returns the whole seconds left on the countdown, or 0 when
// no countdown is armed.
func (s GateSessionState) MomentaryRemaining(now time.Time) int {
	if s.MomentaryDeadline == nil {
		return 0
	}
	left := s.MomentaryDeadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}
