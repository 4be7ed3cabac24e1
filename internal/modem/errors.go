package modem

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout means no handshake response arrived within the send window.
	ErrTimeout = errors.New("modem: timed out waiting for response")
	// ErrDisconnected means the modem could not be reached at all.
	ErrDisconnected = errors.New("modem: disconnected")
	// ErrProtocol means the modem answered with an unexpected line.
	ErrProtocol = errors.New("modem: unexpected response")
	// ErrNoCode means no SMS text is configured for the command kind.
	ErrNoCode = errors.New("modem: no SMS code configured")
)

// Error records which handshake step failed and the offending line, if any.
type Error struct {
	Step string
	Line string
	Err  error
}

func (e *Error) Error() string {
	if e.Line != "" {
		return fmt.Sprintf("%s: %v (got %q)", e.Step, e.Err, e.Line)
	}
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
