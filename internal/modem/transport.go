package modem

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Transport is an established byte stream to the modem.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport. The session re-dials through it whenever the
// previous transport has died.
type Dialer interface {
	Dial(ctx context.Context) (Transport, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (Transport, error)

func (f DialerFunc) Dial(ctx context.Context) (Transport, error) { return f(ctx) }

// SerialDialer opens the modem's serial port with go.bug.st/serial.
type SerialDialer struct {
	// PortName is the OS device path (e.g. "/dev/ttyUSB2").
	PortName string
	BaudRate int
}

// Dial opens the serial port. serial.Open does not take a context, so it runs
// in a goroutine raced against ctx; a port opened after cancellation is closed.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if d.PortName == "" {
		return nil, errors.New("modem: serial port name is required")
	}

	type result struct {
		p   serial.Port
		err error
	}
	ch := make(chan result, 1)

	go func() {
		p, err := serial.Open(d.PortName, &serial.Mode{
			BaudRate: d.BaudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		ch <- result{p: p, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			r := <-ch
			if r.err == nil && r.p != nil {
				_ = r.p.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("open serial port %q: %w", d.PortName, r.err)
		}
		return r.p, nil
	}
}
