package modem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"gate_control/internal/logger"
	"gate_control/internal/models"
)

// Handshake step names, reported in *Error.
const (
	StepProbe     = "probe"
	StepInit      = "init"
	StepMode      = "mode-select"
	StepRecipient = "recipient-set"
	StepPayload   = "payload-send"
	StepTerminate = "terminator"
)

const (
	defaultProbeTimeout = 2 * time.Second
	defaultSendTimeout  = 10 * time.Second
	lineBuffer          = 32
	replyBuffer         = 8
	escape              = "\x1B"
)

// Config holds the gate-facing settings of a session.
type Config struct {
	GatePhone    string
	Codes        map[models.CommandKind]string
	ProbeTimeout time.Duration
	SendTimeout  time.Duration
}

// Session owns the modem transport. Every exported operation holds mu, so no
// two modem exchanges ever overlap.
type Session struct {
	dialer Dialer
	cfg    Config
	log    *logger.Logger
	now    func() time.Time

	mu   sync.Mutex
	conn *conn

	stateMu sync.RWMutex
	state   models.ModemState

	replies chan string
}

// NewSession builds a session; nothing is dialed until the first operation.
func NewSession(d Dialer, cfg Config, log *logger.Logger) *Session {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Session{
		dialer:  d,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
		state:   models.ModemState{Status: models.ModemDisconnected},
		replies: make(chan string, replyBuffer),
	}
}

// Replies delivers the text of SMS messages received from the gate.
func (s *Session) Replies() <-chan string {
	return s.replies
}

// State returns the result of the most recent probe.
func (s *Session) State() models.ModemState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// CheckConnectivity probes the modem with AT. A missing or late OK yields
// DISCONNECTED; it is never an error.
func (s *Session) CheckConnectivity(ctx context.Context) models.ModemState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probeLocked(ctx)
}

// SendCommandSMS sends the configured SMS text for cmd to the gate phone. It
// returns once the modem reports the message queued; delivery is not observable.
func (s *Session) SendCommandSMS(ctx context.Context, cmd models.Command) error {
	text, ok := s.cfg.Codes[cmd.Kind]
	if !ok || text == "" {
		return fmt.Errorf("%w for %s", ErrNoCode, cmd.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.State().Connected() || s.conn == nil || s.conn.dead() {
		if st := s.probeLocked(ctx); !st.Connected() {
			return &Error{Step: StepProbe, Err: ErrDisconnected}
		}
	}
	c := s.conn

	window := time.NewTimer(s.cfg.SendTimeout)
	defer window.Stop()

	c.drain()
	if err := s.write(c, StepMode, cmdTextMode+crlf); err != nil {
		return err
	}
	if err := c.await(ctx, window.C, StepMode, expectOK); err != nil {
		return s.fail(c, err)
	}

	if err := s.write(c, StepRecipient, fmt.Sprintf(cmdSendSMS, s.cfg.GatePhone)+crlf); err != nil {
		return err
	}
	if err := c.await(ctx, window.C, StepRecipient, expectPrompt); err != nil {
		_, _ = io.WriteString(c.t, escape)
		return s.fail(c, err)
	}

	if err := s.write(c, StepPayload, text); err != nil {
		return err
	}

	if err := s.write(c, StepTerminate, ctrlZ); err != nil {
		return err
	}
	ref := ""
	err := c.await(ctx, window.C, StepTerminate, func(line string) (bool, error) {
		switch {
		case strings.HasPrefix(line, respCmgs):
			ref = strings.TrimSpace(strings.TrimPrefix(line, respCmgs))
			return false, nil
		case line == respOK:
			return true, nil
		default:
			return false, ErrProtocol
		}
	})
	if err != nil {
		return s.fail(c, err)
	}

	s.log.Infow("sms_queued", "command", cmd.Kind, "command_id", cmd.ID, "ref", ref)
	return nil
}

// Close releases the transport.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.close()
	s.conn = nil
	s.setState(models.ModemDisconnected)
	return err
}

func (s *Session) probeLocked(ctx context.Context) models.ModemState {
	c, err := s.ensureConnLocked(ctx)
	if err != nil {
		s.log.Infow("modem_unreachable", "err", err)
		return s.setState(models.ModemDisconnected)
	}

	timer := time.NewTimer(s.cfg.ProbeTimeout)
	defer timer.Stop()

	c.drain()
	if err := s.write(c, StepProbe, cmdProbe+crlf); err != nil {
		return s.setState(models.ModemDisconnected)
	}
	if err := c.await(ctx, timer.C, StepProbe, tolerantOK); err != nil {
		s.fail(c, err)
		s.log.Infow("modem_probe_failed", "err", err)
		return s.setState(models.ModemDisconnected)
	}
	return s.setState(models.ModemConnected)
}

// ensureConnLocked returns the live connection, dialing and initializing a new
// one when the previous transport is gone.
func (s *Session) ensureConnLocked(ctx context.Context) (*conn, error) {
	if s.conn != nil && !s.conn.dead() {
		return s.conn, nil
	}
	if s.conn != nil {
		_ = s.conn.close()
		s.conn = nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
	defer cancel()
	t, err := s.dialer.Dial(dialCtx)
	if err != nil {
		return nil, &Error{Step: StepInit, Err: fmt.Errorf("%w: %v", ErrDisconnected, err)}
	}
	c := newConn(t, s.replies, s.log)

	for _, at := range []string{cmdProbe, cmdEchoOff, cmdTextMode, cmdNotifyOnSMS} {
		timer := time.NewTimer(s.cfg.ProbeTimeout)
		err := s.write(c, StepInit, at+crlf)
		if err == nil {
			err = c.await(ctx, timer.C, StepInit, tolerantOK)
		}
		timer.Stop()
		if err != nil {
			_ = c.close()
			return nil, err
		}
	}

	s.log.Infow("modem_initialized")
	s.conn = c
	return c, nil
}

func (s *Session) write(c *conn, step, data string) error {
	if _, err := io.WriteString(c.t, data); err != nil {
		return s.fail(c, &Error{Step: step, Err: fmt.Errorf("%w: %v", ErrDisconnected, err)})
	}
	return nil
}

// fail drops the connection when the reader has died so the next operation
// re-dials.
func (s *Session) fail(c *conn, err error) error {
	if errors.Is(err, ErrDisconnected) {
		_ = c.close()
		s.setState(models.ModemDisconnected)
	}
	return err
}

func (s *Session) setState(status models.ModemStatus) models.ModemState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state = models.ModemState{Status: status, CheckedAt: s.now().UTC()}
	return s.state
}

// expectOK accepts only a bare OK.
func expectOK(line string) (bool, error) {
	if line == respOK {
		return true, nil
	}
	return false, ErrProtocol
}

// expectPrompt accepts only the SMS text prompt.
func expectPrompt(line string) (bool, error) {
	if classify(line) == typePrompt {
		return true, nil
	}
	return false, ErrProtocol
}

// tolerantOK skips informational lines (including a stray echo) until OK.
func tolerantOK(line string) (bool, error) {
	switch classify(line) {
	case typeFinal:
		if line == respOK {
			return true, nil
		}
		return false, ErrProtocol
	case typePrompt:
		return false, ErrProtocol
	default:
		return false, nil
	}
}

// conn is one dialed transport plus its reader goroutine.
type conn struct {
	t       Transport
	lines   chan string
	done    chan struct{}
	replies chan<- string
	log     *logger.Logger

	closeOnce sync.Once
}

func newConn(t Transport, replies chan<- string, log *logger.Logger) *conn {
	c := &conn{
		t:       t,
		lines:   make(chan string, lineBuffer),
		done:    make(chan struct{}),
		replies: replies,
		log:     log,
	}
	go c.readLoop()
	return c
}

// readLoop tokenizes the stream, diverting "+CMT:" SMS bodies to replies and
// everything else to lines.
func (c *conn) readLoop() {
	defer close(c.done)
	sc := bufio.NewScanner(c.t)
	sc.Split(splitLines)
	smsBody := false
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if smsBody {
			smsBody = false
			select {
			case c.replies <- line:
			default:
				c.log.Warnw("modem_reply_dropped", "reply", line)
			}
			continue
		}
		if classify(line) == typeURC {
			smsBody = strings.HasPrefix(line, urcSMS)
			continue
		}
		select {
		case c.lines <- line:
		default:
			c.log.Warnw("modem_line_dropped", "line", line)
		}
	}
}

func (c *conn) dead() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// drain discards stale lines left over from an earlier exchange.
func (c *conn) drain() {
	for {
		select {
		case <-c.lines:
		default:
			return
		}
	}
}

// await feeds lines to accept until it reports done or an error.
func (c *conn) await(ctx context.Context, timeout <-chan time.Time, step string, accept func(string) (bool, error)) error {
	for {
		select {
		case line := <-c.lines:
			done, err := accept(line)
			if err != nil {
				return &Error{Step: step, Line: line, Err: err}
			}
			if done {
				return nil
			}
		case <-c.done:
			return &Error{Step: step, Err: ErrDisconnected}
		case <-timeout:
			return &Error{Step: step, Err: ErrTimeout}
		case <-ctx.Done():
			return &Error{Step: step, Err: ctx.Err()}
		}
	}
}

func (c *conn) close() error {
	var err error
	c.closeOnce.Do(func() { err = c.t.Close() })
	return err
}
