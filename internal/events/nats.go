// Package events mirrors gate notifications onto a NATS subject tree for
// other services on the site network.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gate_control/internal/logger"
	"gate_control/internal/models"
	"gate_control/internal/service"

	"github.com/nats-io/nats.go"
)

const (
	defaultSubject   = "gate"
	subscriberBuffer = 32

	suffixStateChanged = ".state.changed"
	suffixLogAppended  = ".log.appended"
)

// StateChanged is published after every state change.
type StateChanged struct {
	State models.GateSessionState `json:"state"`
}

// LogAppended is published once per completed command.
type LogAppended struct {
	Entry models.LogEntry `json:"entry"`
}

// NATSPublisher publishes JSON events under <subject>.state.changed and
// <subject>.log.appended.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	log     *logger.Logger
}

// NewNATSPublisher connects with unlimited reconnects; the gate keeps working
// while the bus is away.
func NewNATSPublisher(url, subject string, log *logger.Logger, opts ...nats.Option) (*NATSPublisher, error) {
	if log == nil {
		log = logger.Nop()
	}
	if subject == "" {
		subject = defaultSubject
	}
	defaults := []nats.Option{
		nats.Name("gate-control"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnw("nats_disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infow("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc, subject: subject, log: log}, nil
}

func (p *NATSPublisher) StateSubject() string { return p.subject + suffixStateChanged }

func (p *NATSPublisher) LogSubject() string { return p.subject + suffixLogAppended }

// Publish sends the events derived from one notification.
func (p *NATSPublisher) Publish(n service.Notification) error {
	if err := p.publish(p.StateSubject(), StateChanged{State: n.State}); err != nil {
		return err
	}
	if n.Entry != nil {
		return p.publish(p.LogSubject(), LogAppended{Entry: *n.Entry})
	}
	return nil
}

func (p *NATSPublisher) publish(subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing %s: %w", subject, err)
	}
	return nil
}

// Run forwards gate notifications until ctx is cancelled or the gate shuts
// down. Publish errors are logged and never stop the loop.
func (p *NATSPublisher) Run(ctx context.Context, gate service.Gate) {
	sub := gate.Subscribe("nats", subscriberBuffer)
	defer sub.Close()

	if err := p.Publish(service.Notification{State: gate.Snapshot()}); err != nil {
		p.log.Warnw("nats_publish_failed", "err", err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-sub.C():
			if !ok {
				return
			}
			if err := p.Publish(n); err != nil {
				p.log.Warnw("nats_publish_failed", "err", err)
			}
		}
	}
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
