// Package cloud links the gate to the mobile-app backend over MQTT. Commands
// arrive on <prefix>/cmd/<kind>; status, log, countdown and modem health are
// published retained so a freshly opened app sees the current picture.
package cloud

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gate_control/internal/logger"
	"gate_control/internal/models"
	"gate_control/internal/service"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	defaultPrefix     = "gate"
	defaultLogLines   = 20
	defaultRetryDelay = 5 * time.Second
	subscriberBuffer  = 32
	disconnectQuiesce = 250 // ms

	qos = 1

	payloadPress    = "1"
	modemOnline     = "255"
	modemOffline    = "0"
	countdownPeriod = time.Second
)

// Config is the cloud link configuration. Token authenticates the gate to
// the broker and is sent as the MQTT password.
type Config struct {
	Broker     string
	ClientID   string
	Username   string
	Token      string
	Prefix     string
	LogLines   int
	Location   *time.Location
	RetryDelay time.Duration
}

// History is the part of the activity log the cloud view needs.
type History interface {
	Recent(ctx context.Context, n int) ([]models.LogEntry, error)
}

type topics struct {
	prefix string
}

func (t topics) command(kind models.CommandKind) string {
	return t.prefix + "/cmd/" + strings.ToLower(string(kind))
}

func (t topics) status() string    { return t.prefix + "/status" }
func (t topics) log() string       { return t.prefix + "/log" }
func (t topics) countdown() string { return t.prefix + "/countdown" }
func (t topics) modem() string     { return t.prefix + "/modem" }

// Adapter is the cloud observer. It submits CLOUD commands and mirrors every
// dispatcher notification to the broker.
type Adapter struct {
	client  mqtt.Client
	gate    service.Gate
	history History
	cfg     Config
	topics  topics
	log     *logger.Logger
	now     func() time.Time

	mu            sync.Mutex
	lastStatus    string
	lastModem     string
	lastCountdown string
	published     bool
}

// NewAdapter builds the paho client from cfg. Nothing is dialed until Run.
func NewAdapter(gate service.Gate, history History, cfg Config, log *logger.Logger) *Adapter {
	a := newAdapter(nil, gate, history, cfg, log)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Token)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(a.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		a.log.Warnw("cloud_connection_lost", "err", err)
	})

	a.client = mqtt.NewClient(opts)
	return a
}

func newAdapter(client mqtt.Client, gate service.Gate, history History, cfg Config, log *logger.Logger) *Adapter {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.LogLines <= 0 {
		cfg.LogLines = defaultLogLines
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &Adapter{
		client:  client,
		gate:    gate,
		history: history,
		cfg:     cfg,
		topics:  topics{prefix: strings.TrimSuffix(cfg.Prefix, "/")},
		log:     log,
		now:     time.Now,
	}
}

// Run connects, then mirrors gate notifications until ctx is cancelled or the
// gate shuts down.
func (a *Adapter) Run(ctx context.Context) error {
	sub := a.gate.Subscribe("cloud", subscriberBuffer)
	defer sub.Close()

	if err := a.connect(ctx); err != nil {
		return err
	}
	defer a.client.Disconnect(disconnectQuiesce)

	a.publishState(ctx, a.gate.Snapshot(), true)

	ticker := time.NewTicker(countdownPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-sub.C():
			if !ok {
				return nil
			}
			a.publishState(ctx, n.State, n.Entry != nil)
		case <-ticker.C:
			a.publishCountdown(a.gate.Snapshot(), false)
		}
	}
}

func (a *Adapter) connect(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		token := a.client.Connect()
		token.Wait()
		err := token.Error()
		if err == nil {
			a.log.Infow("cloud_connected", "broker", a.cfg.Broker, "attempt", attempt)
			return nil
		}
		a.log.Warnw("cloud_connect_failed", "broker", a.cfg.Broker, "attempt", attempt, "err", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("cloud connect cancelled: %w", ctx.Err())
		case <-time.After(a.cfg.RetryDelay):
		}
	}
}

// onConnect (re)subscribes the command topics; paho drops subscriptions on a
// clean-session reconnect.
func (a *Adapter) onConnect(c mqtt.Client) {
	for _, kind := range models.CommandKinds {
		topic := a.topics.command(kind)
		if token := c.Subscribe(topic, qos, a.commandHandler(kind)); token.Wait() && token.Error() != nil {
			a.log.Errorw("cloud_subscribe_failed", "topic", topic, "err", token.Error())
		}
	}
	a.mu.Lock()
	a.published = false
	a.mu.Unlock()
}

// commandHandler submits kind for a "1" payload. Anything else is the app
// releasing the button and is ignored.
func (a *Adapter) commandHandler(kind models.CommandKind) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		if strings.TrimSpace(string(msg.Payload())) != payloadPress {
			return
		}
		cmd := service.NewCommand(kind, models.SourceCloud)
		if err := a.gate.Submit(cmd); err != nil {
			a.log.Warnw("cloud_submit_rejected", "command", kind, "err", err)
			return
		}
		a.log.Infow("command_queued", "command_id", cmd.ID, "command", kind, "source", cmd.Source)
	}
}

// publishState pushes whatever changed. The log view is refreshed only when
// withLog is set, since reading it costs a query.
func (a *Adapter) publishState(ctx context.Context, st models.GateSessionState, withLog bool) {
	a.mu.Lock()
	force := !a.published
	a.published = true
	a.mu.Unlock()

	if a.swap(&a.lastStatus, st.StatusText) || force {
		a.publish(a.topics.status(), st.StatusText)
	}
	if m := modemPayload(st.Modem); a.swap(&a.lastModem, m) || force {
		a.publish(a.topics.modem(), m)
	}
	if withLog || force {
		entries, err := a.history.Recent(ctx, a.cfg.LogLines)
		if err != nil {
			a.log.Warnw("cloud_log_read_failed", "err", err)
		} else {
			a.publish(a.topics.log(), logPayload(entries, a.cfg.Location))
		}
	}
	a.publishCountdown(st, force)
}

func (a *Adapter) publishCountdown(st models.GateSessionState, force bool) {
	c := countdownPayload(st, a.now())
	if a.swap(&a.lastCountdown, c) || force {
		a.publish(a.topics.countdown(), c)
	}
}

// swap stores v in *field and reports whether it differed.
func (a *Adapter) swap(field *string, v string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if *field == v {
		return false
	}
	*field = v
	return true
}

func (a *Adapter) publish(topic, payload string) {
	token := a.client.Publish(topic, qos, true, payload)
	if token.Wait() && token.Error() != nil {
		a.log.Warnw("cloud_publish_failed", "topic", topic, "err", token.Error())
	}
}

func modemPayload(m models.ModemState) string {
	if m.Connected() {
		return modemOnline
	}
	return modemOffline
}

// countdownPayload renders the momentary countdown as "42s", or "" when no
// countdown is armed.
func countdownPayload(st models.GateSessionState, now time.Time) string {
	left := st.MomentaryRemaining(now)
	if left <= 0 {
		return ""
	}
	return fmt.Sprintf("%ds", left)
}

// logPayload renders entries (newest first) one per line.
func logPayload(entries []models.LogEntry, loc *time.Location) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Line(loc))
	}
	return strings.Join(lines, "\n")
}
