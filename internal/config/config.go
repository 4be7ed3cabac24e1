package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gate_control/internal/models"

	"github.com/spf13/viper"
)

type ModemConfig struct {
	Port           string        `mapstructure:"port"`
	Baud           int           `mapstructure:"baud"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
	SendTimeout    time.Duration `mapstructure:"send_timeout"`
	HealthInterval time.Duration `mapstructure:"health_interval"`
}

// CodesConfig holds the SMS text sent for each command.
type CodesConfig struct {
	Open      string `mapstructure:"open"`
	Close     string `mapstructure:"close"`
	Status    string `mapstructure:"status"`
	Momentary string `mapstructure:"momentary"`
}

type GateConfig struct {
	Phone     string        `mapstructure:"phone"`
	Timezone  string        `mapstructure:"timezone"`
	AutoClose string        `mapstructure:"auto_close"`
	Momentary time.Duration `mapstructure:"momentary"`
	Codes     CodesConfig   `mapstructure:"codes"`
}

type ActivityConfig struct {
	File       string `mapstructure:"file"`
	Replay     int    `mapstructure:"replay"`
	CloudLines int    `mapstructure:"cloud_lines"`
}

type DispatcherConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

// CloudConfig is the MQTT link to the mobile-app backend. An empty broker
// disables the cloud adapter.
type CloudConfig struct {
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Token    string `mapstructure:"token"`
	Prefix   string `mapstructure:"prefix"`
}

// NATSConfig enables the event bus publisher when URL is set.
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type Operator struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	Operators  []Operator    `mapstructure:"operators"`
}

type Config struct {
	Port       string           `mapstructure:"port"`
	LogLevel   string           `mapstructure:"log_level"`
	LogFormat  string           `mapstructure:"log_format"`
	Modem      ModemConfig      `mapstructure:"modem"`
	Gate       GateConfig       `mapstructure:"gate"`
	Activity   ActivityConfig   `mapstructure:"activity"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Cloud      CloudConfig      `mapstructure:"cloud"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Auth       AuthConfig       `mapstructure:"auth"`

	location  *time.Location
	autoClose models.TimeOfDay
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	v.SetDefault("modem.port", "/dev/ttyUSB2")
	v.SetDefault("modem.baud", 115200)
	v.SetDefault("modem.probe_timeout", "2s")
	v.SetDefault("modem.send_timeout", "10s")
	v.SetDefault("modem.health_interval", "60s")

	v.SetDefault("gate.phone", "9084321957")
	v.SetDefault("gate.timezone", "Local")
	v.SetDefault("gate.auto_close", "22:00")
	v.SetDefault("gate.momentary", "60s")
	v.SetDefault("gate.codes.open", "1234#2#")
	v.SetDefault("gate.codes.close", "1234#3#")
	v.SetDefault("gate.codes.status", "*22#")
	v.SetDefault("gate.codes.momentary", "")

	v.SetDefault("activity.file", "gate_log.txt")
	v.SetDefault("activity.replay", 100)
	v.SetDefault("activity.cloud_lines", 20)

	v.SetDefault("dispatcher.queue_size", 32)

	v.SetDefault("cloud.broker", "")
	v.SetDefault("cloud.client_id", "gate-control")
	v.SetDefault("cloud.prefix", "gate")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "gate")

	v.SetDefault("auth.token_ttl", "12h")
}

// Load reads path (or configs/config.yml when path is empty) into a
// validated Config. A missing default file is not an error; defaults apply.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings once at startup and resolves derived values.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Gate.Phone) == "" {
		errs = append(errs, errors.New("gate.phone is required"))
	}
	if c.Modem.Port == "" {
		errs = append(errs, errors.New("modem.port is required"))
	}
	if c.Modem.Baud <= 0 {
		errs = append(errs, fmt.Errorf("modem.baud must be positive, got %d", c.Modem.Baud))
	}
	if c.Gate.Momentary <= 0 {
		errs = append(errs, fmt.Errorf("gate.momentary must be positive, got %s", c.Gate.Momentary))
	}

	tod, err := models.ParseTimeOfDay(c.Gate.AutoClose)
	if err != nil {
		errs = append(errs, fmt.Errorf("gate.auto_close: %w", err))
	}
	c.autoClose = tod

	loc, err := time.LoadLocation(c.Gate.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("gate.timezone: %w", err))
	}
	c.location = loc

	if c.Gate.Codes.Momentary == "" {
		c.Gate.Codes.Momentary = c.Gate.Codes.Open
	}
	for kind, code := range c.Codes() {
		if strings.TrimSpace(code) == "" {
			errs = append(errs, fmt.Errorf("gate.codes.%s is empty", strings.ToLower(string(kind))))
		}
	}

	if c.Cloud.Broker != "" && c.Cloud.Prefix == "" {
		errs = append(errs, errors.New("cloud.prefix is required when cloud.broker is set"))
	}
	if len(c.Auth.Operators) > 0 && c.Auth.SigningKey == "" {
		errs = append(errs, errors.New("auth.signing_key is required when operators are configured"))
	}
	for i, op := range c.Auth.Operators {
		if op.Username == "" || op.Password == "" {
			errs = append(errs, fmt.Errorf("auth.operators[%d]: username and password are required", i))
		}
	}

	return errors.Join(errs...)
}

// Location is the gate's wall-clock zone.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// AutoClose is the parsed daily close time.
func (c *Config) AutoClose() models.TimeOfDay { return c.autoClose }

// Codes maps each command to its SMS text.
func (c *Config) Codes() map[models.CommandKind]string {
	return map[models.CommandKind]string{
		models.CommandOpen:      c.Gate.Codes.Open,
		models.CommandClose:     c.Gate.Codes.Close,
		models.CommandStatus:    c.Gate.Codes.Status,
		models.CommandMomentary: c.Gate.Codes.Momentary,
	}
}
