// Package config loads the service configuration from configs/config.yml with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	Log    LogConfig
	DB     DBConfig
	MQTT   MQTTConfig
	IO     IOConfig
	Email  EmailConfig
	Influx InfluxConfig
	Sim    SimulatorConfig
}

type ServerConfig struct {
	Port string
}

type LogConfig struct {
	Level string
}

type DBConfig struct {
	Path string
}

type MQTTConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	ClientIDPrefix string
	TelemetryTopic string
	CommandTopic   string
	QoS            byte
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	ConnectRetries int
	QueueSize      int
}

// IOConfig bounds every blocking call made from the ingest path.
type IOConfig struct {
	Timeout time.Duration
}

type EmailConfig struct {
	Sender          string
	Password        string
	Recipient       string
	SMTPHost        string
	SMTPPort        int
	BreakerFailures int
	BreakerOpenFor  time.Duration
}

// Enabled reports whether alert e-mails can be sent.
func (e EmailConfig) Enabled() bool {
	return e.Sender != "" && e.Password != ""
}

// InfluxConfig configures the optional time-series export of readings.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

func (i InfluxConfig) Enabled() bool {
	return i.URL != "" && i.Token != "" && i.Org != "" && i.Bucket != ""
}

// SimulatorConfig drives the built-in barn simulator used when no device is
// attached.
type SimulatorConfig struct {
	Enabled  bool
	Interval time.Duration
}

var defaults = map[string]any{
	"server.port":            "5000",
	"log.level":              "info",
	"db.path":                "barn.db",
	"mqtt.host":              "localhost",
	"mqtt.port":              1883,
	"mqtt.username":          "",
	"mqtt.password":          "",
	"mqtt.client_id_prefix":  "barn-climate",
	"mqtt.telemetry_topic":   "sensor/data",
	"mqtt.command_topic":     "device/command",
	"mqtt.qos":               0,
	"mqtt.keepalive":         "60s",
	"mqtt.connect_timeout":   "10s",
	"mqtt.connect_retries":   5,
	"mqtt.queue_size":        64,
	"io.timeout":             "5s",
	"email.sender":           "",
	"email.password":         "",
	"email.recipient":        "",
	"email.smtp_host":        "smtp.gmail.com",
	"email.smtp_port":        587,
	"email.breaker_failures": 3,
	"email.breaker_open_for": "60s",
	"influx.url":             "",
	"influx.token":           "",
	"influx.org":             "",
	"influx.bucket":          "",
	"simulator.enabled":      false,
	"simulator.interval":     "5s",
}

// legacyEnv maps keys to the environment names used by existing deployments,
// on top of the automatic KEY_PATH names (mqtt.host -> MQTT_HOST).
var legacyEnv = map[string][]string{
	"mqtt.host":       {"MQTT_HOST", "MQTT_BROKER"},
	"email.smtp_host": {"EMAIL_SMTP_HOST", "SMTP_SERVER"},
	"email.smtp_port": {"EMAIL_SMTP_PORT", "SMTP_PORT"},
	"server.port":     {"SERVER_PORT", "PORT"},
}

// Load reads config.yml from the first of dirs that has one. A missing file
// is not an error; defaults and environment variables still apply.
func Load(dirs ...string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetConfigName("config")
	v.SetConfigType("yml")
	for _, d := range dirs {
		v.AddConfigPath(d)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return Config{}, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if len(dirs) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Server: ServerConfig{Port: v.GetString("server.port")},
		Log:    LogConfig{Level: v.GetString("log.level")},
		DB:     DBConfig{Path: v.GetString("db.path")},
		MQTT: MQTTConfig{
			Host:           v.GetString("mqtt.host"),
			Port:           v.GetInt("mqtt.port"),
			Username:       v.GetString("mqtt.username"),
			Password:       v.GetString("mqtt.password"),
			ClientIDPrefix: v.GetString("mqtt.client_id_prefix"),
			TelemetryTopic: v.GetString("mqtt.telemetry_topic"),
			CommandTopic:   v.GetString("mqtt.command_topic"),
			QoS:            byte(v.GetUint("mqtt.qos")),
			KeepAlive:      v.GetDuration("mqtt.keepalive"),
			ConnectTimeout: v.GetDuration("mqtt.connect_timeout"),
			ConnectRetries: v.GetInt("mqtt.connect_retries"),
			QueueSize:      v.GetInt("mqtt.queue_size"),
		},
		IO: IOConfig{Timeout: v.GetDuration("io.timeout")},
		Email: EmailConfig{
			Sender:          v.GetString("email.sender"),
			Password:        v.GetString("email.password"),
			Recipient:       v.GetString("email.recipient"),
			SMTPHost:        v.GetString("email.smtp_host"),
			SMTPPort:        v.GetInt("email.smtp_port"),
			BreakerFailures: v.GetInt("email.breaker_failures"),
			BreakerOpenFor:  v.GetDuration("email.breaker_open_for"),
		},
		Influx: InfluxConfig{
			URL:    v.GetString("influx.url"),
			Token:  v.GetString("influx.token"),
			Org:    v.GetString("influx.org"),
			Bucket: v.GetString("influx.bucket"),
		},
		Sim: SimulatorConfig{
			Enabled:  v.GetBool("simulator.enabled"),
			Interval: v.GetDuration("simulator.interval"),
		},
	}
	if cfg.Email.Recipient == "" {
		cfg.Email.Recipient = cfg.Email.Sender
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.MQTT.Host == "":
		return errors.New("mqtt.host is required")
	case c.MQTT.Port <= 0 || c.MQTT.Port > 65535:
		return fmt.Errorf("mqtt.port %d out of range", c.MQTT.Port)
	case c.MQTT.QoS > 2:
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	case c.MQTT.TelemetryTopic == "" || c.MQTT.CommandTopic == "":
		return errors.New("mqtt telemetry and command topics are required")
	case c.MQTT.QueueSize <= 0:
		return errors.New("mqtt.queue_size must be positive")
	case c.IO.Timeout <= 0:
		return errors.New("io.timeout must be positive")
	case c.Sim.Enabled && c.Sim.Interval <= 0:
		return errors.New("simulator.interval must be positive")
	}
	return nil
}
