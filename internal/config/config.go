package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Probe      ProbeConfig      `yaml:"probe"`
	Notify     NotifyConfig     `yaml:"notify"`
	Devices    []Device         `yaml:"devices"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

type DatabaseConfig struct {
	// URL selects the Postgres registry. Empty keeps everything in memory.
	URL string `yaml:"url"`
}

type MonitoringConfig struct {
	Interval string `yaml:"interval"` // e.g. "5s"
	Pacing   string `yaml:"pacing"`   // e.g. "100ms"
	Workers  int    `yaml:"workers"`

	// Parsed durations (filled after load)
	IntervalDur time.Duration `yaml:"-"`
	PacingDur   time.Duration `yaml:"-"`
}

const (
	ProbeExec = "exec"
	ProbeICMP = "icmp"
	ProbeSim  = "simulate"
)

type ProbeConfig struct {
	Method     string `yaml:"method"` // exec, icmp or simulate
	Privileged bool   `yaml:"privileged"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	// QueueSize bounds pending notifications.
	QueueSize int `yaml:"queue_size"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

// Device is a seed entry, written to the registry only when it is empty.
type Device struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	IP          string `yaml:"ip"`
	Type        string `yaml:"type"`
	IsMonitored *bool  `yaml:"monitored,omitempty"`
}

// DefaultDevices is the seed list used when the file has none.
func DefaultDevices() []Device {
	return []Device{
		{ID: "1", Name: "Google DNS", IP: "8.8.8.8", Type: "server"},
		{ID: "2", Name: "Cloudflare DNS", IP: "1.1.1.1", Type: "server"},
		{ID: "3", Name: "Local Router", IP: "192.168.1.1", Type: "router"},
	}
}

// Load reads path, applies env overrides and defaults, then validates. A
// missing file is not an error: the defaults describe a working setup.
func Load(path string) (*Config, error) {
	var cfg Config

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg, os.Getenv)
	applyDefaults(&cfg)

	if err := validateAndNormalize(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv lets deployment secrets stay out of the file.
func applyEnv(cfg *Config, getenv func(string) string) {
	if v := strings.TrimSpace(getenv("DATABASE_URL")); v != "" {
		cfg.Database.URL = v
	}
	if v := strings.TrimSpace(getenv("TELEGRAM_BOT_TOKEN")); v != "" {
		cfg.Notify.Telegram.Token = v
	}
	if v := strings.TrimSpace(getenv("TELEGRAM_CHAT_ID")); v != "" {
		cfg.Notify.Telegram.ChatID = v
	}
	if v := strings.TrimSpace(getenv("LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = ":8080"
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}

	if strings.TrimSpace(cfg.Monitoring.Interval) == "" {
		cfg.Monitoring.Interval = "5s"
	}
	if strings.TrimSpace(cfg.Monitoring.Pacing) == "" {
		cfg.Monitoring.Pacing = "100ms"
	}
	if cfg.Monitoring.Workers <= 0 {
		cfg.Monitoring.Workers = 1
	}

	if strings.TrimSpace(cfg.Probe.Method) == "" {
		cfg.Probe.Method = ProbeExec
	}
	if cfg.Notify.QueueSize <= 0 {
		cfg.Notify.QueueSize = 64
	}

	if len(cfg.Devices) == 0 {
		cfg.Devices = DefaultDevices()
	}
	for i := range cfg.Devices {
		d := &cfg.Devices[i]

		// monitored defaults to true
		if d.IsMonitored == nil {
			v := true
			d.IsMonitored = &v
		}
		if strings.TrimSpace(d.Type) == "" {
			d.Type = "server"
		}
	}
}

func validateAndNormalize(cfg *Config) error {
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("config: invalid log level %q", cfg.Log.Level)
	}

	if _, _, err := net.SplitHostPort(cfg.Server.Addr); err != nil {
		return fmt.Errorf("config: invalid server addr %q: %w", cfg.Server.Addr, err)
	}

	intervalDur, err := time.ParseDuration(cfg.Monitoring.Interval)
	if err != nil {
		return fmt.Errorf("config: invalid monitoring interval %q: %w", cfg.Monitoring.Interval, err)
	}
	if intervalDur <= 0 {
		return errors.New("config: monitoring interval must be > 0")
	}
	cfg.Monitoring.IntervalDur = intervalDur

	pacingDur, err := time.ParseDuration(cfg.Monitoring.Pacing)
	if err != nil {
		return fmt.Errorf("config: invalid monitoring pacing %q: %w", cfg.Monitoring.Pacing, err)
	}
	if pacingDur < 0 {
		return errors.New("config: monitoring pacing cannot be negative")
	}
	cfg.Monitoring.PacingDur = pacingDur

	cfg.Probe.Method = strings.ToLower(strings.TrimSpace(cfg.Probe.Method))
	switch cfg.Probe.Method {
	case ProbeExec, ProbeICMP, ProbeSim:
	default:
		return fmt.Errorf("config: invalid probe method %q (use exec, icmp or simulate)", cfg.Probe.Method)
	}

	if tg := &cfg.Notify.Telegram; tg.Enabled {
		if strings.TrimSpace(tg.Token) == "" {
			return errors.New("config: telegram enabled but token is empty (set TELEGRAM_BOT_TOKEN)")
		}
		if strings.TrimSpace(tg.ChatID) == "" {
			return errors.New("config: telegram enabled but chat_id is empty (set TELEGRAM_CHAT_ID)")
		}
	}

	seen := make(map[string]struct{}, len(cfg.Devices))

	for i := range cfg.Devices {
		d := &cfg.Devices[i]

		d.ID = strings.TrimSpace(d.ID)
		d.Name = strings.TrimSpace(d.Name)
		d.IP = strings.TrimSpace(d.IP)

		if d.ID == "" {
			return fmt.Errorf("config: device[%d] missing id", i)
		}
		if _, ok := seen[d.ID]; ok {
			return fmt.Errorf("config: duplicate device id %q", d.ID)
		}
		seen[d.ID] = struct{}{}

		if d.Name == "" {
			return fmt.Errorf("config: device %q missing name", d.ID)
		}
		if d.IP == "" {
			return fmt.Errorf("config: device %q missing ip", d.ID)
		}
		if strings.HasPrefix(d.IP, "-") {
			return fmt.Errorf("config: device %q has invalid ip %q", d.ID, d.IP)
		}
	}

	return nil
}
