// Package config provides application configuration loaded from environment
// variables (optionally layered over a YAML file) with defaults and
// validation. It centralizes scheduler settings such as per-category polling
// options, storage, channel transports, logging, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CategoryConfig holds the recognized options of one reminder category.
// Values are stored as given; use the accessor methods for clamped durations.
type CategoryConfig struct {
	Enabled                 bool `yaml:"enabled"`
	PollIntervalMinutes     int  `yaml:"pollIntervalMinutes"`
	LookAheadMinutes        int  `yaml:"lookAheadMinutes"`
	GraceMinutes            int  `yaml:"graceMinutes"`
	MaxAttemptsPerRecipient int  `yaml:"maxAttemptsPerRecipient"`
}

// DefaultCategoryConfig returns the documented defaults.
func DefaultCategoryConfig() CategoryConfig {
	return CategoryConfig{
		Enabled:                 true,
		PollIntervalMinutes:     1,
		LookAheadMinutes:        30,
		GraceMinutes:            5,
		MaxAttemptsPerRecipient: 3,
	}
}

// MaxCategoryMinutes caps the minute-valued category options (one week).
const MaxCategoryMinutes = 7 * 24 * 60

// PollInterval is the cycle spacing, clamped to [1, MaxCategoryMinutes] minutes.
func (c CategoryConfig) PollInterval() time.Duration {
	return time.Duration(min(max(c.PollIntervalMinutes, 1), MaxCategoryMinutes)) * time.Minute
}

// LookAhead is how far into the future a timestamp may be and still be due,
// clamped to [1, MaxCategoryMinutes] minutes.
func (c CategoryConfig) LookAhead() time.Duration {
	return time.Duration(min(max(c.LookAheadMinutes, 1), MaxCategoryMinutes)) * time.Minute
}

// Grace is how far into the past a timestamp may be and still be caught,
// clamped to [0, MaxCategoryMinutes] minutes.
func (c CategoryConfig) Grace() time.Duration {
	return time.Duration(min(max(c.GraceMinutes, 0), MaxCategoryMinutes)) * time.Minute
}

// validate rejects values outside the accepted ranges; prefix names the
// environment variables in errors.
func (c CategoryConfig) validate(prefix string) error {
	if c.MaxAttemptsPerRecipient < 1 {
		return errors.New(prefix + "MAX_ATTEMPTS_PER_RECIPIENT must be >= 1")
	}
	for _, f := range []struct {
		name string
		v    int
	}{
		{"POLL_INTERVAL_MINUTES", c.PollIntervalMinutes},
		{"LOOK_AHEAD_MINUTES", c.LookAheadMinutes},
		{"GRACE_MINUTES", c.GraceMinutes},
	} {
		if f.v > MaxCategoryMinutes {
			return fmt.Errorf("%s%s must be <= %d", prefix, f.name, MaxCategoryMinutes)
		}
	}
	return nil
}

// RemindersConfig groups the two categories.
type RemindersConfig struct {
	Hearing CategoryConfig `yaml:"hearing"`
	Task    CategoryConfig `yaml:"task"`
}

// DBConfig selects and locates the relational store.
type DBConfig struct {
	Driver   string // DB_DRIVER: sqlite|postgres
	Path     string // DB_PATH (sqlite)
	DSN      string // DB_DSN (postgres)
	TenantID string // TENANT_ID: optional explicit scope for due-item queries
}

// LedgerConfig selects the dispatch ledger backend.
type LedgerConfig struct {
	Backend  string // LEDGER_BACKEND: sql|redis
	RedisURL string // REDIS_URL
}

// SMTPConfig configures the email transport. An empty Host disables email.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	StartTLS bool
}

// Enabled reports whether the email channel is configured.
func (s SMTPConfig) Enabled() bool { return strings.TrimSpace(s.Host) != "" }

// SMSConfig configures the SMS/WhatsApp HTTP gateway. An empty GatewayURL
// disables both channels; an empty sender number disables that channel only.
type SMSConfig struct {
	GatewayURL   string
	AccountID    string
	AuthToken    string
	SMSFrom      string
	WhatsAppFrom string
}

// SMSEnabled reports whether the SMS channel is configured.
func (s SMSConfig) SMSEnabled() bool { return s.GatewayURL != "" && s.SMSFrom != "" }

// WhatsAppEnabled reports whether the WhatsApp channel is configured.
func (s SMSConfig) WhatsAppEnabled() bool { return s.GatewayURL != "" && s.WhatsAppFrom != "" }

// SendConfig tunes outbound sends across all channels.
type SendConfig struct {
	Timeout      time.Duration // SEND_TIMEOUT
	EmailRateRPS float64       // EMAIL_RATE_RPS (0 = unlimited)
	SMSRateRPS   float64       // SMS_RATE_RPS, shared by SMS and WhatsApp (0 = unlimited)
	RateBurst    int           // RATE_BURST
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "reminder-scheduler")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the scheduler process.
type Config struct {
	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Ops HTTP (health, readiness, metrics)
	OpsPort string

	Reminders RemindersConfig
	DB        DBConfig
	Ledger    LedgerConfig
	SMTP      SMTPConfig
	SMS       SMSConfig
	Send      SendConfig

	// Observability
	OTEL OTELConfig
}

// fileConfig is the subset of settings accepted from the YAML file.
type fileConfig struct {
	Reminders *RemindersConfig `yaml:"reminders"`
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load builds the configuration from defaults, the optional YAML file named by
// SCHEDULER_CONFIG_FILE, and environment variables (highest precedence). It
// then normalizes values and validates the result.
func Load() (Config, error) {
	reminders := RemindersConfig{
		Hearing: DefaultCategoryConfig(),
		Task:    DefaultCategoryConfig(),
	}
	if path := getenv("SCHEDULER_CONFIG_FILE", ""); path != "" {
		if err := loadFile(path, &reminders); err != nil {
			return Config{}, err
		}
	}
	reminders.Hearing = categoryFromEnv("HEARING_REMINDERS_", reminders.Hearing)
	reminders.Task = categoryFromEnv("TASK_REMINDERS_", reminders.Task)

	cfg := Config{
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),
		OpsPort:   getenv("OPS_PORT", "9090"),

		Reminders: reminders,

		DB: DBConfig{
			Driver:   strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:     getenv("DB_PATH", "app.db"),
			DSN:      getenv("DB_DSN", ""),
			TenantID: strings.TrimSpace(getenv("TENANT_ID", "")),
		},
		Ledger: LedgerConfig{
			Backend:  strings.ToLower(getenv("LEDGER_BACKEND", "sql")),
			RedisURL: getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		},
		SMTP: SMTPConfig{
			Host:     getenv("SMTP_HOST", ""),
			Port:     getint("SMTP_PORT", 587),
			Username: getenv("SMTP_USERNAME", ""),
			Password: getenv("SMTP_PASSWORD", ""),
			From:     getenv("SMTP_FROM", ""),
			StartTLS: getbool("SMTP_STARTTLS", true),
		},
		SMS: SMSConfig{
			GatewayURL:   strings.TrimRight(getenv("SMS_GATEWAY_URL", ""), "/"),
			AccountID:    getenv("SMS_ACCOUNT_ID", ""),
			AuthToken:    getenv("SMS_AUTH_TOKEN", ""),
			SMSFrom:      getenv("SMS_FROM", ""),
			WhatsAppFrom: getenv("WHATSAPP_FROM", ""),
		},
		Send: SendConfig{
			Timeout:      getdur("SEND_TIMEOUT", 30*time.Second),
			EmailRateRPS: getfloat("EMAIL_RATE_RPS", 5),
			SMSRateRPS:   getfloat("SMS_RATE_RPS", 1),
			RateBurst:    getint("RATE_BURST", 5),
		},

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "reminder-scheduler"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	if cfg.DB.Driver == "postgresql" || cfg.DB.Driver == "pg" {
		cfg.DB.Driver = "postgres"
	}
	if cfg.Ledger.Backend == "db" || cfg.Ledger.Backend == "gorm" {
		cfg.Ledger.Backend = "sql"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.OpsPort) == "" {
		return cfg, errors.New("OPS_PORT must not be empty")
	}
	if err := cfg.Reminders.Hearing.validate("HEARING_REMINDERS_"); err != nil {
		return cfg, err
	}
	if err := cfg.Reminders.Task.validate("TASK_REMINDERS_"); err != nil {
		return cfg, err
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return cfg, errors.New("DB_DSN must not be empty when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	switch cfg.Ledger.Backend {
	case "sql":
	case "redis":
		if strings.TrimSpace(cfg.Ledger.RedisURL) == "" {
			return cfg, errors.New("REDIS_URL must not be empty when LEDGER_BACKEND=redis")
		}
	default:
		return cfg, errors.New("LEDGER_BACKEND must be one of: sql, redis")
	}
	if cfg.SMTP.Enabled() {
		if cfg.SMTP.Port <= 0 || cfg.SMTP.Port > 65535 {
			return cfg, errors.New("SMTP_PORT must be in 1..65535")
		}
		if strings.TrimSpace(cfg.SMTP.From) == "" {
			return cfg, errors.New("SMTP_FROM must not be empty when SMTP_HOST is set")
		}
	}
	if cfg.Send.Timeout <= 0 {
		return cfg, errors.New("SEND_TIMEOUT must be a positive duration")
	}
	if cfg.Send.EmailRateRPS < 0 || cfg.Send.SMSRateRPS < 0 {
		return cfg, errors.New("EMAIL_RATE_RPS and SMS_RATE_RPS must be >= 0")
	}
	if cfg.Send.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// loadFile overlays the reminders section of a YAML file onto dst. Keys
// missing from the file keep their current values.
func loadFile(path string, dst *RemindersConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	fc := fileConfig{Reminders: dst}
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// categoryFromEnv overrides the fields of base that have a matching variable.
func categoryFromEnv(prefix string, base CategoryConfig) CategoryConfig {
	return CategoryConfig{
		Enabled:                 getbool(prefix+"ENABLED", base.Enabled),
		PollIntervalMinutes:     getint(prefix+"POLL_INTERVAL_MINUTES", base.PollIntervalMinutes),
		LookAheadMinutes:        getint(prefix+"LOOK_AHEAD_MINUTES", base.LookAheadMinutes),
		GraceMinutes:            getint(prefix+"GRACE_MINUTES", base.GraceMinutes),
		MaxAttemptsPerRecipient: getint(prefix+"MAX_ATTEMPTS_PER_RECIPIENT", base.MaxAttemptsPerRecipient),
	}
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
