package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"ozzus/sitecheck/internal/domain"
)

const EnvPrefix = "SITECHECK"

type Config struct {
	Env      string         `mapstructure:"env"`
	LogLevel string         `mapstructure:"log_level"`
	Checks   ChecksConfig   `mapstructure:"checks"`
	Source   SourceConfig   `mapstructure:"source"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Report   ReportConfig   `mapstructure:"report"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Server   ServerConfig   `mapstructure:"server"`
}

type ChecksConfig struct {
	Workers      int    `mapstructure:"workers"`
	Timeout      int    `mapstructure:"timeout"`
	Retries      int    `mapstructure:"retries"`
	RetryDelayMs int    `mapstructure:"retry_delay_ms"`
	Method       string `mapstructure:"method"`
	AssertHeader string `mapstructure:"assert_header"`
	UserAgent    string `mapstructure:"user_agent"`
}

type SourceConfig struct {
	File  string `mapstructure:"file"`
	Watch bool   `mapstructure:"watch"`
}

type ScheduleConfig struct {
	Period int `mapstructure:"period"`
}

type ReportConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// Load builds the configuration from defaults, the optional file at path,
// SITECHECK_ environment variables and finally the flags in fs that were
// set explicitly.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if fs != nil {
		if err := BindFlags(v, fs); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("log_level", "")

	// Checks defaults
	v.SetDefault("checks.workers", runtime.NumCPU())
	v.SetDefault("checks.timeout", 5)
	v.SetDefault("checks.retries", 0)
	v.SetDefault("checks.retry_delay_ms", 100)
	v.SetDefault("checks.method", "GET")
	v.SetDefault("checks.assert_header", "")
	v.SetDefault("checks.user_agent", "sitecheck/1.0")

	v.SetDefault("source.file", "")
	v.SetDefault("source.watch", false)

	v.SetDefault("schedule.period", 0)

	v.SetDefault("report.dir", ".")
	v.SetDefault("report.format", "json")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "sitecheck-outcomes")

	v.SetDefault("server.listen", "")
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.Checks.Method = strings.ToUpper(strings.TrimSpace(c.Checks.Method))
	c.Report.Format = strings.ToLower(strings.TrimSpace(c.Report.Format))

	brokers := c.Kafka.Brokers[:0:0]
	for _, b := range c.Kafka.Brokers {
		for _, part := range strings.Split(b, ",") {
			if part = strings.TrimSpace(part); part != "" {
				brokers = append(brokers, part)
			}
		}
	}
	c.Kafka.Brokers = brokers
}

// Periodic reports whether rounds repeat.
func (c *Config) Periodic() bool {
	return c.Schedule.Period > 0
}

func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Checks.Timeout) * time.Second
}

func (c *Config) GetRetryDelay() time.Duration {
	return time.Duration(c.Checks.RetryDelayMs) * time.Millisecond
}

func (c *Config) GetPeriod() time.Duration {
	return time.Duration(c.Schedule.Period) * time.Second
}

// HeaderAssertion returns the parsed assertion or nil when none is configured.
// Call Validate first; a malformed value also yields nil.
func (c *Config) HeaderAssertion() *domain.HeaderAssertion {
	a, err := ParseHeaderAssertion(c.Checks.AssertHeader)
	if err != nil {
		return nil
	}
	return a
}

// ParseHeaderAssertion parses "Name: Value". The name is lowercased and both
// parts are trimmed; the value keeps any further colons.
func ParseHeaderAssertion(s string) (*domain.HeaderAssertion, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	name, value, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("invalid header assertion %q: use 'Header-Name: Expected Value'", s)
	}

	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if name == "" || value == "" {
		return nil, fmt.Errorf("invalid header assertion %q: name and value cannot be empty", s)
	}

	return &domain.HeaderAssertion{Name: strings.ToLower(name), Value: value}, nil
}
