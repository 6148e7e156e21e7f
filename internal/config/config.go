package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ogulcanaydogan/usagebot/pkg/scheduler"
)

// Default cron expressions.
const (
	DefaultSummarySchedule = "0 0 * * 0" // Sundays at 00:00
	DefaultAlertSchedule   = "0 0 * * *" // daily at 00:00
)

// Config holds all usagebot configuration. It is loaded once at startup and
// treated as read-only afterwards.
type Config struct {
	OCI        OCIConfig       `mapstructure:"oci" yaml:"oci"`
	Webhook    WebhookConfig   `mapstructure:"webhook" yaml:"webhook"`
	Thresholds ThresholdConfig `mapstructure:"thresholds" yaml:"thresholds"`
	Currency   string          `mapstructure:"currency" yaml:"currency"`
	Schedule   ScheduleConfig  `mapstructure:"schedule" yaml:"schedule"`
	Server     ServerConfig    `mapstructure:"server" yaml:"server"`
	Logging    LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// OCIConfig defines Oracle Cloud API-key credentials.
type OCIConfig struct {
	Tenancy       string `mapstructure:"tenancy" yaml:"tenancy"`
	User          string `mapstructure:"user" yaml:"user"`
	Fingerprint   string `mapstructure:"fingerprint" yaml:"fingerprint"`
	Region        string `mapstructure:"region" yaml:"region"`
	KeyFile       string `mapstructure:"key_file" yaml:"key_file"`
	KeyPassphrase string `mapstructure:"key_passphrase" yaml:"key_passphrase"`
	Timeout       string `mapstructure:"timeout" yaml:"timeout"`
}

// WebhookConfig defines the notification webhook.
type WebhookConfig struct {
	URL     string `mapstructure:"url" yaml:"url"`
	Secret  string `mapstructure:"secret" yaml:"secret"`
	Timeout string `mapstructure:"timeout" yaml:"timeout"`
}

// ThresholdConfig defines daily usage limits.
type ThresholdConfig struct {
	MinDailyUsage float64 `mapstructure:"min_daily_usage" yaml:"min_daily_usage"`
	// MaxDailyUsage is accepted for compatibility but not used by alerting.
	MaxDailyUsage float64 `mapstructure:"max_daily_usage" yaml:"max_daily_usage"`
}

// ScheduleConfig defines the cron expressions for both jobs.
type ScheduleConfig struct {
	Summary  string `mapstructure:"summary" yaml:"summary"`
	Alert    string `mapstructure:"alert" yaml:"alert"`
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// ServerConfig defines the status server. An empty Listen disables it.
type ServerConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// envPrefix applies to every key, e.g. USAGEBOT_WEBHOOK_URL.
const envPrefix = "USAGEBOT"

// legacyEnv maps config keys to the unprefixed variable names older deployments use.
var legacyEnv = map[string]string{
	"oci.tenancy":                "OCI_TENANCY_OCID",
	"oci.user":                   "OCI_USER_OCID",
	"oci.fingerprint":            "OCI_FINGERPRINT",
	"oci.region":                 "OCI_REGION",
	"oci.key_file":               "OCI_KEY_FILE",
	"webhook.url":                "DISCORD_WEBHOOK_URL",
	"thresholds.min_daily_usage": "MIN_DAILY_USAGE",
	"thresholds.max_daily_usage": "MAX_DAILY_USAGE",
	"currency":                   "CURRENCY",
	"schedule.summary":           "SUMMARY_SCHEDULE",
	"schedule.alert":             "DAILY_LIMIT_SCHEDULE",
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".usagebot"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults. Every key needs a default or a binding for AutomaticEnv to reach it in Unmarshal.
	v.SetDefault("oci.tenancy", "")
	v.SetDefault("oci.user", "")
	v.SetDefault("oci.fingerprint", "")
	v.SetDefault("oci.region", "")
	v.SetDefault("oci.key_file", "./key.pem")
	v.SetDefault("oci.key_passphrase", "")
	v.SetDefault("oci.timeout", "30s")
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("thresholds.min_daily_usage", 0)
	v.SetDefault("thresholds.max_daily_usage", 0)
	v.SetDefault("currency", "$")
	v.SetDefault("schedule.summary", DefaultSummarySchedule)
	v.SetDefault("schedule.alert", DefaultAlertSchedule)
	v.SetDefault("schedule.timezone", "UTC")
	v.SetDefault("server.listen", ":9090")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(replacer.Replace(key))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", legacy, err)
		}
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks everything the run command needs.
func (c *Config) Validate() error {
	var errs []error

	if err := c.ValidateOCI(); err != nil {
		errs = append(errs, err)
	}

	if c.Webhook.URL == "" {
		errs = append(errs, errors.New("webhook.url is required (DISCORD_WEBHOOK_URL)"))
	} else if u, err := url.Parse(c.Webhook.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("webhook.url %q is not an absolute URL", c.Webhook.URL))
	}
	if _, err := parseDuration("webhook.timeout", c.Webhook.Timeout); err != nil {
		errs = append(errs, err)
	}

	if c.Thresholds.MinDailyUsage < 0 {
		errs = append(errs, fmt.Errorf("thresholds.min_daily_usage must not be negative, got %v", c.Thresholds.MinDailyUsage))
	}
	if c.Thresholds.MaxDailyUsage < 0 {
		errs = append(errs, fmt.Errorf("thresholds.max_daily_usage must not be negative, got %v", c.Thresholds.MaxDailyUsage))
	}
	if c.Currency == "" {
		errs = append(errs, errors.New("currency must not be empty"))
	}

	if err := c.ValidateSchedule(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ValidateOCI checks the billing API credentials are present.
func (c *Config) ValidateOCI() error {
	var errs []error
	required := []struct{ key, env, value string }{
		{"oci.tenancy", "OCI_TENANCY_OCID", c.OCI.Tenancy},
		{"oci.user", "OCI_USER_OCID", c.OCI.User},
		{"oci.fingerprint", "OCI_FINGERPRINT", c.OCI.Fingerprint},
		{"oci.region", "OCI_REGION", c.OCI.Region},
		{"oci.key_file", "OCI_KEY_FILE", c.OCI.KeyFile},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s is required (%s)", r.key, r.env))
		}
	}
	if _, err := parseDuration("oci.timeout", c.OCI.Timeout); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateSchedule checks both cron expressions and the time zone.
func (c *Config) ValidateSchedule() error {
	var errs []error
	if _, err := scheduler.Parse(c.Schedule.Summary); err != nil {
		errs = append(errs, fmt.Errorf("schedule.summary: %w", err))
	}
	if _, err := scheduler.Parse(c.Schedule.Alert); err != nil {
		errs = append(errs, fmt.Errorf("schedule.alert: %w", err))
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("schedule.timezone: %w", err))
	}
	return errors.Join(errs...)
}

// Location returns the schedule time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// OCITimeout returns the billing request timeout.
func (c *Config) OCITimeout() time.Duration {
	d, _ := parseDuration("oci.timeout", c.OCI.Timeout)
	if d == 0 {
		d = 30 * time.Second
	}
	return d
}

// WebhookTimeout returns the webhook client timeout.
func (c *Config) WebhookTimeout() time.Duration {
	d, _ := parseDuration("webhook.timeout", c.Webhook.Timeout)
	if d == 0 {
		d = 10 * time.Second
	}
	return d
}

// Redacted returns a copy with credentials masked, safe to print.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.OCI.KeyPassphrase = mask(c.OCI.KeyPassphrase)
	c.Webhook.Secret = mask(c.Webhook.Secret)
	if u, err := url.Parse(c.Webhook.URL); err == nil && u.Host != "" {
		// Discord webhook tokens live in the path.
		c.Webhook.URL = u.Scheme + "://" + u.Host + "/" + mask(u.Path)
	}
	return c
}

func parseDuration(key, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", key, s)
	}
	return d, nil
}
