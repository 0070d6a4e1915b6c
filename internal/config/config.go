package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Range   RangeConfig   `yaml:"range" mapstructure:"range"`
	Ledger  LedgerConfig  `yaml:"ledger" mapstructure:"ledger"`
	Session SessionConfig `yaml:"session" mapstructure:"session"`
	Pacing  PacingConfig  `yaml:"pacing" mapstructure:"pacing"`
	Notify  NotifyConfig  `yaml:"notify" mapstructure:"notify"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// RangeConfig is the closed MC/MX identifier interval to sweep.
type RangeConfig struct {
	Start int `yaml:"start" mapstructure:"start"`
	End   int `yaml:"end" mapstructure:"end"`
}

// LedgerConfig configures where results and failures are persisted.
type LedgerConfig struct {
	OutputPath     string `yaml:"output_path" mapstructure:"output_path"`
	FailureLogPath string `yaml:"failure_log_path" mapstructure:"failure_log_path"`
}

// SessionConfig configures the browser session against the registry.
type SessionConfig struct {
	SearchURL       string `yaml:"search_url" mapstructure:"search_url"`
	Headless        bool   `yaml:"headless" mapstructure:"headless"`
	BrowserBin      string `yaml:"browser_bin" mapstructure:"browser_bin"`
	WaitMinMs       int    `yaml:"wait_min_ms" mapstructure:"wait_min_ms"`
	WaitMaxMs       int    `yaml:"wait_max_ms" mapstructure:"wait_max_ms"`
	SubmitWaitMinMs int    `yaml:"submit_wait_min_ms" mapstructure:"submit_wait_min_ms"`
	SubmitWaitMaxMs int    `yaml:"submit_wait_max_ms" mapstructure:"submit_wait_max_ms"`
	PopupSettleMs   int    `yaml:"popup_settle_ms" mapstructure:"popup_settle_ms"`
	LaunchAttempts  int    `yaml:"launch_attempts" mapstructure:"launch_attempts"`
}

// PacingConfig bounds the request rate against the registry.
type PacingConfig struct {
	IntervalMs        int     `yaml:"interval_ms" mapstructure:"interval_ms"`
	JitterFraction    float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	MaxPerMinute      int     `yaml:"max_per_minute" mapstructure:"max_per_minute"`
	CooldownThreshold int     `yaml:"cooldown_threshold" mapstructure:"cooldown_threshold"`
	CooldownSecs      int     `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// NotifyConfig configures outreach notifications.
type NotifyConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	Channel           string        `yaml:"channel" mapstructure:"channel"`
	TemplatePath      string        `yaml:"template_path" mapstructure:"template_path"`
	OverrideRecipient string        `yaml:"override_recipient" mapstructure:"override_recipient"`
	Webmail           WebmailConfig `yaml:"webmail" mapstructure:"webmail"`
	Webhook           WebhookConfig `yaml:"webhook" mapstructure:"webhook"`
}

// WebmailConfig holds Roundcube webmail credentials.
type WebmailConfig struct {
	LoginURL   string `yaml:"login_url" mapstructure:"login_url"`
	ComposeURL string `yaml:"compose_url" mapstructure:"compose_url"`
	Username   string `yaml:"username" mapstructure:"username"`
	Password   string `yaml:"password" mapstructure:"password"`
}

// WebhookConfig holds the outbound mail webhook settings.
type WebhookConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// StoreConfig configures the optional run journal.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// StaleAfterMins is how long a running run may go without journaled
	// activity before the next sweep marks it abandoned. 0 disables it.
	StaleAfterMins int `yaml:"stale_after_mins" mapstructure:"stale_after_mins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Notification channels.
const (
	ChannelWebmail = "webmail"
	ChannelWebhook = "webhook"
)

// legacyEnv maps config keys to the environment names used by the original
// .env.local files, so existing deployments keep working.
var legacyEnv = map[string]string{
	"range.start":               "MCMX_START",
	"range.end":                 "MCMX_END",
	"notify.enabled":            "ENABLE_EMAIL_SENDING",
	"notify.webmail.login_url":  "EMAIL_LOGIN_URL",
	"notify.webmail.username":   "EMAIL_USERNAME",
	"notify.webmail.password":   "EMAIL_PASSWORD",
	"notify.override_recipient": "EMAIL_OVERRIDE_RECIPIENT",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SAFER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := "SAFER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("range.start", 0)
	v.SetDefault("range.end", 0)
	v.SetDefault("ledger.output_path", "carrier_data.xlsx")
	v.SetDefault("ledger.failure_log_path", "failed_to_search.txt")
	v.SetDefault("session.search_url", "https://safer.fmcsa.dot.gov/CompanySnapshot.aspx")
	v.SetDefault("session.headless", true)
	v.SetDefault("session.browser_bin", "")
	v.SetDefault("session.wait_min_ms", 2000)
	v.SetDefault("session.wait_max_ms", 5000)
	v.SetDefault("session.submit_wait_min_ms", 5000)
	v.SetDefault("session.submit_wait_max_ms", 10000)
	v.SetDefault("session.popup_settle_ms", 5000)
	v.SetDefault("session.launch_attempts", 3)
	v.SetDefault("pacing.interval_ms", 2000)
	v.SetDefault("pacing.jitter_fraction", 0.25)
	v.SetDefault("pacing.max_per_minute", 20)
	v.SetDefault("pacing.cooldown_threshold", 5)
	v.SetDefault("pacing.cooldown_secs", 60)
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.channel", ChannelWebmail)
	v.SetDefault("notify.template_path", "email_data.yaml")
	v.SetDefault("notify.webmail.login_url", "https://mail.hostinger.com/")
	v.SetDefault("notify.webmail.compose_url", "https://mail.hostinger.com/?_task=mail&_action=compose")
	v.SetDefault("notify.webhook.url", "")
	v.SetDefault("notify.webhook.timeout_secs", 15)
	v.SetDefault("store.driver", "")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.stale_after_mins", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a sweep needs before any resource is
// acquired. All problems are reported together.
func (c *Config) Validate() error {
	var missing []string

	if c.Range.Start <= 0 {
		missing = append(missing, "range.start is required")
	}
	if c.Range.End <= 0 {
		missing = append(missing, "range.end is required")
	}
	if c.Range.Start > 0 && c.Range.End > 0 && c.Range.Start > c.Range.End {
		missing = append(missing, fmt.Sprintf("range.start (%d) must not exceed range.end (%d)", c.Range.Start, c.Range.End))
	}
	if c.Ledger.OutputPath == "" {
		missing = append(missing, "ledger.output_path is required")
	}
	if c.Ledger.FailureLogPath == "" {
		missing = append(missing, "ledger.failure_log_path is required")
	}
	if c.Session.WaitMinMs > c.Session.WaitMaxMs {
		missing = append(missing, "session.wait_min_ms must not exceed session.wait_max_ms")
	}

	if c.Notify.Enabled {
		if c.Notify.TemplatePath == "" {
			missing = append(missing, "notify.template_path is required")
		}
		switch c.Notify.Channel {
		case ChannelWebmail:
			if c.Notify.Webmail.LoginURL == "" {
				missing = append(missing, "notify.webmail.login_url is required")
			}
			if c.Notify.Webmail.Username == "" {
				missing = append(missing, "notify.webmail.username is required")
			}
			if c.Notify.Webmail.Password == "" {
				missing = append(missing, "notify.webmail.password is required")
			}
		case ChannelWebhook:
			if c.Notify.Webhook.URL == "" {
				missing = append(missing, "notify.webhook.url is required")
			}
		default:
			missing = append(missing, fmt.Sprintf("notify.channel %q is not supported", c.Notify.Channel))
		}
	}

	switch c.Store.Driver {
	case "", "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required")
		}
	default:
		missing = append(missing, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	if len(missing) > 0 {
		return eris.Errorf("config: %s", strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
