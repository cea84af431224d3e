// Package config loads site configuration from defaults, an optional YAML
// file, a local .env file and the process environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"

	MailProviderLog     = "log"
	MailProviderEmailJS = "emailjs"
)

// Config holds application configuration.
type Config struct {
	Env      string         `mapstructure:"env" validate:"required,oneof=dev prod"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Site     SiteConfig     `mapstructure:"site"`
	Content  ContentConfig  `mapstructure:"content"`
	Mail     MailConfig     `mapstructure:"mail"`
	Contact  ContactConfig  `mapstructure:"contact"`
	Widget   WidgetConfig   `mapstructure:"widget"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required,numeric"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig configures the SQLite outbox database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// SiteConfig describes the public site for metadata and the sitemap.
type SiteConfig struct {
	Name    string `mapstructure:"name" validate:"required"`
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

// ContentConfig configures the content API client.
type ContentConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// MailConfig configures enquiry notification delivery.
type MailConfig struct {
	Provider                  string        `mapstructure:"provider" validate:"required,oneof=log emailjs"`
	Endpoint                  string        `mapstructure:"endpoint" validate:"required,url"`
	ServiceID                 string        `mapstructure:"service_id" validate:"required_if=Provider emailjs"`
	UserID                    string        `mapstructure:"user_id" validate:"required_if=Provider emailjs"`
	CompanyTemplateID         string        `mapstructure:"company_template_id" validate:"required"`
	AcknowledgementTemplateID string        `mapstructure:"acknowledgement_template_id" validate:"required"`
	PollInterval              time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
}

// ContactConfig limits enquiry submissions per client.
type ContactConfig struct {
	RatePerMinute float64 `mapstructure:"rate_per_minute" validate:"gt=0"`
	Burst         int     `mapstructure:"burst" validate:"min=1"`
}

// WidgetConfig configures calculator widget sessions.
type WidgetConfig struct {
	SessionSecret string        `mapstructure:"session_secret"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
	MaxSessions   int           `mapstructure:"max_sessions" validate:"min=1"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json console"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// IsDev reports whether the application runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env == EnvDev
}

var defaults = map[string]any{
	"env":                              EnvDev,
	"server.port":                      "8080",
	"server.shutdown_timeout":          10 * time.Second,
	"database.path":                    "./dev.db",
	"site.name":                        "Asia Biomass Tradelink Pvt. Ltd.",
	"site.base_url":                    "https://asiabiomass.in",
	"content.base_url":                 "https://sweekarme.in/asiabio/api",
	"content.timeout":                  10 * time.Second,
	"mail.provider":                    MailProviderLog,
	"mail.endpoint":                    "https://api.emailjs.com/api/v1.0/email/send",
	"mail.service_id":                  "",
	"mail.user_id":                     "",
	"mail.company_template_id":         "enquiry_company",
	"mail.acknowledgement_template_id": "enquiry_acknowledgement",
	"mail.poll_interval":               5 * time.Second,
	"contact.rate_per_minute":          3.0,
	"contact.burst":                    3,
	"widget.session_secret":            "",
	"widget.idle_timeout":              30 * time.Minute,
	"widget.max_sessions":              10000,
	"logging.level":                    "info",
	"logging.format":                   "json",
	"metrics.enabled":                  true,
}

// envNames maps config keys to the environment variables the site has
// always been deployed with.
var envNames = map[string]string{
	"env":                              "APP_ENV",
	"server.port":                      "PORT",
	"server.shutdown_timeout":          "SHUTDOWN_TIMEOUT",
	"database.path":                    "DB_PATH",
	"site.name":                        "SITE_NAME",
	"site.base_url":                    "SITE_URL",
	"content.base_url":                 "CONTENT_API_URL",
	"content.timeout":                  "CONTENT_API_TIMEOUT",
	"mail.provider":                    "MAIL_PROVIDER",
	"mail.endpoint":                    "EMAILJS_ENDPOINT",
	"mail.service_id":                  "EMAILJS_SERVICE_ID",
	"mail.user_id":                     "EMAILJS_USER_ID",
	"mail.company_template_id":         "EMAILJS_TEMPLATE_ID_1",
	"mail.acknowledgement_template_id": "EMAILJS_TEMPLATE_ID_2",
	"mail.poll_interval":               "MAIL_POLL_INTERVAL",
	"contact.rate_per_minute":          "CONTACT_RATE_PER_MINUTE",
	"contact.burst":                    "CONTACT_BURST",
	"widget.session_secret":            "SESSION_SECRET",
	"widget.idle_timeout":              "WIDGET_IDLE_TIMEOUT",
	"widget.max_sessions":              "WIDGET_MAX_SESSIONS",
	"logging.level":                    "LOG_LEVEL",
	"logging.format":                   "LOG_FORMAT",
	"metrics.enabled":                  "METRICS_ENABLED",
}

// Load reads configuration with priority environment > config file >
// defaults. configPath may be empty, in which case ./config.yaml is used
// when present.
func Load(configPath string) (*Config, error) {
	// Best-effort: local development values. Production injects real env.
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key, env := range envNames {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Site.BaseURL = strings.TrimRight(cfg.Site.BaseURL, "/")
	cfg.Content.BaseURL = strings.TrimRight(cfg.Content.BaseURL, "/")

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Warnings lists settings that are allowed but unsafe outside development.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Widget.SessionSecret == "" {
		warnings = append(warnings, "SESSION_SECRET is not set; widget cookies use an ephemeral key")
	}
	if c.Mail.Provider == MailProviderLog && !c.IsDev() {
		warnings = append(warnings, "MAIL_PROVIDER is log; enquiries will not be emailed")
	}
	return warnings
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var messages []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, e := range verrs {
				messages = append(messages, fmt.Sprintf("%s failed %s (value: %v)", e.Namespace(), e.Tag(), e.Value()))
			}
			return fmt.Errorf("%s", strings.Join(messages, "; "))
		}
		return err
	}
	return nil
}
