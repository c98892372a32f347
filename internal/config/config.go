package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultTargetURL is rendered when neither the config file nor URL set one.
const DefaultTargetURL = "https://maru-online.github.io/digivation-profile/"

// PaperSize is a paper format in inches.
type PaperSize struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type ServerConfig struct {
	ListenAddr         string        `yaml:"listen_addr" env:"LISTEN_ADDR"`
	Prefork            bool          `yaml:"prefork"`
	ExposeErrorDetails bool          `yaml:"expose_error_details" env:"EXPOSE_ERROR_DETAILS"`
	EnableMonitor      bool          `yaml:"enable_monitor"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	BodyLimitBytes     int           `yaml:"body_limit_bytes"`
}

type LoggerConfig struct {
	File       string `yaml:"file" env:"LOG_FILE"`
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type RenderConfig struct {
	URL             string               `yaml:"url" env:"URL"`
	ViewportWidth   int                  `yaml:"viewport_width"`
	ViewportHeight  int                  `yaml:"viewport_height"`
	WaitUntil       string               `yaml:"wait_until"`
	SettleDelay     time.Duration        `yaml:"settle_delay"`
	WaitForFonts    bool                 `yaml:"wait_for_fonts"`
	ReadySelector   string               `yaml:"ready_selector"`
	Paper           string               `yaml:"paper"`
	PaperSizes      map[string]PaperSize `yaml:"paper_sizes"`
	MarginMM        float64              `yaml:"margin_mm"`
	PrintBackground bool                 `yaml:"print_background"`
	Timeout         time.Duration        `yaml:"timeout"`
	ChromePath      string               `yaml:"chrome_path" env:"CHROME_BIN"`
	ChromeNoSandbox bool                 `yaml:"chrome_no_sandbox"`
	UserDataDir     string               `yaml:"user_data_dir"`
}

type SMTPConfig struct {
	Host    string `yaml:"host" env:"SMTP_HOST"`
	Port    int    `yaml:"port" env:"SMTP_PORT"`
	TLSMode string `yaml:"tls_mode" env:"SMTP_TLS_MODE"`
}

type PostmarkConfig struct {
	ServerToken  string `yaml:"server_token" env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `yaml:"account_token" env:"POSTMARK_ACCOUNT_TOKEN"`
	BaseURL      string `yaml:"base_url"`
}

type SESConfig struct {
	Region          string `yaml:"region" env:"SES_REGION"`
	AccessKeyID     string `yaml:"access_key_id" env:"SES_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"SES_SECRET_ACCESS_KEY"`
}

type MailConfig struct {
	Provider       string         `yaml:"provider" env:"MAIL_PROVIDER"`
	Username       string         `yaml:"username" env:"EMAIL_USER"`
	Password       string         `yaml:"password" env:"EMAIL_PASS"`
	FromName       string         `yaml:"from_name"`
	Subject        string         `yaml:"subject"`
	AttachmentName string         `yaml:"attachment_name"`
	Timeout        time.Duration  `yaml:"timeout"`
	SMTP           SMTPConfig     `yaml:"smtp"`
	Postmark       PostmarkConfig `yaml:"postmark"`
	SES            SESConfig      `yaml:"ses"`
}

// Config is the full service configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Logger LoggerConfig `yaml:"logger"`
	Render RenderConfig `yaml:"render"`
	Mail   MailConfig   `yaml:"mail"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:         ":8080",
			ExposeErrorDetails: true,
			ShutdownTimeout:    5 * time.Second,
			BodyLimitBytes:     64 * 1024,
		},
		Logger: LoggerConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Render: RenderConfig{
			URL:            DefaultTargetURL,
			ViewportWidth:  1200,
			ViewportHeight: 800,
			WaitUntil:      "networkAlmostIdle",
			SettleDelay:    2 * time.Second,
			Paper:          "A4",
			PaperSizes: map[string]PaperSize{
				"A4":     {Width: 8.27, Height: 11.69},
				"A3":     {Width: 11.69, Height: 16.54},
				"LETTER": {Width: 8.5, Height: 11},
				"LEGAL":  {Width: 8.5, Height: 14},
			},
			MarginMM:        10,
			PrintBackground: true,
			Timeout:         60 * time.Second,
			ChromeNoSandbox: true,
		},
		Mail: MailConfig{
			Provider:       "smtp",
			FromName:       "Digivation (Pty) Ltd",
			Subject:        "Digivation Company Profile - PDF",
			AttachmentName: "Digivation-Company-Profile.pdf",
			Timeout:        30 * time.Second,
			SMTP: SMTPConfig{
				Host:    "smtp.gmail.com",
				Port:    465,
				TLSMode: "tls",
			},
			SES: SESConfig{Region: "us-east-1"},
		},
	}
}

var lifecycleEvents = map[string]bool{
	"load":              true,
	"DOMContentLoaded":  true,
	"networkAlmostIdle": true,
	"networkIdle":       true,
}

// Load reads CONFIG_PATH (default config.yaml) and panics on invalid values.
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file path.
func LoadFrom(path string) Config {
	cfg, err := Parse(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Parse builds the configuration from defaults, the YAML file at path (a
// missing file is not an error), a .env file in the working directory and
// finally the process environment.
func Parse(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	_ = godotenv.Load()

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.Render.Paper = strings.ToUpper(cfg.Render.Paper)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	u, err := url.ParseRequestURI(c.Render.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("render.url must be an http(s) URL, got %q", c.Render.URL)
	}
	if c.Render.ViewportWidth <= 0 || c.Render.ViewportHeight <= 0 {
		return fmt.Errorf("render viewport must be positive, got %dx%d", c.Render.ViewportWidth, c.Render.ViewportHeight)
	}
	if !lifecycleEvents[c.Render.WaitUntil] {
		return fmt.Errorf("render.wait_until %q is not a known lifecycle event", c.Render.WaitUntil)
	}
	if c.Render.SettleDelay < 0 {
		return fmt.Errorf("render.settle_delay must not be negative")
	}
	if _, ok := c.Render.PaperSizes[c.Render.Paper]; !ok {
		return fmt.Errorf("render.paper %q is not in render.paper_sizes", c.Render.Paper)
	}
	if c.Render.MarginMM < 0 {
		return fmt.Errorf("render.margin_mm must not be negative")
	}
	if c.Render.Timeout <= 0 {
		return fmt.Errorf("render.timeout must be positive")
	}
	if c.Mail.Timeout <= 0 {
		return fmt.Errorf("mail.timeout must be positive")
	}
	if c.Mail.AttachmentName == "" {
		return fmt.Errorf("mail.attachment_name is required")
	}
	switch c.Mail.Provider {
	case "smtp", "postmark", "ses":
	default:
		return fmt.Errorf("mail.provider must be smtp, postmark or ses, got %q", c.Mail.Provider)
	}
	return nil
}

// PaperSize returns the configured paper format.
func (r RenderConfig) PaperSize() PaperSize {
	return r.PaperSizes[r.Paper]
}
