package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all anefwatch configuration.
type Config struct {
	Portal  PortalConfig  `yaml:"portal"`
	Browser BrowserConfig `yaml:"browser"`
	Batch   BatchConfig   `yaml:"batch"`
	Webhook WebhookConfig `yaml:"webhook"`
	Input   InputConfig   `yaml:"input"`
	History HistoryConfig `yaml:"history"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// PortalConfig locates the SSO login form and the client dashboard.
type PortalConfig struct {
	LoginURL string `yaml:"login_url"`
	HomeURL  string `yaml:"home_url"`
}

// BrowserConfig configures the Chrome session used for each account.
type BrowserConfig struct {
	Headless bool   `yaml:"headless"`
	KeepOpen bool   `yaml:"keep_open"` // hold each session until Enter is pressed
	Bin      string `yaml:"bin"`       // Chrome binary; empty lets rod download one

	UserAgent      string `yaml:"user_agent"`
	AcceptLanguage string `yaml:"accept_language"`
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`

	LoginTimeout     string `yaml:"login_timeout"`
	DashboardTimeout string `yaml:"dashboard_timeout"`
	FormWait         string `yaml:"form_wait"`
	SubmitSettle     string `yaml:"submit_settle"`
	DashboardSettle  string `yaml:"dashboard_settle"`
	VisibleLinger    string `yaml:"visible_linger"`
}

// BatchConfig configures sequencing of accounts.
type BatchConfig struct {
	MaxAccounts       int    `yaml:"max_accounts"` // 0 processes every account
	InterAccountDelay string `yaml:"inter_account_delay"`
}

// WebhookConfig configures per-account notification delivery.
type WebhookConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

// InputConfig locates the client sheet and where updated copies are written.
type InputConfig struct {
	CSVPath    string `yaml:"csv_path"`
	ResultsDir string `yaml:"results_dir"`
}

// HistoryConfig configures the SQLite run history. Empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig configures the Prometheus textfile export. Empty file disables it.
type MetricsConfig struct {
	File string `yaml:"file"`
}

const (
	defaultLoginURL = "https://sso.anef.dgef.interieur.gouv.fr/auth/realms/anef-usagers/protocol/openid-connect/auth" +
		"?client_id=anef-usagers&theme=portail-anef" +
		"&redirect_uri=https%3A%2F%2Fadministration-etrangers-en-france.interieur.gouv.fr%2Fparticuliers%2F%23" +
		"&response_mode=fragment&response_type=code&scope=openid"
	defaultHomeURL   = "https://administration-etrangers-en-france.interieur.gouv.fr/particuliers/#/"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	dockerInputCSV   = "/app/data/input.csv"
	dockerResultsDir = "/app/results"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Portal: PortalConfig{
			LoginURL: defaultLoginURL,
			HomeURL:  defaultHomeURL,
		},
		Browser: BrowserConfig{
			Headless:         true,
			UserAgent:        defaultUserAgent,
			AcceptLanguage:   "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7",
			ViewportWidth:    1920,
			ViewportHeight:   1080,
			LoginTimeout:     "20s",
			DashboardTimeout: "40s",
			FormWait:         "10s",
			SubmitSettle:     "5s",
			DashboardSettle:  "5s",
			VisibleLinger:    "4s",
		},
		Batch: BatchConfig{
			MaxAccounts:       0,
			InterAccountDelay: "2s",
		},
		Webhook: WebhookConfig{
			Timeout: "10s",
		},
		Input: InputConfig{
			CSVPath:    dockerInputCSV,
			ResultsDir: defaultResultsDir(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func defaultResultsDir() string {
	if info, err := os.Stat(dockerResultsDir); err == nil && info.IsDir() {
		return dockerResultsDir
	}
	return "results"
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if url := os.Getenv("WEBHOOK_URL"); url != "" {
		c.Webhook.URL = url
	}
	if v := os.Getenv("HEADLESS"); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			c.Browser.Headless = true
		default:
			c.Browser.Headless = false
		}
	}
	if v := os.Getenv("ACCOUNT_LIMIT"); v != "" {
		limit, err := ParseLimit(v)
		if err != nil {
			return fmt.Errorf("ACCOUNT_LIMIT: %w", err)
		}
		c.Batch.MaxAccounts = limit
	}
	if path := os.Getenv("ANEF_INPUT_CSV"); path != "" {
		c.Input.CSVPath = path
	}
	if dir := os.Getenv("ANEF_RESULTS_DIR"); dir != "" {
		c.Input.ResultsDir = dir
	}
	if path := os.Getenv("ANEF_HISTORY_DB"); path != "" {
		c.History.Path = path
	}
	return nil
}

// ParseLimit parses an account limit: "all" (or empty) means no limit.
func ParseLimit(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid account limit %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid account limit %d", n)
	}
	return n, nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// GetLoginTimeout bounds the SSO form submission phase.
func (c *Config) GetLoginTimeout() time.Duration {
	return parseDuration(c.Browser.LoginTimeout, 20*time.Second)
}

// GetDashboardTimeout bounds the dashboard fetch phase.
func (c *Config) GetDashboardTimeout() time.Duration {
	return parseDuration(c.Browser.DashboardTimeout, 40*time.Second)
}

func (c *Config) GetFormWait() time.Duration {
	return parseDuration(c.Browser.FormWait, 10*time.Second)
}

func (c *Config) GetSubmitSettle() time.Duration {
	return parseDuration(c.Browser.SubmitSettle, 5*time.Second)
}

func (c *Config) GetDashboardSettle() time.Duration {
	return parseDuration(c.Browser.DashboardSettle, 5*time.Second)
}

func (c *Config) GetVisibleLinger() time.Duration {
	return parseDuration(c.Browser.VisibleLinger, 4*time.Second)
}

// GetInterAccountDelay returns the pause between two accounts.
func (c *Config) GetInterAccountDelay() time.Duration {
	return parseDuration(c.Batch.InterAccountDelay, 2*time.Second)
}

func (c *Config) GetWebhookTimeout() time.Duration {
	return parseDuration(c.Webhook.Timeout, 10*time.Second)
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Portal.LoginURL == "" || c.Portal.HomeURL == "" {
		return fmt.Errorf("portal login_url and home_url are required")
	}
	if c.Batch.MaxAccounts < 0 {
		return fmt.Errorf("invalid max_accounts: %d", c.Batch.MaxAccounts)
	}
	if c.GetSubmitSettle() >= c.GetLoginTimeout() {
		return fmt.Errorf("submit_settle (%s) must be shorter than login_timeout (%s)",
			c.GetSubmitSettle(), c.GetLoginTimeout())
	}
	if c.GetDashboardSettle() >= c.GetDashboardTimeout() {
		return fmt.Errorf("dashboard_settle (%s) must be shorter than dashboard_timeout (%s)",
			c.GetDashboardSettle(), c.GetDashboardTimeout())
	}

	validLevel := false
	for _, l := range ValidLogLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid logging level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	return nil
}
