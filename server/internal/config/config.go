package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalguard/signalguard/pkg/anomaly"
	"github.com/signalguard/signalguard/pkg/simulator"
	"github.com/signalguard/signalguard/pkg/status"
	"github.com/signalguard/signalguard/server/internal/alerts/expr"
)

// Dashboard modes.
const (
	ModeSimulated = "simulated"
	ModeRemote    = "remote"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort          = 8080
	DefaultFrameTTL          = 5 * time.Minute
	DefaultPollInterval      = 5 * time.Second
	DefaultBroadcastInterval = 5 * time.Second
	DefaultHistorySize       = 21
	DefaultRemoteTimeout     = 5 * time.Second
	DefaultSummaryPath       = "/api/dashboard/summary"
	DefaultAnomaliesPath     = "/api/anomalies"
	DefaultAuthHeader        = "X-API-Key"

	DefaultErrorChartMaxSimulated = 0.7
	DefaultErrorChartMaxRemote    = 1.0
)

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one per-service alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "error_rate > 0.2", "score >= 2",
	// "flag == 1", "tier == incident".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	return getenv(w.URLEnv)
}

// Config holds the server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the HTTP-facing settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and WebSocket hub listen on.
	HTTPPort int `yaml:"http_port"`

	// Auth configures how the server authenticates REST clients.
	Auth AuthConfig `yaml:"auth"`

	// Frame controls how long the latest frame is served after it was received.
	Frame FrameConfig `yaml:"frame"`

	// BroadcastInterval is how often the WebSocket hub pushes the view.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`

	// Alerts holds rule definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`

	// RateLimit throttles REST and WebSocket requests per client IP.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is a token bucket per client. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header name to read the key from.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	return getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or X-API-Key.
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return DefaultAuthHeader
}

// FrameConfig controls in-memory frame retention.
type FrameConfig struct {
	// TTL is how long the latest frame stays servable without a newer one.
	TTL time.Duration `yaml:"ttl"`
}

// DashboardConfig selects where frames come from and how they are presented.
type DashboardConfig struct {
	// Mode is one of: simulated | remote.
	Mode string `yaml:"mode"`

	// PollInterval is how often a new frame is produced or fetched.
	PollInterval time.Duration `yaml:"poll_interval"`

	// WarmupThreshold is the request count below which the caption reads
	// "warming up". Absent picks the mode default; 0 disables warm-up.
	WarmupThreshold *int64 `yaml:"warmup_threshold"`

	// ErrorChartMax is the upper bound of the error-rate chart axis.
	// Zero or absent picks the mode default.
	ErrorChartMax float64 `yaml:"error_chart_max"`

	// HistorySize is the number of chart points kept.
	HistorySize int `yaml:"history_size"`

	// Seed seeds the simulator in simulated mode. Zero picks a time-based seed.
	Seed int64 `yaml:"seed"`

	// Simulator configures the synthetic traffic in simulated mode.
	Simulator simulator.Config `yaml:"simulator"`

	// Anomaly configures the scorer in simulated mode.
	Anomaly AnomalyConfig `yaml:"anomaly"`

	// Remote configures the agent endpoints in remote mode.
	Remote RemoteConfig `yaml:"remote"`
}

// Warmup returns the effective warm-up threshold.
func (d DashboardConfig) Warmup() int64 {
	if d.WarmupThreshold == nil {
		return 0
	}
	return *d.WarmupThreshold
}

// AnomalyConfig configures the local anomaly scorer.
type AnomalyConfig struct {
	Threshold float64 `yaml:"threshold"`

	// Services are the services the dashboard always shows, in either mode.
	// Missing ones are reported zero-valued.
	Services []string `yaml:"services"`
}

// RemoteConfig locates the agent that serves summaries and anomalies.
type RemoteConfig struct {
	// BaseURL is the agent's base URL, e.g. http://agent:8000.
	BaseURL       string        `yaml:"base_url"`
	SummaryPath   string        `yaml:"summary_path"`
	AnomaliesPath string        `yaml:"anomalies_path"`
	Timeout       time.Duration `yaml:"timeout"`

	// Header and KeyEnv add an API key to every request when both are set.
	Header string `yaml:"header"`
	KeyEnv string `yaml:"key_env"`
}

// Key returns the agent API key resolved from the environment.
func (r RemoteConfig) Key() string {
	return getenv(r.KeyEnv)
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func getenv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// Load reads and parses the config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes, applying defaults and validation.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}
	applyModeDefaults(&cfg.Dashboard)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:          DefaultHTTPPort,
			Frame:             FrameConfig{TTL: DefaultFrameTTL},
			BroadcastInterval: DefaultBroadcastInterval,
		},
		Dashboard: DashboardConfig{
			Mode:         ModeSimulated,
			PollInterval: DefaultPollInterval,
			HistorySize:  DefaultHistorySize,
			Simulator:    simulator.DefaultConfig(),
			Anomaly: AnomalyConfig{
				Threshold: anomaly.DefaultThreshold,
				Services:  []string{"orders", "payments"},
			},
			Remote: RemoteConfig{
				SummaryPath:   DefaultSummaryPath,
				AnomaliesPath: DefaultAnomaliesPath,
				Timeout:       DefaultRemoteTimeout,
			},
		},
		Logging: LoggingConfig{Level: "info", JSON: true},
	}
}

// applyModeDefaults fills the presentation settings whose defaults depend on
// the dashboard mode.
func applyModeDefaults(d *DashboardConfig) {
	var warmup int64
	var chartMax float64
	switch d.Mode {
	case ModeSimulated:
		warmup, chartMax = status.DefaultWarmupSimulated, DefaultErrorChartMaxSimulated
	case ModeRemote:
		warmup, chartMax = status.DefaultWarmupRemote, DefaultErrorChartMaxRemote
	default:
		return
	}
	if d.WarmupThreshold == nil {
		d.WarmupThreshold = &warmup
	}
	if d.ErrorChartMax == 0 {
		d.ErrorChartMax = chartMax
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	if s.Frame.TTL < 0 {
		return fmt.Errorf("server.frame.ttl must not be negative")
	}
	if s.BroadcastInterval <= 0 {
		return fmt.Errorf("server.broadcast_interval must be positive")
	}
	if s.RateLimit.RPS < 0 || s.RateLimit.Burst < 0 {
		return fmt.Errorf("server.rate_limit: rps and burst must not be negative")
	}
	for i, r := range s.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("server.alerts.rules[%d]: name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("server.alerts.rules[%d] %q: condition is required", i, r.Name)
		}
		if _, err := expr.Parse(r.Condition); err != nil {
			return fmt.Errorf("server.alerts.rules[%d] %q: condition: %w", i, r.Name, err)
		}
	}
	for i, w := range s.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("server.alerts.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}

	d := cfg.Dashboard
	switch d.Mode {
	case ModeSimulated, ModeRemote:
	default:
		return fmt.Errorf("dashboard.mode %q unknown: want simulated|remote", d.Mode)
	}
	if d.PollInterval <= 0 {
		return fmt.Errorf("dashboard.poll_interval must be positive")
	}
	if d.Warmup() < 0 {
		return fmt.Errorf("dashboard.warmup_threshold must not be negative")
	}
	if d.ErrorChartMax <= 0 || d.ErrorChartMax > 1 {
		return fmt.Errorf("dashboard.error_chart_max must be in (0, 1], got %v", d.ErrorChartMax)
	}
	if d.HistorySize <= 0 {
		return fmt.Errorf("dashboard.history_size must be positive")
	}
	switch d.Mode {
	case ModeSimulated:
		if d.Anomaly.Threshold <= 0 || d.Anomaly.Threshold > 1 {
			return fmt.Errorf("dashboard.anomaly.threshold must be in (0, 1], got %v", d.Anomaly.Threshold)
		}
		if err := d.Simulator.Validate(); err != nil {
			return fmt.Errorf("dashboard.simulator: %w", err)
		}
	case ModeRemote:
		if d.Remote.BaseURL == "" {
			return fmt.Errorf("dashboard.remote.base_url is required in remote mode")
		}
		if d.Remote.Timeout <= 0 {
			return fmt.Errorf("dashboard.remote.timeout must be positive")
		}
	}
	return nil
}
