package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalguard/signalguard/pkg/anomaly"
	"github.com/signalguard/signalguard/pkg/simulator"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultTickInterval   = 5 * time.Second
	DefaultHTTPPort       = 8000
	DefaultRequestsMetric = "app_requests_total"
	DefaultErrorsMetric   = "app_request_errors_total"
	DefaultServiceLabel   = "endpoint"
	DefaultLogLevel       = "info"
)

// Source types.
const (
	SourceSimulated  = "simulated"
	SourcePrometheus = "prometheus"
)

// Config is the top-level agent configuration.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Agent   AgentConfig   `yaml:"agent"`
	Logging LoggingConfig `yaml:"logging"`
}

// AgentConfig holds all agent-side settings.
type AgentConfig struct {
	// HTTPPort is the port serving the summary, anomaly and /metrics endpoints.
	HTTPPort int `yaml:"http_port"`

	// TickInterval controls how often a new Summary is produced and scored.
	TickInterval time.Duration `yaml:"tick_interval"`

	// Source selects where summaries come from.
	Source Source `yaml:"source"`

	// Simulator configures the synthetic traffic when Source.Type is simulated.
	Simulator simulator.Config `yaml:"simulator"`

	// Anomaly configures the scorer.
	Anomaly AnomalyConfig `yaml:"anomaly"`
}

// Source describes where the agent reads traffic counters from.
type Source struct {
	// Type is one of: simulated | prometheus.
	Type string `yaml:"type"`

	// Seed seeds the simulator. Zero picks a time-based seed.
	Seed int64 `yaml:"seed"`

	// Endpoint is the URL of the application's Prometheus exposition.
	Endpoint string `yaml:"endpoint"`

	// RequestsMetric and ErrorsMetric name the counters to read.
	RequestsMetric string `yaml:"requests_metric"`
	ErrorsMetric   string `yaml:"errors_metric"`

	// ServiceLabel is the label whose value identifies the service.
	ServiceLabel string `yaml:"service_label"`

	// Services maps label values to service names, e.g. "/orders": orders.
	// Unmapped values are used with any leading slash removed.
	Services map[string]string `yaml:"services"`

	// Auth configures how the agent authenticates to the endpoint.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// AuthConfig specifies the authentication mode for a source.
type AuthConfig struct {
	// Mode is one of: apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// Header is the HTTP header the API key is sent in.
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv is the name of the environment variable that holds the bearer token.
	TokenEnv string `yaml:"token_env"`

	Username string `yaml:"username"`
	// PasswordEnv is the name of the environment variable that holds the password.
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
func (a AuthConfig) Key() string { return getenv(a.KeyEnv) }

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string { return getenv(a.TokenEnv) }

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string { return getenv(a.PasswordEnv) }

func getenv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// TLSConfig holds TLS dial options.
type TLSConfig struct {
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// AnomalyConfig configures the anomaly scorer.
type AnomalyConfig struct {
	// Threshold is the error rate above which a service is flagged.
	Threshold float64 `yaml:"threshold"`

	// Services are reported even when absent from a Summary.
	Services []string `yaml:"services"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes, applying defaults and validation.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			HTTPPort:     DefaultHTTPPort,
			TickInterval: DefaultTickInterval,
			Source: Source{
				Type:           SourceSimulated,
				RequestsMetric: DefaultRequestsMetric,
				ErrorsMetric:   DefaultErrorsMetric,
				ServiceLabel:   DefaultServiceLabel,
			},
			Simulator: simulator.DefaultConfig(),
			Anomaly: AnomalyConfig{
				Threshold: anomaly.DefaultThreshold,
				Services:  []string{"orders", "payments"},
			},
		},
		Logging: LoggingConfig{Level: DefaultLogLevel, JSON: true},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	a := cfg.Agent
	if a.HTTPPort <= 0 || a.HTTPPort > 65535 {
		return fmt.Errorf("agent.http_port %d out of range", a.HTTPPort)
	}
	if a.TickInterval <= 0 {
		return fmt.Errorf("agent.tick_interval must be positive")
	}
	if a.Anomaly.Threshold <= 0 || a.Anomaly.Threshold > 1 {
		return fmt.Errorf("agent.anomaly.threshold must be in (0, 1], got %v", a.Anomaly.Threshold)
	}

	switch a.Source.Type {
	case SourceSimulated:
		if err := a.Simulator.Validate(); err != nil {
			return fmt.Errorf("agent.simulator: %w", err)
		}
	case SourcePrometheus:
		if a.Source.Endpoint == "" {
			return fmt.Errorf("agent.source.endpoint is required for type %q", SourcePrometheus)
		}
		if a.Source.RequestsMetric == "" || a.Source.ErrorsMetric == "" {
			return fmt.Errorf("agent.source: requests_metric and errors_metric are required")
		}
		if a.Source.ServiceLabel == "" {
			return fmt.Errorf("agent.source.service_label is required")
		}
	default:
		return fmt.Errorf("agent.source: unknown type %q", a.Source.Type)
	}

	switch a.Source.Auth.Mode {
	case "apikey":
		if a.Source.Auth.Header == "" {
			return fmt.Errorf("agent.source.auth: header is required for apikey mode")
		}
	case "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("agent.source.auth: unknown mode %q", a.Source.Auth.Mode)
	}
	return nil
}
