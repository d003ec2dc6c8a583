package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func mustLoad(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := mustLoad(t, "server: {}\n")

	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Server.Frame.TTL != DefaultFrameTTL {
		t.Errorf("frame.ttl: got %v, want %v", cfg.Server.Frame.TTL, DefaultFrameTTL)
	}
	d := cfg.Dashboard
	if d.Mode != ModeSimulated {
		t.Errorf("mode: got %q, want simulated", d.Mode)
	}
	if d.PollInterval != 5*time.Second {
		t.Errorf("poll_interval: got %v", d.PollInterval)
	}
	if d.HistorySize != 21 {
		t.Errorf("history_size: got %d, want 21", d.HistorySize)
	}
}

func TestLoad_ModeDependentDefaults(t *testing.T) {
	tests := []struct {
		name       string
		yaml       string
		wantWarmup int64
		wantMax    float64
	}{
		{"simulated", "dashboard:\n  mode: simulated\n", 300, 0.7},
		{"remote", "dashboard:\n  mode: remote\n  remote:\n    base_url: http://agent:8000\n", 100, 1.0},
		{"explicit override", "dashboard:\n  mode: remote\n  warmup_threshold: 50\n  error_chart_max: 0.5\n  remote:\n    base_url: http://agent:8000\n", 50, 0.5},
		{"warm-up disabled", "dashboard:\n  mode: simulated\n  warmup_threshold: 0\n", 0, 0.7},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := mustLoad(t, tc.yaml)
			if cfg.Dashboard.Warmup() != tc.wantWarmup {
				t.Errorf("warmup_threshold: got %d, want %d", cfg.Dashboard.Warmup(), tc.wantWarmup)
			}
			if cfg.Dashboard.ErrorChartMax != tc.wantMax {
				t.Errorf("error_chart_max: got %v, want %v", cfg.Dashboard.ErrorChartMax, tc.wantMax)
			}
		})
	}
}

func TestLoad_Remote(t *testing.T) {
	t.Setenv("AGENT_KEY", "k")
	cfg := mustLoad(t, `dashboard:
  mode: remote
  remote:
    base_url: http://agent:8000
    header: X-API-Key
    key_env: AGENT_KEY
`)
	r := cfg.Dashboard.Remote
	if r.SummaryPath != DefaultSummaryPath || r.AnomaliesPath != DefaultAnomaliesPath {
		t.Errorf("paths: got %q %q", r.SummaryPath, r.AnomaliesPath)
	}
	if r.Timeout != DefaultRemoteTimeout {
		t.Errorf("timeout: got %v", r.Timeout)
	}
	if r.Key() != "k" {
		t.Errorf("Key(): got %q", r.Key())
	}
}

func TestLoad_FullServer(t *testing.T) {
	cfg := mustLoad(t, `server:
  http_port: 9091
  broadcast_interval: 2s
  auth:
    mode: apikey
    key_env: MY_KEY
    header: X-Obs-Key
  frame:
    ttl: 10m
  alerts:
    rules:
      - name: high-error-rate
        condition: "error_rate > 0.2"
        severity: critical
        cooldown: 5m
    webhooks:
      - type: slack
        url_env: SLACK_URL
`)
	if cfg.Server.HTTPPort != 9091 {
		t.Errorf("http_port: got %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.Auth.EffectiveHeader() != "X-Obs-Key" {
		t.Errorf("header: got %q", cfg.Server.Auth.EffectiveHeader())
	}
	if cfg.Server.Frame.TTL != 10*time.Minute {
		t.Errorf("frame.ttl: got %v", cfg.Server.Frame.TTL)
	}
	if len(cfg.Server.Alerts.Rules) != 1 || cfg.Server.Alerts.Rules[0].Cooldown != 5*time.Minute {
		t.Errorf("rules: got %+v", cfg.Server.Alerts.Rules)
	}
}

func TestAuthConfig_DefaultHeaderAndKey(t *testing.T) {
	t.Setenv("TEST_SERVER_KEY", "supersecret")
	a := AuthConfig{Mode: "apikey", KeyEnv: "TEST_SERVER_KEY"}
	if h := a.EffectiveHeader(); h != "X-API-Key" {
		t.Errorf("EffectiveHeader: got %q, want X-API-Key", h)
	}
	if k := a.Key(); k != "supersecret" {
		t.Errorf("Key(): got %q", k)
	}
}

func TestWebhookConfig_URL(t *testing.T) {
	t.Setenv("TEAMS_URL", "https://teams.example.com/webhook")
	w := WebhookConfig{Type: "teams", URLEnv: "TEAMS_URL"}
	if got := w.URL(); got != "https://teams.example.com/webhook" {
		t.Errorf("URL(): got %q", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown auth mode", "server:\n  auth:\n    mode: oauth2\n", "auth.mode"},
		{"bad port", "server:\n  http_port: 0\n", "http_port"},
		{"unknown mode", "dashboard:\n  mode: replay\n", "dashboard.mode"},
		{"unknown mode with chart max", "dashboard:\n  mode: replay\n  error_chart_max: 0.5\n", "dashboard.mode"},
		{"remote without url", "dashboard:\n  mode: remote\n", "base_url"},
		{"chart max above one", "dashboard:\n  error_chart_max: 1.5\n", "error_chart_max"},
		{"negative warmup", "dashboard:\n  warmup_threshold: -5\n", "warmup_threshold"},
		{"zero history", "dashboard:\n  history_size: 0\n", "history_size"},
		{"bad threshold", "dashboard:\n  anomaly:\n    threshold: 2\n", "threshold"},
		{"rule without condition", "server:\n  alerts:\n    rules:\n      - name: x\n", "condition"},
		{"rule with unknown field", "server:\n  alerts:\n    rules:\n      - name: x\n        condition: \"drop_pct > 10\"\n", "unknown field"},
		{"rule with bad tier", "server:\n  alerts:\n    rules:\n      - name: x\n        condition: \"tier == red\"\n", "unknown tier"},
		{"unknown webhook", "server:\n  alerts:\n    webhooks:\n      - type: pager\n", "unknown type"},
		{"bad simulator", "dashboard:\n  simulator:\n    services: []\n", "dashboard.simulator"},
		{"negative rate limit", "server:\n  rate_limit:\n    rps: -1\n", "rate_limit"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
