package alerts

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/signalguard/signalguard/pkg/types"
	"github.com/signalguard/signalguard/server/internal/config"
	"github.com/signalguard/signalguard/server/internal/source"
)

var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func frameWith(services map[string]types.ServiceAnomaly) source.Frame {
	f := source.Frame{
		Summary: types.Summary{Services: map[string]types.ServiceStats{}},
		Report:  types.AnomalyReport{Services: services},
	}
	for name, a := range services {
		f.Summary.Services[name] = types.ServiceStats{Requests: 1000, Errors: int64(a.ErrorRate * 1000), ErrorRate: a.ErrorRate}
	}
	return f
}

func anom(rate float64) types.ServiceAnomaly {
	flag := 0
	if rate > 0.2 {
		flag = 1
	}
	return types.ServiceAnomaly{Flag: flag, Score: rate / 0.2, ErrorRate: rate}
}

func newEngine(t *testing.T, rules ...config.AlertRule) (*Engine, *time.Time) {
	t.Helper()
	e := New(config.AlertsConfig{Rules: rules})
	now := baseTime
	e.now = func() time.Time { return now }
	return e, &now
}

// --- firing and resolving ---------------------------------------------------

func TestEvaluate_FiresPerService(t *testing.T) {
	e, _ := newEngine(t, config.AlertRule{Name: "high", Condition: "error_rate > 0.2", Severity: "critical"})
	e.Evaluate(frameWith(map[string]types.ServiceAnomaly{"orders": anom(0.05), "payments": anom(0.3)}))

	got := e.Active()
	if len(got) != 1 {
		t.Fatalf("Active: got %d alerts, want 1", len(got))
	}
	a := got[0]
	if a.Service != "payments" || a.State != StateFiring || a.Severity != "critical" || a.Value != 0.3 {
		t.Errorf("alert: got %+v", a)
	}
	if len(a.ID) != 36 {
		t.Errorf("ID %q is not a uuid", a.ID)
	}
	if !strings.Contains(a.Message, "payments") {
		t.Errorf("message: %q", a.Message)
	}
}

func TestEvaluate_ResolvesWhenConditionClears(t *testing.T) {
	e, now := newEngine(t, config.AlertRule{Name: "high", Condition: "flag == 1"})
	e.Evaluate(frameWith(map[string]types.ServiceAnomaly{"payments": anom(0.3)}))

	*now = baseTime.Add(time.Minute)
	e.Evaluate(frameWith(map[string]types.ServiceAnomaly{"payments": anom(0.1)}))

	if e.FiringCount() != 0 {
		t.Errorf("FiringCount: got %d, want 0", e.FiringCount())
	}
	got := e.Active()
	if len(got) != 1 || got[0].State != StateResolved || got[0].ResolvedAt == nil {
		t.Fatalf("Active: got %+v, want one resolved alert", got)
	}
	if got[0].Severity != "warning" {
		t.Errorf("default severity: got %q", got[0].Severity)
	}
}

func TestEvaluate_Cooldown(t *testing.T) {
	e, now := newEngine(t, config.AlertRule{Name: "high", Condition: "flag == 1", Cooldown: 10 * time.Minute})
	hot := frameWith(map[string]types.ServiceAnomaly{"orders": anom(0.3)})
	cold := frameWith(map[string]types.ServiceAnomaly{"orders": anom(0.01)})

	e.Evaluate(hot)
	*now = baseTime.Add(time.Minute)
	e.Evaluate(cold)
	*now = baseTime.Add(2 * time.Minute)
	e.Evaluate(hot)
	if e.FiringCount() != 0 {
		t.Fatal("re-fired inside cooldown")
	}

	*now = baseTime.Add(11 * time.Minute)
	e.Evaluate(hot)
	if e.FiringCount() != 1 {
		t.Fatal("did not re-fire after cooldown")
	}
}

func TestEvaluate_StillFiringDoesNotDuplicate(t *testing.T) {
	e, now := newEngine(t, config.AlertRule{Name: "high", Condition: "score >= 2", Cooldown: time.Second})
	hot := frameWith(map[string]types.ServiceAnomaly{"orders": anom(0.5)})
	e.Evaluate(hot)
	first := e.Active()[0].ID

	*now = baseTime.Add(time.Hour)
	e.Evaluate(hot)
	got := e.Active()
	if len(got) != 1 || got[0].ID != first {
		t.Errorf("Active: got %+v, want the original alert only", got)
	}
}

func TestEvaluate_UnavailableFrameSkipped(t *testing.T) {
	e, _ := newEngine(t, config.AlertRule{Name: "high", Condition: "flag == 1"})
	e.Evaluate(frameWith(map[string]types.ServiceAnomaly{"orders": anom(0.3)}))

	f := source.Frame{AnomalyErr: source.ErrAnomaliesUnavailable}
	e.Evaluate(f)
	if e.FiringCount() != 1 {
		t.Error("unavailable frame resolved a firing alert")
	}
}

func TestConfigure_RemovedRuleResolves(t *testing.T) {
	e, _ := newEngine(t, config.AlertRule{Name: "high", Condition: "flag == 1"})
	hot := frameWith(map[string]types.ServiceAnomaly{"orders": anom(0.3)})
	e.Evaluate(hot)

	e.Configure(config.AlertsConfig{})
	e.Evaluate(hot)
	if e.FiringCount() != 0 {
		t.Error("alert for removed rule still firing")
	}
}

func TestNew_DropsInvalidRules(t *testing.T) {
	e := New(config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "ok", Condition: "flag == 1"},
		{Name: "bad", Condition: "drop_pct > 10"},
	}})
	if len(e.rules) != 1 || e.rules[0].Name != "ok" {
		t.Errorf("rules: got %+v", e.rules)
	}
}

func TestActive_HistoryBoundedAndRecent(t *testing.T) {
	e, now := newEngine(t, config.AlertRule{Name: "r", Condition: "flag == 1", Cooldown: time.Nanosecond})
	for i := 0; i < maxHistoryLen+20; i++ {
		*now = baseTime.Add(time.Duration(i) * time.Second)
		e.Evaluate(frameWith(map[string]types.ServiceAnomaly{"orders": anom(0.3)}))
		e.Evaluate(frameWith(map[string]types.ServiceAnomaly{"orders": anom(0.1)}))
	}
	if len(e.history) != maxHistoryLen {
		t.Errorf("history: got %d, want %d", len(e.history), maxHistoryLen)
	}
	got := e.Active()
	if len(got) != maxHistoryLen {
		t.Fatalf("Active: got %d", len(got))
	}
	if !got[0].latest().After(got[len(got)-1].latest()) {
		t.Error("Active not sorted newest first")
	}

	*now = baseTime.Add(2 * time.Hour)
	if n := len(e.Active()); n != 0 {
		t.Errorf("Active after 2h: got %d, want 0", n)
	}
}

// --- webhooks ---------------------------------------------------------------

func TestWebhooks_Delivered(t *testing.T) {
	var mu sync.Mutex
	bodies := map[string][]byte{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies[r.URL.Path] = b
		mu.Unlock()
	}))
	defer srv.Close()

	t.Setenv("SLACK_URL", srv.URL+"/slack")
	t.Setenv("TEAMS_URL", srv.URL+"/teams")
	t.Setenv("HOOK_URL", srv.URL+"/http")

	e := New(config.AlertsConfig{
		Rules: []config.AlertRule{{Name: "incident", Condition: "tier == incident", Severity: "critical"}},
		Webhooks: []config.WebhookConfig{
			{Type: "slack", URLEnv: "SLACK_URL"},
			{Type: "teams", URLEnv: "TEAMS_URL"},
			{Type: "http", URLEnv: "HOOK_URL"},
			{Type: "http", URLEnv: "UNSET_URL"},
		},
	})
	e.Evaluate(frameWith(map[string]types.ServiceAnomaly{"payments": anom(0.5)}))
	e.Wait()

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(string(bodies["/slack"]), "[CRITICAL]") {
		t.Errorf("slack body: %s", bodies["/slack"])
	}
	var teams map[string]interface{}
	if err := json.Unmarshal(bodies["/teams"], &teams); err != nil || teams["themeColor"] != "FF4F6A" {
		t.Errorf("teams body: %s", bodies["/teams"])
	}
	var generic struct{ Alert Alert }
	if err := json.Unmarshal(bodies["/http"], &generic); err != nil || generic.Alert.Service != "payments" {
		t.Errorf("http body: %s", bodies["/http"])
	}
}

func TestPost_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	e := New(config.AlertsConfig{})
	err := e.post(srv.URL, []byte(`{}`))
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("post: got %v, want HTTP 502 error", err)
	}
	if errors.Unwrap(err) != nil {
		t.Errorf("status error should not wrap: %v", err)
	}
}
