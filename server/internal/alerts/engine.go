package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signalguard/signalguard/pkg/anomaly"
	"github.com/signalguard/signalguard/server/internal/alerts/expr"
	"github.com/signalguard/signalguard/server/internal/config"
	"github.com/signalguard/signalguard/server/internal/source"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Service    string     `json:"service"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"`
}

// Engine evaluates alert rules against every frame, per service, and
// delivers webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	rules    []rule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: "ruleName:service"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts
	client   *http.Client
	now      func() time.Time
	wg       sync.WaitGroup
}

// rule is an AlertRule with its condition compiled.
type rule struct {
	config.AlertRule
	cond expr.Condition
}

// New creates an Engine from the server alert configuration.
// Rules with unparseable conditions are logged and dropped.
func New(cfg config.AlertsConfig) *Engine {
	e := &Engine{
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	e.Configure(cfg)
	return e
}

// Configure replaces the rules and webhooks. Firing alerts whose rule no
// longer exists resolve on the next Evaluate.
func (e *Engine) Configure(cfg config.AlertsConfig) {
	rules := make([]rule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		c, err := expr.Parse(r.Condition)
		if err != nil {
			slog.Warn("alerts: dropping rule", "rule", r.Name, "err", err)
			continue
		}
		rules = append(rules, rule{AlertRule: r, cond: c})
	}
	e.mu.Lock()
	e.rules = rules
	e.webhooks = append([]config.WebhookConfig(nil), cfg.Webhooks...)
	e.mu.Unlock()
}

// Evaluate tests all rules against every service in f. Frames without an
// anomaly report are skipped so an outage does not resolve alerts.
func (e *Engine) Evaluate(f source.Frame) {
	if !f.Available() {
		return
	}

	e.mu.Lock()
	now := e.now()
	rules := e.rules
	var fired, resolved []Alert
	seen := make(map[string]bool)

	for _, name := range anomaly.Names(f.Report) {
		s := expr.Sample{Stats: f.Summary.Service(name), Anomaly: f.Report.Services[name]}
		for _, r := range rules {
			key := r.Name + ":" + name
			seen[key] = true
			fires, value := r.cond.Eval(s)
			if fires {
				if a, ok := e.fire(r.AlertRule, name, value, key, now); ok {
					fired = append(fired, a)
				}
			} else if a, ok := e.resolve(key, now); ok {
				resolved = append(resolved, a)
			}
		}
	}
	// Resolve alerts for removed rules or services no longer reported.
	for key := range e.active {
		if !seen[key] {
			if a, ok := e.resolve(key, now); ok {
				resolved = append(resolved, a)
			}
		}
	}
	e.mu.Unlock()

	for i := range fired {
		a := fired[i]
		slog.Warn("alert fired", "rule", a.RuleName, "service", a.Service,
			"value", a.Value, "severity", a.Severity)
		e.dispatch(&a)
	}
	for i := range resolved {
		a := resolved[i]
		slog.Info("alert resolved", "rule", a.RuleName, "service", a.Service)
		e.dispatch(&a)
	}
}

// fire records a firing alert unless it is already active or cooling down.
// Callers hold e.mu.
func (e *Engine) fire(r config.AlertRule, service string, value float64, key string, now time.Time) (Alert, bool) {
	if _, active := e.active[key]; active {
		return Alert{}, false
	}
	cooldown := r.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	if last, ok := e.lastFire[key]; ok && now.Sub(last) <= cooldown {
		return Alert{}, false
	}
	sev := r.Severity
	if sev == "" {
		sev = "warning"
	}
	a := &Alert{
		ID:       uuid.NewString(),
		RuleName: r.Name,
		Service:  service,
		Severity: sev,
		Value:    value,
		Message: fmt.Sprintf("[%s] %s fired on %s: %s (value %.3f)",
			sev, r.Name, service, r.Condition, value),
		FiredAt: now,
		State:   StateFiring,
	}
	e.active[key] = a
	e.lastFire[key] = now
	return *a, true
}

// resolve moves an active alert to history. Callers hold e.mu.
func (e *Engine) resolve(key string, now time.Time) (Alert, bool) {
	a, ok := e.active[key]
	if !ok {
		return Alert{}, false
	}
	resolvedAt := now
	a.State = StateResolved
	a.ResolvedAt = &resolvedAt
	delete(e.active, key)

	e.history = append(e.history, a)
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}
	return *a, true
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].latest().After(out[j].latest())
	})
	return out
}

// FiringCount returns the number of currently firing alerts.
func (e *Engine) FiringCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// Wait blocks until in-flight webhook deliveries finish.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) dispatch(a *Alert) {
	e.mu.Lock()
	hooks := e.webhooks
	e.mu.Unlock()
	if len(hooks) == 0 {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.deliver(hooks, a)
	}()
}

func (a *Alert) latest() time.Time {
	if a.ResolvedAt != nil {
		return *a.ResolvedAt
	}
	return a.FiredAt
}
