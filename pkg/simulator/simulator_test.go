package simulator

import (
	"math"
	"strings"
	"testing"

	"github.com/signalguard/signalguard/pkg/types"
)

// seqRand replays a fixed sequence of draws, cycling when exhausted.
type seqRand struct {
	vals []float64
	i    int
}

func (r *seqRand) Float64() float64 {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

// oneService returns a config with a single service and default globals.
func oneService(baseline float64, load LoadRange, period, phase int64) Config {
	cfg := DefaultConfig()
	cfg.Services = []ServiceConfig{{
		Name:              "orders",
		BaselineErrorRate: baseline,
		Load:              load,
		Period:            period,
		Phase:             phase,
	}}
	return cfg
}

func mustNew(t *testing.T, cfg Config, rnd Rand) *Simulator {
	t.Helper()
	s, err := New(cfg, rnd)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

// --- Exact arithmetic with a scripted rand source ---

func TestTick_QuietTick(t *testing.T) {
	// draws: load=0.5 → 10, jitter check 0.9 → no jitter, noise 0.5 → 1.0
	s := mustNew(t, oneService(0.1, LoadRange{10, 10}, 1000, 0), &seqRand{vals: []float64{0.5, 0.9, 0.5}})

	out := s.Tick()
	got := out.Service("orders")
	if got.Requests != 10 || got.Errors != 1 {
		t.Fatalf("orders = %+v, want 10 requests / 1 error", got)
	}
	if !almostEqual(got.ErrorRate, 0.1, 1e-9) {
		t.Errorf("ErrorRate = %v, want 0.1", got.ErrorRate)
	}
	if out.TotalRequests != 10 || out.TotalErrors != 1 {
		t.Errorf("totals = %d/%d, want 10/1", out.TotalRequests, out.TotalErrors)
	}
}

func TestTick_SpikeWindow(t *testing.T) {
	// period 1 → every tick is a spike. draws: load 0.0, spike 0.5 → 6.0, noise 0.5 → 1.0
	s := mustNew(t, oneService(0.05, LoadRange{100, 100}, 1, 0), &seqRand{vals: []float64{0.0, 0.5, 0.5}})

	got := s.Tick().Service("orders")
	// rate = 0.05 * 6 * 1.0 = 0.30 → 30 errors
	if got.Errors != 30 {
		t.Errorf("Errors = %d, want 30", got.Errors)
	}
}

func TestTick_JitterTick(t *testing.T) {
	// draws: load 0.0, jitter check 0.1 (< 0.15) → jitter 0.5 → 2.0, noise 0.5 → 1.0
	s := mustNew(t, oneService(0.05, LoadRange{100, 100}, 1000, 0), &seqRand{vals: []float64{0.0, 0.1, 0.5, 0.5}})

	got := s.Tick().Service("orders")
	// rate = 0.05 * 2.0 = 0.10 → 10 errors
	if got.Errors != 10 {
		t.Errorf("Errors = %d, want 10", got.Errors)
	}
}

func TestTick_ErrorRateClipped(t *testing.T) {
	// baseline 0.5 in a spike: 0.5 * 7 * 1.2 = 4.2 → clipped to 0.6
	s := mustNew(t, oneService(0.5, LoadRange{100, 100}, 1, 0), &seqRand{vals: []float64{0.0, 0.999999, 0.999999}})

	got := s.Tick().Service("orders")
	if got.Errors != 60 {
		t.Errorf("Errors = %d, want 60 (rate clipped to 0.6)", got.Errors)
	}
}

func TestTick_ZeroLoad_NoDivisionByZero(t *testing.T) {
	s := mustNew(t, oneService(0.1, LoadRange{0, 0}, 5, 0), NewRand(1))

	out := s.Tick()
	if out.ErrorRate != 0 || out.Service("orders").ErrorRate != 0 {
		t.Errorf("zero traffic should yield zero rates, got %+v", out)
	}
	if math.IsNaN(out.ErrorRate) {
		t.Error("ErrorRate is NaN")
	}
}

func TestLoad_StaysInRange(t *testing.T) {
	s := mustNew(t, DefaultConfig(), NewRand(7))
	r := LoadRange{Min: 25, Max: 40}
	seenMin, seenMax := false, false
	for i := 0; i < 5000; i++ {
		n := s.load(r)
		if n < r.Min || n > r.Max {
			t.Fatalf("load() = %d outside [%d, %d]", n, r.Min, r.Max)
		}
		seenMin = seenMin || n == r.Min
		seenMax = seenMax || n == r.Max
	}
	if !seenMin || !seenMax {
		t.Errorf("load() never reached the bounds (min=%v max=%v)", seenMin, seenMax)
	}
}

// --- Invariants over many ticks ---

func TestTick_Invariants(t *testing.T) {
	s := mustNew(t, DefaultConfig(), NewRand(42))

	var prev types.Summary
	for i := 0; i < 500; i++ {
		out := s.Tick()

		if out.TotalErrors > out.TotalRequests {
			t.Fatalf("tick %d: totalErrors %d > totalRequests %d", i+1, out.TotalErrors, out.TotalRequests)
		}
		if want := float64(out.TotalErrors) / float64(out.TotalRequests); !almostEqual(out.ErrorRate, want, 1e-12) {
			t.Fatalf("tick %d: errorRate = %v, want %v", i+1, out.ErrorRate, want)
		}

		var sumReq, sumErr int64
		for name, svc := range out.Services {
			if svc.Errors > svc.Requests {
				t.Fatalf("tick %d: %s errors %d > requests %d", i+1, name, svc.Errors, svc.Requests)
			}
			if p, ok := prev.Services[name]; ok {
				if svc.Requests < p.Requests || svc.Errors < p.Errors {
					t.Fatalf("tick %d: %s counters decreased: %+v → %+v", i+1, name, p, svc)
				}
			}
			sumReq += svc.Requests
			sumErr += svc.Errors
		}
		if sumReq != out.TotalRequests || sumErr != out.TotalErrors {
			t.Fatalf("tick %d: per-service sums %d/%d != totals %d/%d",
				i+1, sumReq, sumErr, out.TotalRequests, out.TotalErrors)
		}
		prev = out
	}
	if s.Ticks() != 500 {
		t.Errorf("Ticks() = %d, want 500", s.Ticks())
	}
}

func TestTick_DeterministicForSeed(t *testing.T) {
	a := mustNew(t, DefaultConfig(), NewRand(99))
	b := mustNew(t, DefaultConfig(), NewRand(99))
	for i := 0; i < 50; i++ {
		sa, sb := a.Tick(), b.Tick()
		if sa.TotalRequests != sb.TotalRequests || sa.TotalErrors != sb.TotalErrors {
			t.Fatalf("tick %d diverged: %+v vs %+v", i+1, sa, sb)
		}
	}
}

func TestTick_IndependentInstances(t *testing.T) {
	a := mustNew(t, DefaultConfig(), NewRand(1))
	b := mustNew(t, DefaultConfig(), NewRand(2))
	for i := 0; i < 10; i++ {
		a.Tick()
	}
	if got := b.Tick(); got.TotalRequests > 100 {
		t.Errorf("second instance shares state: first tick total = %d", got.TotalRequests)
	}
	if b.Ticks() != 1 {
		t.Errorf("b.Ticks() = %d, want 1", b.Ticks())
	}
}

// --- Incident windows ---

func TestInSpikeWindow(t *testing.T) {
	orders := ServiceConfig{Period: 14, Phase: 0}
	payments := ServiceConfig{Period: 18, Phase: 4}
	tests := []struct {
		svc  ServiceConfig
		tick int64
		want bool
	}{
		{orders, 14, true},
		{orders, 28, true},
		{orders, 13, false},
		{payments, 14, true},
		{payments, 32, true},
		{payments, 18, false},
	}
	for _, tc := range tests {
		if got := inSpikeWindow(tc.svc, tc.tick); got != tc.want {
			t.Errorf("inSpikeWindow(period=%d phase=%d, tick=%d) = %v, want %v",
				tc.svc.Period, tc.svc.Phase, tc.tick, got, tc.want)
		}
	}
}

func TestMultiplier_SpikeRange(t *testing.T) {
	s := mustNew(t, DefaultConfig(), NewRand(3))
	svc := s.cfg.Services[0]
	for i := 0; i < 2000; i++ {
		m := s.multiplier(svc, 14)
		if m < 5.0 || m > 7.0 {
			t.Fatalf("spike multiplier %v outside [5, 7]", m)
		}
	}
}

func TestMultiplier_NonSpikeValues(t *testing.T) {
	s := mustNew(t, DefaultConfig(), NewRand(4))
	svc := s.cfg.Services[0]
	var jitters int
	const n = 10000
	for i := 0; i < n; i++ {
		m := s.multiplier(svc, 13)
		switch {
		case m == 1.0:
		case m >= 1.5 && m <= 2.5:
			jitters++
		default:
			t.Fatalf("non-spike multiplier %v is neither 1.0 nor in [1.5, 2.5]", m)
		}
	}
	// Expect roughly 15% jitter.
	if frac := float64(jitters) / n; frac < 0.12 || frac > 0.18 {
		t.Errorf("jitter fraction = %.3f, want ≈ 0.15", frac)
	}
}

func TestSpikeTick_ExceedsQuietRate(t *testing.T) {
	// The orders spike lands on tick 14. Across many seeds the fabricated
	// per-tick rate there must exceed the largest possible non-spike rate
	// (baseline * 2.5 jitter * 1.2 noise).
	cfg := DefaultConfig()
	baseline := cfg.Services[0].BaselineErrorRate
	quietMax := baseline * cfg.JitterMultiplier.Max * cfg.Noise.Max

	for seed := int64(1); seed <= 500; seed++ {
		s := mustNew(t, cfg, NewRand(seed))
		var before types.Summary
		for i := 0; i < 13; i++ {
			before = s.Tick()
		}
		after := s.Tick()

		req := after.Service("orders").Requests - before.Service("orders").Requests
		errs := after.Service("orders").Errors - before.Service("orders").Errors
		rate := float64(errs) / float64(req)
		if rate <= quietMax {
			t.Fatalf("seed %d: spike tick rate %.4f not above quiet max %.4f", seed, rate, quietMax)
		}
	}
}

// --- Configuration ---

func TestNew_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no services", func(c *Config) { c.Services = nil }, "at least one service"},
		{"zero period", func(c *Config) { c.Services[0].Period = 0 }, "period must be positive"},
		{"negative period", func(c *Config) { c.Services[0].Period = -3 }, "period must be positive"},
		{"negative phase", func(c *Config) { c.Services[0].Phase = -1 }, "phase"},
		{"inverted load", func(c *Config) { c.Services[0].Load = LoadRange{60, 40} }, "load range"},
		{"negative load", func(c *Config) { c.Services[0].Load = LoadRange{-1, 4} }, "load range"},
		{"baseline above one", func(c *Config) { c.Services[0].BaselineErrorRate = 1.5 }, "baseline_error_rate"},
		{"empty name", func(c *Config) { c.Services[0].Name = "" }, "name is required"},
		{"duplicate name", func(c *Config) { c.Services[1].Name = c.Services[0].Name }, "duplicate"},
		{"jitter probability", func(c *Config) { c.JitterProbability = 2 }, "jitter_probability"},
		{"clip ceiling zero", func(c *Config) { c.MaxErrorRate = 0 }, "max_error_rate"},
		{"inverted spike", func(c *Config) { c.SpikeMultiplier = Range{7, 5} }, "spike_multiplier"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			_, err := New(cfg, NewRand(1))
			if err == nil {
				t.Fatal("New() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestNew_RequiresRand(t *testing.T) {
	if _, err := New(DefaultConfig(), nil); err == nil {
		t.Fatal("New() with nil rand: error = nil, want error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}
