package simulator

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/signalguard/signalguard/pkg/types"
)

// Rand is the randomness source the simulator draws from.
// *rand.Rand satisfies it.
type Rand interface {
	// Float64 returns a pseudo-random number in [0, 1).
	Float64() float64
}

// NewRand returns a Rand seeded with seed.
func NewRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed)) //nolint:gosec // synthetic traffic, not crypto
}

// serviceState holds the cumulative counters for one service.
type serviceState struct {
	cfg      ServiceConfig
	requests int64
	errors   int64
}

// delta is one tick's contribution for a single service.
type delta struct {
	requests   int64
	errors     int64
	multiplier float64
	errorRate  float64
}

// Simulator owns per-service cumulative counters and produces one Summary per
// Tick.
type Simulator struct {
	cfg      Config
	rnd      Rand
	tick     int64
	services []*serviceState // configured order
	total    struct{ requests, errors int64 }
}

// New validates cfg and returns a Simulator with zeroed counters.
func New(cfg Config, rnd Rand) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}
	if rnd == nil {
		return nil, fmt.Errorf("simulator: rand source is required")
	}
	s := &Simulator{cfg: cfg, rnd: rnd}
	for _, svc := range cfg.Services {
		s.services = append(s.services, &serviceState{cfg: svc})
	}
	return s, nil
}

// Ticks returns how many ticks have been processed.
func (s *Simulator) Ticks() int64 {
	return s.tick
}

// Tick advances the simulation by one step and returns the cumulative Summary.
func (s *Simulator) Tick() types.Summary {
	s.tick++

	out := types.Summary{Services: make(map[string]types.ServiceStats, len(s.services))}
	for _, st := range s.services {
		d := s.step(st)
		st.requests += d.requests
		st.errors += d.errors
		s.total.requests += d.requests
		s.total.errors += d.errors

		out.Services[st.cfg.Name] = types.ServiceStats{
			Requests:  st.requests,
			Errors:    st.errors,
			ErrorRate: types.Rate(st.errors, st.requests),
		}
	}

	out.TotalRequests = s.total.requests
	out.TotalErrors = s.total.errors
	out.ErrorRate = types.Rate(s.total.errors, s.total.requests)
	return out
}

// step draws one tick's deltas for st without touching its counters.
func (s *Simulator) step(st *serviceState) delta {
	requests := s.load(st.cfg.Load)
	mult := s.multiplier(st.cfg, s.tick)
	rate := s.errorRate(st.cfg.BaselineErrorRate, mult)
	return delta{
		requests:   requests,
		errors:     int64(math.Round(float64(requests) * rate)),
		multiplier: mult,
		errorRate:  rate,
	}
}

// load draws a request count uniformly from the closed range r.
func (s *Simulator) load(r LoadRange) int64 {
	span := r.Max - r.Min + 1
	n := r.Min + int64(s.rnd.Float64()*float64(span))
	if n > r.Max {
		n = r.Max
	}
	return n
}

// multiplier returns the incident multiplier for svc at tick.
func (s *Simulator) multiplier(svc ServiceConfig, tick int64) float64 {
	if inSpikeWindow(svc, tick) {
		return s.uniform(s.cfg.SpikeMultiplier)
	}
	if s.rnd.Float64() < s.cfg.JitterProbability {
		return s.uniform(s.cfg.JitterMultiplier)
	}
	return 1.0
}

// errorRate applies noise to baseline*mult and clips to [0, MaxErrorRate].
func (s *Simulator) errorRate(baseline, mult float64) float64 {
	noisy := baseline * mult * s.uniform(s.cfg.Noise)
	return math.Min(s.cfg.MaxErrorRate, math.Max(0, noisy))
}

func (s *Simulator) uniform(r Range) float64 {
	return r.Min + s.rnd.Float64()*(r.Max-r.Min)
}

// inSpikeWindow reports whether tick falls in svc's periodic incident window.
func inSpikeWindow(svc ServiceConfig, tick int64) bool {
	return (tick+svc.Phase)%svc.Period == 0
}
