package simulator

import (
	"errors"
	"fmt"
)

// Default global parameters.
const (
	DefaultJitterProbability = 0.15
	DefaultMaxErrorRate      = 0.6
)

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// LoadRange is the closed integer interval a per-tick request count is drawn from.
type LoadRange struct {
	Min int64 `yaml:"min"`
	Max int64 `yaml:"max"`
}

// ServiceConfig describes one simulated service.
type ServiceConfig struct {
	// Name is the service key used in Summary.Services.
	Name string `yaml:"name"`

	// BaselineErrorRate is the error rate outside incidents, in [0,1].
	BaselineErrorRate float64 `yaml:"baseline_error_rate"`

	// Load is the range each tick's request delta is drawn from.
	Load LoadRange `yaml:"load"`

	// Period is the incident cadence in ticks. Must be positive.
	Period int64 `yaml:"period"`

	// Phase offsets the incident window: a tick is a spike when
	// (tick + Phase) % Period == 0.
	Phase int64 `yaml:"phase"`
}

// Config is the full simulator configuration.
type Config struct {
	Services []ServiceConfig `yaml:"services"`

	// JitterProbability is the chance a non-spike tick gets a jitter multiplier.
	JitterProbability float64 `yaml:"jitter_probability"`

	// SpikeMultiplier is the multiplier range inside an incident window.
	SpikeMultiplier Range `yaml:"spike_multiplier"`

	// JitterMultiplier is the multiplier range for random jitter.
	JitterMultiplier Range `yaml:"jitter_multiplier"`

	// Noise is the range of the per-tick noise factor applied to every rate.
	Noise Range `yaml:"noise"`

	// MaxErrorRate clips fabricated error rates to [0, MaxErrorRate].
	MaxErrorRate float64 `yaml:"max_error_rate"`
}

// DefaultConfig returns the two-service setup: orders and payments with
// decorrelated incident cadences.
func DefaultConfig() Config {
	return Config{
		Services: []ServiceConfig{
			{
				Name:              "orders",
				BaselineErrorRate: 0.04,
				Load:              LoadRange{Min: 40, Max: 60},
				Period:            14,
				Phase:             0,
			},
			{
				Name:              "payments",
				BaselineErrorRate: 0.08,
				Load:              LoadRange{Min: 25, Max: 40},
				Period:            18,
				Phase:             4,
			},
		},
		JitterProbability: DefaultJitterProbability,
		SpikeMultiplier:   Range{Min: 5.0, Max: 7.0},
		JitterMultiplier:  Range{Min: 1.5, Max: 2.5},
		Noise:             Range{Min: 0.8, Max: 1.2},
		MaxErrorRate:      DefaultMaxErrorRate,
	}
}

// Validate checks structural constraints on the configuration.
func (c Config) Validate() error {
	if len(c.Services) == 0 {
		return errors.New("at least one service is required")
	}
	seen := make(map[string]struct{}, len(c.Services))
	for i, svc := range c.Services {
		if svc.Name == "" {
			return fmt.Errorf("services[%d]: name is required", i)
		}
		if _, dup := seen[svc.Name]; dup {
			return fmt.Errorf("services[%d]: duplicate name %q", i, svc.Name)
		}
		seen[svc.Name] = struct{}{}
		if svc.Period <= 0 {
			return fmt.Errorf("service %q: period must be positive, got %d", svc.Name, svc.Period)
		}
		if svc.Phase < 0 {
			return fmt.Errorf("service %q: phase must not be negative, got %d", svc.Name, svc.Phase)
		}
		if svc.Load.Min < 0 || svc.Load.Max < svc.Load.Min {
			return fmt.Errorf("service %q: load range [%d, %d] is invalid", svc.Name, svc.Load.Min, svc.Load.Max)
		}
		if svc.BaselineErrorRate < 0 || svc.BaselineErrorRate > 1 {
			return fmt.Errorf("service %q: baseline_error_rate %v outside [0, 1]", svc.Name, svc.BaselineErrorRate)
		}
	}
	if c.JitterProbability < 0 || c.JitterProbability > 1 {
		return fmt.Errorf("jitter_probability %v outside [0, 1]", c.JitterProbability)
	}
	if c.MaxErrorRate <= 0 || c.MaxErrorRate > 1 {
		return fmt.Errorf("max_error_rate %v outside (0, 1]", c.MaxErrorRate)
	}
	for name, r := range map[string]Range{
		"spike_multiplier":  c.SpikeMultiplier,
		"jitter_multiplier": c.JitterMultiplier,
		"noise":             c.Noise,
	} {
		if r.Min < 0 || r.Max < r.Min {
			return fmt.Errorf("%s range [%v, %v] is invalid", name, r.Min, r.Max)
		}
	}
	return nil
}
