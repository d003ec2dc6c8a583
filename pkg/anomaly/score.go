package anomaly

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/signalguard/signalguard/pkg/types"
)

// DefaultThreshold is the error rate above which a service is flagged.
const DefaultThreshold = 0.20

// Scorer derives an AnomalyReport from a Summary.
// A Scorer is immutable after construction and safe for concurrent use.
type Scorer struct {
	threshold float64
	expected  []string
	now       func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithServices lists services the deployment expects. An expected service
// missing from a Summary is reported zero-valued instead of being omitted.
func WithServices(names ...string) Option {
	return func(s *Scorer) {
		s.expected = append([]string(nil), names...)
	}
}

// WithClock overrides the clock used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		s.now = now
	}
}

// NewScorer returns a Scorer for threshold, which must lie in (0, 1].
func NewScorer(threshold float64, opts ...Option) (*Scorer, error) {
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("anomaly: threshold %v outside (0, 1]", threshold)
	}
	s := &Scorer{threshold: threshold, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Threshold returns the configured threshold.
func (s *Scorer) Threshold() float64 {
	return s.threshold
}

// Score classifies every service in summary.
func (s *Scorer) Score(summary types.Summary) types.AnomalyReport {
	out := types.AnomalyReport{
		Services: make(map[string]types.ServiceAnomaly, len(summary.Services)+len(s.expected)),
	}
	for name, svc := range summary.Services {
		out.Services[name] = s.scoreRate(svc.ErrorRate)
	}
	for _, name := range s.expected {
		if _, ok := out.Services[name]; !ok {
			out.Services[name] = s.scoreRate(0)
		}
	}
	out.UpdatedAt = unixSeconds(s.now())
	return out
}

// Names returns the service names of r in sorted order.
func Names(r types.AnomalyReport) []string {
	names := make([]string, 0, len(r.Services))
	for name := range r.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scorer) scoreRate(rate float64) types.ServiceAnomaly {
	rate = sanitize(rate)
	var score float64
	if s.threshold > 0 {
		score = rate / s.threshold
	}
	flag := 0
	if rate > s.threshold {
		flag = 1
	}
	return types.ServiceAnomaly{Flag: flag, Score: score, ErrorRate: rate}
}

// sanitize maps negative and NaN rates from external input to 0.
func sanitize(rate float64) float64 {
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	return rate
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
