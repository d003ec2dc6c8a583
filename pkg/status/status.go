package status

import "fmt"

// Caption thresholds on the overall cumulative error rate.
const (
	HealthyRateBelow = 0.05
	MildRateBelow    = 0.15
)

// Badge thresholds on the anomaly score.
const (
	WatchScoreFrom    = 0.5
	IncidentScoreFrom = 2.0
)

// Default warm-up thresholds (total requests) per dashboard mode.
const (
	DefaultWarmupSimulated int64 = 300
	DefaultWarmupRemote    int64 = 100
)

// Caption is the global dashboard state.
type Caption string

const (
	CaptionWarmingUp Caption = "warming_up"
	CaptionHealthy   Caption = "healthy"
	CaptionMild      Caption = "mild_degradation"
	CaptionIncident  Caption = "incident"
)

// Message returns the sentence shown under the dashboard header.
func (c Caption) Message() string {
	switch c {
	case CaptionWarmingUp:
		return "System is warming up"
	case CaptionHealthy:
		return "System is healthy"
	case CaptionMild:
		return "Mild degradation detected"
	case CaptionIncident:
		return "Incident likely ongoing"
	default:
		return ""
	}
}

// Tier is the per-service badge severity.
type Tier string

const (
	TierHealthy  Tier = "healthy"
	TierWatch    Tier = "watch"
	TierDegraded Tier = "degraded"
	TierIncident Tier = "incident"
)

// Tiers lists every tier from least to most severe.
var Tiers = []Tier{TierHealthy, TierWatch, TierDegraded, TierIncident}

// Label returns the badge text.
func (t Tier) Label() string {
	switch t {
	case TierHealthy:
		return "Healthy"
	case TierWatch:
		return "Watch"
	case TierDegraded:
		return "Degraded"
	case TierIncident:
		return "Incident"
	default:
		return ""
	}
}

// Class returns the CSS class of the badge.
func (t Tier) Class() string {
	switch t {
	case TierHealthy:
		return "badge-ok"
	case TierWatch, TierDegraded:
		return "badge-warn"
	case TierIncident:
		return "badge-danger"
	default:
		return ""
	}
}

// Severity orders tiers: 0 for healthy up to 3 for incident, -1 if unknown.
func (t Tier) Severity() int {
	for i, tt := range Tiers {
		if tt == t {
			return i
		}
	}
	return -1
}

// Detail returns the card body text for a service flag.
func Detail(flag int) string {
	if flag != 0 {
		return "Error rate significantly above normal baseline."
	}
	return "No anomalies detected in recent error rates."
}

// Classifier computes the global caption. Only the warm-up threshold differs
// between deployments.
type Classifier struct {
	warmup int64
}

// NewClassifier returns a Classifier that reports warming up until at least
// warmup requests have been observed.
func NewClassifier(warmup int64) (*Classifier, error) {
	if warmup < 0 {
		return nil, fmt.Errorf("status: warmup threshold must be >= 0, got %d", warmup)
	}
	return &Classifier{warmup: warmup}, nil
}

// Warmup returns the configured warm-up threshold.
func (c *Classifier) Warmup() int64 {
	return c.warmup
}

// Caption maps overall traffic to a caption. Warm-up is checked first.
func (c *Classifier) Caption(totalRequests int64, errorRate float64) Caption {
	switch {
	case totalRequests < c.warmup:
		return CaptionWarmingUp
	case errorRate < HealthyRateBelow:
		return CaptionHealthy
	case errorRate < MildRateBelow:
		return CaptionMild
	default:
		return CaptionIncident
	}
}

// Badge maps a service's flag and score to a tier. Any non-zero flag counts
// as flagged.
func Badge(flag int, score float64) Tier {
	if flag == 0 {
		if score < WatchScoreFrom {
			return TierHealthy
		}
		return TierWatch
	}
	if score < IncidentScoreFrom {
		return TierDegraded
	}
	return TierIncident
}
