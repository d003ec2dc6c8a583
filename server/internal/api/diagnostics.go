package api

import (
	"fmt"

	"github.com/signalguard/signalguard/pkg/status"
	"github.com/signalguard/signalguard/pkg/types"
)

// DiagnosticHint is one human-readable insight about a service. The UI shows
// these as chips on the service card; clicking one reveals Detail.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical".
	Level  string   `json:"level"`
	Title  string   `json:"title"`
	Detail string   `json:"detail"`
	Value  *float64 `json:"value,omitempty"`
}

// computeHints derives hints for one service card, most severe first.
func computeHints(stats types.ServiceStats, a types.ServiceAnomaly, available, warming bool) []DiagnosticHint {
	var hints []DiagnosticHint

	if !available {
		hints = append(hints, DiagnosticHint{
			Key:   "anomalies_unavailable",
			Level: "warning",
			Title: "No anomaly verdict",
			Detail: "The anomaly endpoint did not answer for the last poll. " +
				"Traffic counters are still current but badges are withheld until it recovers.",
		})
		return hints
	}

	if stats.Requests == 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "no_traffic",
			Level:  "info",
			Title:  "No traffic yet",
			Detail: "No requests have been counted for this service, so its error rate is reported as 0.",
		})
		return hints
	}

	rate := a.ErrorRate
	score := a.Score
	pct := rate * 100

	switch tier := status.Badge(a.Flag, a.Score); tier {
	case status.TierIncident:
		hints = append(hints, DiagnosticHint{
			Key:   "error_rate",
			Level: "critical",
			Title: fmt.Sprintf("%.1f%% errors", pct),
			Detail: fmt.Sprintf(
				"Errors are at %.1f%% of requests, %.1fx the anomaly threshold. "+
					"This matches an incident window rather than ordinary jitter.",
				pct, score),
			Value: &rate,
		})
	case status.TierDegraded:
		hints = append(hints, DiagnosticHint{
			Key:   "error_rate",
			Level: "warning",
			Title: fmt.Sprintf("%.1f%% errors", pct),
			Detail: fmt.Sprintf(
				"Errors are at %.1f%% of requests, above the anomaly threshold (score %.2f). "+
					"Watch whether it keeps climbing toward twice the threshold.",
				pct, score),
			Value: &rate,
		})
	case status.TierWatch:
		hints = append(hints, DiagnosticHint{
			Key:   "approaching_threshold",
			Level: "info",
			Title: "Approaching threshold",
			Detail: fmt.Sprintf(
				"The error rate is at %.0f%% of the anomaly threshold. No flag has been raised yet.",
				score*100),
			Value: &score,
		})
	}

	if warming {
		hints = append(hints, DiagnosticHint{
			Key:   "warming_up",
			Level: "info",
			Title: "Warming up",
			Detail: "Too few requests have been observed overall for the rates to be stable. " +
				"Early readings can swing widely.",
		})
	}

	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "healthy",
			Level:  "ok",
			Title:  "All clear",
			Detail: fmt.Sprintf("Errors are at %.1f%% of requests, well under the anomaly threshold.", pct),
			Value:  &rate,
		})
	}
	return hints
}
