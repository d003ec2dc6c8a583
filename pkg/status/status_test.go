package status

import "testing"

func mustClassifier(t *testing.T, warmup int64) *Classifier {
	t.Helper()
	c, err := NewClassifier(warmup)
	if err != nil {
		t.Fatalf("NewClassifier(%d) error = %v", warmup, err)
	}
	return c
}

func TestCaption(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		rate  float64
		want  Caption
	}{
		{"warm-up wins over high rate", 120, 0.5, CaptionWarmingUp},
		{"warm-up boundary is exclusive", 300, 0.01, CaptionHealthy},
		{"healthy", 1000, 0.049, CaptionHealthy},
		{"mild at 0.05", 1000, 0.05, CaptionMild},
		{"mild just below 0.15", 1000, 0.1499, CaptionMild},
		{"incident at 0.15", 1000, 0.15, CaptionIncident},
		{"incident high", 1000, 0.6, CaptionIncident},
	}
	c := mustClassifier(t, 300)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Caption(tc.total, tc.rate); got != tc.want {
				t.Errorf("Caption(%d, %v) = %q, want %q", tc.total, tc.rate, got, tc.want)
			}
		})
	}
}

// Scenario D: the same traffic under the two deployment warm-ups.
func TestCaption_WarmupDependsOnMode(t *testing.T) {
	sim := mustClassifier(t, DefaultWarmupSimulated)
	remote := mustClassifier(t, DefaultWarmupRemote)

	if got := sim.Caption(120, 0.01); got != CaptionWarmingUp {
		t.Errorf("simulated Caption = %q, want warming up", got)
	}
	if got := remote.Caption(120, 0.01); got != CaptionHealthy {
		t.Errorf("remote Caption = %q, want healthy", got)
	}
}

func TestBadge(t *testing.T) {
	tests := []struct {
		flag  int
		score float64
		want  Tier
	}{
		{0, 0, TierHealthy},
		{0, 0.4, TierHealthy},
		{0, 0.5, TierWatch},
		{0, 1.0, TierWatch},
		{1, 1.25, TierDegraded},
		{1, 1.999, TierDegraded},
		{1, 2.0, TierIncident},
		{1, 2.5, TierIncident},
		{7, 0.1, TierDegraded},
		{-1, 3, TierIncident},
	}
	for _, tc := range tests {
		if got := Badge(tc.flag, tc.score); got != tc.want {
			t.Errorf("Badge(%d, %v) = %q, want %q", tc.flag, tc.score, got, tc.want)
		}
	}
}

func TestBadge_Total(t *testing.T) {
	for _, flag := range []int{0, 1} {
		for score := 0.0; score < 4; score += 0.05 {
			if got := Badge(flag, score); got.Severity() < 0 {
				t.Fatalf("Badge(%d, %v) = %q, not a known tier", flag, score, got)
			}
		}
	}
}

func TestCaption_Message(t *testing.T) {
	want := map[Caption]string{
		CaptionWarmingUp: "System is warming up",
		CaptionHealthy:   "System is healthy",
		CaptionMild:      "Mild degradation detected",
		CaptionIncident:  "Incident likely ongoing",
	}
	for c, msg := range want {
		if got := c.Message(); got != msg {
			t.Errorf("%q.Message() = %q, want %q", c, got, msg)
		}
	}
}

func TestTier_ClassAndLabel(t *testing.T) {
	tests := []struct {
		tier  Tier
		class string
		label string
	}{
		{TierHealthy, "badge-ok", "Healthy"},
		{TierWatch, "badge-warn", "Watch"},
		{TierDegraded, "badge-warn", "Degraded"},
		{TierIncident, "badge-danger", "Incident"},
	}
	for _, tc := range tests {
		if got := tc.tier.Class(); got != tc.class {
			t.Errorf("%q.Class() = %q, want %q", tc.tier, got, tc.class)
		}
		if got := tc.tier.Label(); got != tc.label {
			t.Errorf("%q.Label() = %q, want %q", tc.tier, got, tc.label)
		}
	}
}

func TestDetail(t *testing.T) {
	if got := Detail(0); got != "No anomalies detected in recent error rates." {
		t.Errorf("Detail(0) = %q", got)
	}
	if got := Detail(1); got != "Error rate significantly above normal baseline." {
		t.Errorf("Detail(1) = %q", got)
	}
}

func TestNewClassifier_NegativeWarmup(t *testing.T) {
	if _, err := NewClassifier(-1); err == nil {
		t.Error("NewClassifier(-1) error = nil, want error")
	}
}
