package api

import (
	"github.com/signalguard/signalguard/pkg/status"
	"github.com/signalguard/signalguard/server/internal/store"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Caption            status.Caption `json:"caption"`
	Message            string         `json:"message"`
	ServiceCount       int            `json:"serviceCount"`
	HealthyCount       int            `json:"healthyCount"`
	WatchCount         int            `json:"watchCount"`
	DegradedCount      int            `json:"degradedCount"`
	IncidentCount      int            `json:"incidentCount"`
	AnomaliesAvailable bool           `json:"anomaliesAvailable"`
	AlertCount         int            `json:"alertCount"`
	LastUpdate         string         `json:"lastUpdate,omitempty"` // RFC3339
}

// View is the renderer-ready dashboard document served by GET /api/v1/view
// and streamed over /ws/stream.
type View struct {
	Caption            status.Caption `json:"caption"`
	Message            string         `json:"message"`
	TotalRequests      int64          `json:"totalRequests"`
	TotalErrors        int64          `json:"totalErrors"`
	ErrorRate          float64        `json:"errorRate"`
	AnomaliesAvailable bool           `json:"anomaliesAvailable"`
	Services           []ServiceCard  `json:"services"`
	Chart              ChartConfig    `json:"chart"`
	History            []store.Point  `json:"history"`
	FiringAlerts       int            `json:"firingAlerts"`
	UpdatedAt          string         `json:"updatedAt,omitempty"` // RFC3339
	GeneratedAt        string         `json:"generatedAt"`         // RFC3339
}

// ServiceCard is one per-service anomaly card.
type ServiceCard struct {
	Name      string           `json:"name"`
	Requests  int64            `json:"requests"`
	Errors    int64            `json:"errors"`
	ErrorRate float64          `json:"errorRate"`
	Flag      int              `json:"flag"`
	Score     float64          `json:"score"`
	Tier      status.Tier      `json:"tier,omitempty"`
	Label     string           `json:"label"`
	Class     string           `json:"class"`
	Detail    string           `json:"detail"`
	Hints     []DiagnosticHint `json:"hints"`
}

// ChartConfig carries the chart settings that depend on the dashboard mode.
type ChartConfig struct {
	// ErrorMax is the fixed upper bound of the error-rate axis.
	ErrorMax float64  `json:"errorMax"`
	Services []string `json:"services"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
