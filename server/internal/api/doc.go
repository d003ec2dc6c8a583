// Package api implements the HTTP REST API for signalguard-server.
//
// New(store, classifier, options, alerts) returns a Handler that serves:
//
//	GET /api/v1/health     overall caption, per-tier service counts
//	GET /api/v1/summary    latest Summary; 404 before the first frame
//	GET /api/v1/anomalies  latest AnomalyReport; 503 while unavailable
//	GET /api/v1/view       everything the dashboard renders in one document
//	GET /api/v1/history    rolling chart points, oldest first
//	GET /api/v1/alerts     firing alerts plus those resolved in the last hour
//
// All endpoints respond with Content-Type: application/json and return 405
// for non-GET methods. JSON keys are camelCase to match the Summary and
// AnomalyReport documents the agent produces.
//
// BuildView is exported so the WebSocket hub streams the same document that
// /api/v1/view returns.
package api
