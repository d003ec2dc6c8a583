// Package compute turns scraped summaries into anomaly reports.
//
// Engine.Process scrapes the configured source, scores the Summary with a
// pkg/anomaly Scorer, hands the pair to an Observer (the Prometheus exporter)
// and keeps it as the latest result for the HTTP API. The scorer can be
// swapped at runtime when the threshold is hot-reloaded. Engine also tracks
// the success of the last 20 scrapes as an uptime percentage.
package compute
