// Package config loads the signalguard-server configuration.
//
// Load(path) applies defaults (port 8080, 5s poll and broadcast, 21 history
// points, simulated mode with the orders/payments simulator), then fills the
// mode-dependent presentation defaults: simulated mode warms up until 300
// requests with a 0.7 error-chart ceiling, remote mode until 100 with 1.0.
// Explicit dashboard.warmup_threshold and dashboard.error_chart_max win.
//
// Watch(ctx, path, onChange) reloads the file on change. The server applies
// alert rules and the simulated-mode threshold from reloads.
package config
