// Package config loads and watches the agent configuration file.
//
// Load(path) reads the YAML file, applies defaults (5s tick, port 8000,
// simulated source with the orders/payments simulator, threshold 0.2), then
// validates the source type, simulator parameters and auth mode.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. The agent uses it to swap the
// anomaly threshold without a restart.
package config
