// Package simulator fabricates bursty, incident-prone traffic for the
// tracked services.
//
// config.go holds the per-service knobs (baseline error rate, load range,
// incident period and phase) plus the global noise parameters, and validates
// them in New so a bad deployment fails at startup.
//
// simulator.go provides the stateful Simulator. Each Tick draws a request
// delta, an incident multiplier and a noisy error rate per service, folds the
// deltas into cumulative counters, and returns a cumulative types.Summary.
// Randomness comes from an injected Rand so a fixed seed reproduces the same
// sequence of incidents.
//
// A Simulator is not safe for concurrent use; the caller drives one tick at a
// time.
package simulator
