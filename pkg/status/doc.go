// Package status maps cumulative error rates and anomaly verdicts onto the
// discrete tiers the dashboard shows: a global caption and a per-service
// badge. Everything here is a pure function of its inputs.
package status
