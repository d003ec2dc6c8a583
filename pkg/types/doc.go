// Package types defines the data contracts shared by the agent and the server:
// the cumulative traffic Summary and the per-service AnomalyReport derived
// from it. Both marshal to the camelCase JSON shape the dashboard renderer
// reads, and both are treated as immutable once handed to another goroutine.
package types
