// Package store keeps the dashboard's in-memory state: the latest frame and a
// rolling window of chart points. Nothing is persisted.
package store
