// Package auth provides HTTP authentication middleware for the SignalGuard
// dashboard server.
//
// APIKey(mode, header, key) wraps a handler and compares the named request
// header against key using a constant-time comparison. When mode != "apikey"
// or key == "", every request passes through, which keeps local development
// with auth disabled simple. Rejected requests get a 401 JSON body.
package auth
