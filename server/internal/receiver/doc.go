// Package receiver turns polls into stored frames.
//
// Receiver.Receive is scheduled by the server every poll_interval. Each call
// fetches one source.Frame (local simulation or remote agent), rejects frames
// with negative counters or empty service names (ErrInvalidFrame), stores the
// frame and passes it to the alert evaluator. A failed fetch is logged and
// skipped so a flapping agent never stops the loop.
package receiver
