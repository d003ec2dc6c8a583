package receiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/signalguard/signalguard/server/internal/source"
	"github.com/signalguard/signalguard/server/internal/store"
)

// ErrInvalidFrame is returned for frames whose counters are inconsistent.
var ErrInvalidFrame = errors.New("receiver: invalid frame")

// Evaluator consumes every accepted frame. *alerts.Engine implements it.
type Evaluator interface {
	Evaluate(f source.Frame)
}

// Receiver pulls one frame per poll from a Source, validates it, stores it
// and hands it to the alert evaluator.
type Receiver struct {
	src   source.Source
	store *store.Store
	eval  Evaluator // may be nil
}

// New creates a Receiver that writes accepted frames to st. eval may be nil.
func New(src source.Source, st *store.Store, eval Evaluator) *Receiver {
	return &Receiver{src: src, store: st, eval: eval}
}

// Receive is the poll callback run by the scheduler. Failures are logged and
// the frame is skipped; the previous frame stays current until its TTL.
func (r *Receiver) Receive(ctx context.Context) {
	if err := r.Poll(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("receiver: poll failed, skipping frame", "err", err)
	}
}

// Poll fetches, validates and stores exactly one frame.
func (r *Receiver) Poll(ctx context.Context) error {
	f, err := r.src.Fetch(ctx)
	if err != nil {
		return err
	}
	if err := validate(f); err != nil {
		return err
	}

	r.store.Put(f)
	if !f.Available() {
		slog.Warn("receiver: anomalies unavailable", "err", f.AnomalyErr)
	}
	if r.eval != nil {
		r.eval.Evaluate(f)
	}

	slog.Debug("receiver: frame stored",
		"total_requests", f.Summary.TotalRequests,
		"error_rate", f.Summary.ErrorRate,
		"services", len(f.Summary.Services),
		"anomalies", f.Available(),
	)
	return nil
}

func validate(f source.Frame) error {
	s := f.Summary
	if s.TotalRequests < 0 || s.TotalErrors < 0 {
		return fmt.Errorf("%w: negative totals", ErrInvalidFrame)
	}
	for name, st := range s.Services {
		if name == "" {
			return fmt.Errorf("%w: empty service name", ErrInvalidFrame)
		}
		if st.Requests < 0 || st.Errors < 0 {
			return fmt.Errorf("%w: negative counters for %q", ErrInvalidFrame, name)
		}
	}
	return nil
}
