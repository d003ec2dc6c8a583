// Package source produces dashboard frames: a Summary together with the
// AnomalyReport derived from it.
//
// Local drives a simulator and scorer in-process. Remote pulls both documents
// from an agent over HTTP. When the anomaly side cannot answer, the frame still
// carries the Summary and its AnomalyErr wraps ErrAnomaliesUnavailable.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/signalguard/signalguard/pkg/types"
)

// ErrAnomaliesUnavailable marks a frame whose anomaly report could not be
// obtained.
var ErrAnomaliesUnavailable = errors.New("anomaly service unavailable")

// Frame is one poll result.
type Frame struct {
	Summary types.Summary

	// Report is meaningful only when AnomalyErr is nil.
	Report types.AnomalyReport

	// AnomalyErr is non-nil when the anomaly report is missing. It always
	// matches ErrAnomaliesUnavailable under errors.Is.
	AnomalyErr error

	ReceivedAt time.Time
}

// Available reports whether the frame carries an anomaly report.
func (f Frame) Available() bool {
	return f.AnomalyErr == nil
}

// Clone deep-copies the frame for publication to another goroutine.
func (f Frame) Clone() Frame {
	out := f
	out.Summary = f.Summary.Clone()
	out.Report = f.Report.Clone()
	return out
}

// Source yields the next frame. An error means no frame this poll.
type Source interface {
	Fetch(ctx context.Context) (Frame, error)
}
