package source

import (
	"context"
	"sync"
	"time"

	"github.com/signalguard/signalguard/pkg/anomaly"
	"github.com/signalguard/signalguard/pkg/simulator"
)

// Local ticks a simulator and scores each Summary in-process.
type Local struct {
	mu     sync.Mutex
	sim    *simulator.Simulator
	scorer *anomaly.Scorer
	now    func() time.Time
}

// NewLocal returns a Local source seeded with seed. A zero seed uses the
// current time.
func NewLocal(cfg simulator.Config, seed int64, scorer *anomaly.Scorer) (*Local, error) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sim, err := simulator.New(cfg, simulator.NewRand(seed))
	if err != nil {
		return nil, err
	}
	return &Local{sim: sim, scorer: scorer, now: time.Now}, nil
}

// SetScorer replaces the scorer for subsequent frames.
func (l *Local) SetScorer(s *anomaly.Scorer) {
	l.mu.Lock()
	l.scorer = s
	l.mu.Unlock()
}

// Fetch advances the simulation by one tick.
func (l *Local) Fetch(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	sum := l.sim.Tick()
	return Frame{
		Summary:    sum,
		Report:     l.scorer.Score(sum),
		ReceivedAt: l.now(),
	}, nil
}
