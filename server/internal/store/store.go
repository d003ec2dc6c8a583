package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/signalguard/signalguard/server/internal/source"
)

// Entry is a frame together with the time it was stored.
type Entry struct {
	Frame     source.Frame
	UpdatedAt time.Time
}

// Point is one chart sample: cumulative requests per service and the overall
// error rate at the time the frame arrived.
type Point struct {
	Time      time.Time        `json:"time"`
	Label     string           `json:"label"`
	Requests  map[string]int64 `json:"requests"`
	ErrorRate float64          `json:"errorRate"`
}

// Store is a thread-safe holder of the latest frame plus a bounded chart
// history. Frames are cloned on the way in and on the way out.
// A background goroutine (Run) drops the latest frame once it is older than
// the TTL. History is kept.
type Store struct {
	mu      sync.RWMutex
	latest  *Entry
	history []Point
	size    int
	ttl     time.Duration
	now     func() time.Time // injectable for deterministic tests
}

// New creates a Store keeping at most size history points. A zero ttl
// disables staleness.
func New(ttl time.Duration, size int) *Store {
	if size <= 0 {
		size = 1
	}
	return &Store{ttl: ttl, size: size, now: time.Now}
}

// Put stores f as the latest frame and appends a history point.
func (s *Store) Put(f source.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.latest = &Entry{Frame: f.Clone(), UpdatedAt: now}

	p := Point{
		Time:      now,
		Label:     now.Format("15:04:05"),
		Requests:  make(map[string]int64, len(f.Summary.Services)),
		ErrorRate: f.Summary.ErrorRate,
	}
	for name, st := range f.Summary.Services {
		p.Requests[name] = st.Requests
	}
	if len(s.history) >= s.size {
		s.history = append(s.history[:0], s.history[len(s.history)-s.size+1:]...)
	}
	s.history = append(s.history, p)
}

// Latest returns a copy of the latest frame. ok is false before the first
// Put and once the frame is older than the TTL.
func (s *Store) Latest() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil || s.stale(s.latest, s.now()) {
		return Entry{}, false
	}
	return Entry{Frame: s.latest.Frame.Clone(), UpdatedAt: s.latest.UpdatedAt}, true
}

// History returns a copy of the chart points, oldest first.
func (s *Store) History() []Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Point, len(s.history))
	for i, p := range s.history {
		cp := p
		cp.Requests = make(map[string]int64, len(p.Requests))
		for k, v := range p.Requests {
			cp.Requests[k] = v
		}
		out[i] = cp
	}
	return out
}

// TTL returns the configured staleness window.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Evict drops the latest frame if it is stale at now. It reports whether a
// frame was removed.
func (s *Store) Evict(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest != nil && s.stale(s.latest, now) {
		s.latest = nil
		return true
	}
	return false
}

func (s *Store) stale(e *Entry, now time.Time) bool {
	return s.ttl > 0 && !e.UpdatedAt.After(now.Add(-s.ttl))
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// (minimum 1 second) and blocks until ctx is cancelled. With a zero TTL it
// returns immediately.
func (s *Store) Run(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if s.Evict(now) {
				slog.Debug("store: evicted stale frame")
			}
		}
	}
}
