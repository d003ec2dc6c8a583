package compute

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/signalguard/signalguard/agent/internal/scraper"
	"github.com/signalguard/signalguard/pkg/anomaly"
	"github.com/signalguard/signalguard/pkg/types"
)

// uptimeWindow is the number of recent scrape outcomes tracked for uptime %.
const uptimeWindow = 20

// Observer receives every scored tick and every skipped one.
// *exporter.Exporter satisfies it.
type Observer interface {
	Observe(types.Summary, types.AnomalyReport)
	ObserveScrapeFailure()
}

// Result is one scored tick.
type Result struct {
	Summary types.Summary
	Report  types.AnomalyReport
	At      time.Time
}

// Engine scrapes a source, scores the Summary and keeps the latest result
// for the HTTP layer.
//
// All exported methods are safe for concurrent use.
type Engine struct {
	src scraper.Scraper
	obs Observer

	mu      sync.Mutex
	scorer  *anomaly.Scorer
	latest  *Result
	history []bool // scrape outcomes, newest last
}

// NewEngine returns an Engine. obs may be nil.
func NewEngine(src scraper.Scraper, scorer *anomaly.Scorer, obs Observer) *Engine {
	return &Engine{src: src, scorer: scorer, obs: obs}
}

// SetScorer replaces the scorer used from the next tick on.
func (e *Engine) SetScorer(s *anomaly.Scorer) {
	e.mu.Lock()
	e.scorer = s
	e.mu.Unlock()
}

// Process runs one tick. now is passed explicitly so tests control the
// clock. A scrape failure is recorded and returned; the previous result stays
// published.
func (e *Engine) Process(ctx context.Context, now time.Time) (*Result, error) {
	sum, err := e.src.Scrape(ctx)

	e.mu.Lock()
	e.recordScrape(err == nil)
	scorer := e.scorer
	e.mu.Unlock()

	if err != nil {
		if e.obs != nil {
			e.obs.ObserveScrapeFailure()
		}
		return nil, fmt.Errorf("compute: scrape: %w", err)
	}

	res := &Result{Summary: sum, Report: scorer.Score(sum), At: now}

	e.mu.Lock()
	e.latest = res
	e.mu.Unlock()

	if e.obs != nil {
		e.obs.Observe(res.Summary, res.Report)
	}
	slog.Debug("compute: tick scored",
		"total_requests", sum.TotalRequests,
		"error_rate", sum.ErrorRate,
		"flagged", flagged(res.Report),
	)
	return res, nil
}

// Run calls Process and logs failures. It matches schedule.Every's callback.
func (e *Engine) Run(ctx context.Context) {
	if _, err := e.Process(ctx, time.Now()); err != nil {
		slog.Warn("compute: tick skipped", "err", err)
	}
}

// Latest returns copies of the most recent Summary and AnomalyReport.
// ok is false before the first successful tick.
func (e *Engine) Latest() (sum types.Summary, rep types.AnomalyReport, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.latest == nil {
		return types.Summary{}, types.AnomalyReport{}, false
	}
	return e.latest.Summary.Clone(), e.latest.Report.Clone(), true
}

// UptimePct is the share of recent scrapes that succeeded.
func (e *Engine) UptimePct() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.history) == 0 {
		return 100 // assume up before first observation
	}
	var ok int
	for _, s := range e.history {
		if s {
			ok++
		}
	}
	return float64(ok) / float64(len(e.history)) * 100
}

func (e *Engine) recordScrape(success bool) {
	if len(e.history) >= uptimeWindow {
		e.history = e.history[1:]
	}
	e.history = append(e.history, success)
}

func flagged(r types.AnomalyReport) []string {
	var out []string
	for _, name := range anomaly.Names(r) {
		if r.Services[name].Flag != 0 {
			out = append(out, name)
		}
	}
	return out
}
