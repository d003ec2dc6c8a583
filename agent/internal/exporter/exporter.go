// Package exporter publishes the agent's traffic counters and anomaly
// verdicts as Prometheus metrics.
package exporter

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalguard/signalguard/pkg/types"
)

// Exporter holds the agent collectors. Counters are fed from cumulative
// summaries, so the exporter remembers the last totals it saw per service.
type Exporter struct {
	requests       *prometheus.CounterVec
	requestErrors  *prometheus.CounterVec
	anomalyFlag    *prometheus.GaugeVec
	anomalyScore   *prometheus.GaugeVec
	errorRate      *prometheus.GaugeVec
	ticks          prometheus.Counter
	scrapeFailures prometheus.Counter

	mu   sync.Mutex
	last map[string]types.ServiceStats
}

// New returns an Exporter with unregistered collectors.
func New() *Exporter {
	return &Exporter{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "app_requests_total",
			Help: "Total requests observed, by endpoint.",
		}, []string{"endpoint"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "app_request_errors_total",
			Help: "Total request errors observed, by endpoint.",
		}, []string{"endpoint"}),
		anomalyFlag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "signalguard",
			Name:      "anomaly_flag",
			Help:      "1 when the service error rate is above the anomaly threshold.",
		}, []string{"service"}),
		anomalyScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "signalguard",
			Name:      "anomaly_score",
			Help:      "Service error rate divided by the anomaly threshold.",
		}, []string{"service"}),
		errorRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "signalguard",
			Name:      "error_rate",
			Help:      "Cumulative error rate per service.",
		}, []string{"service"}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "signalguard",
			Name:      "ticks_total",
			Help:      "Summaries scored since start.",
		}),
		scrapeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "signalguard",
			Name:      "scrape_failures_total",
			Help:      "Ticks skipped because the source could not be read.",
		}),
		last: make(map[string]types.ServiceStats),
	}
}

// Register attaches the collectors to reg. Registering the same Exporter
// twice is a no-op; a different collector under one of its names is an error.
func (e *Exporter) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		e.requests,
		e.requestErrors,
		e.anomalyFlag,
		e.anomalyScore,
		e.errorRate,
		e.ticks,
		e.scrapeFailures,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) && are.ExistingCollector == c {
				continue
			}
			return fmt.Errorf("exporter: register: %w", err)
		}
	}
	return nil
}

// Observe records one scored tick.
func (e *Exporter) Observe(sum types.Summary, rep types.AnomalyReport) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for name, st := range sum.Services {
		prev := e.last[name]
		e.requests.WithLabelValues(name).Add(float64(counterDelta(st.Requests, prev.Requests)))
		e.requestErrors.WithLabelValues(name).Add(float64(counterDelta(st.Errors, prev.Errors)))
		e.last[name] = st
	}
	for name, a := range rep.Services {
		e.anomalyFlag.WithLabelValues(name).Set(float64(a.Flag))
		e.anomalyScore.WithLabelValues(name).Set(a.Score)
		e.errorRate.WithLabelValues(name).Set(a.ErrorRate)
	}
	e.ticks.Inc()
}

// ObserveScrapeFailure counts a skipped tick.
func (e *Exporter) ObserveScrapeFailure() {
	e.scrapeFailures.Inc()
}

// counterDelta returns the growth of a cumulative counter. A decrease means
// the upstream restarted, so the whole current value is new.
func counterDelta(current, previous int64) int64 {
	if current < previous {
		return current
	}
	return current - previous
}
