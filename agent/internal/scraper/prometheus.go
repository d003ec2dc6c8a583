package scraper

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/signalguard/signalguard/agent/internal/config"
	"github.com/signalguard/signalguard/pkg/types"
)

type promScraper struct {
	src    config.Source
	client *http.Client
}

// Scrape fetches the application's /metrics and builds a cumulative Summary
// from the request and error counters, one service per label value.
func (s *promScraper) Scrape(ctx context.Context) (types.Summary, error) {
	mfs, err := fetchMetrics(ctx, s.client, s.src)
	if err != nil {
		return types.Summary{}, fmt.Errorf("prometheus scrape %q: %w", s.src.Endpoint, err)
	}

	requests := sumByLabel(mfs[s.src.RequestsMetric], s.src.ServiceLabel)
	errs := sumByLabel(mfs[s.src.ErrorsMetric], s.src.ServiceLabel)

	out := types.Summary{Services: make(map[string]types.ServiceStats, len(requests))}
	add := func(value string, req, errCount float64) {
		name := s.serviceName(value)
		st := out.Services[name]
		st.Requests += int64(math.Round(req))
		st.Errors += int64(math.Round(errCount))
		out.Services[name] = st
	}
	for value, n := range requests {
		add(value, n, errs[value])
	}
	for value, n := range errs {
		if _, seen := requests[value]; !seen {
			add(value, 0, n)
		}
	}

	for name, st := range out.Services {
		st.ErrorRate = types.Rate(st.Errors, st.Requests)
		out.Services[name] = st
		out.TotalRequests += st.Requests
		out.TotalErrors += st.Errors
	}
	out.ErrorRate = types.Rate(out.TotalErrors, out.TotalRequests)
	return out, nil
}

func (s *promScraper) serviceName(value string) string {
	if name, ok := s.src.Services[value]; ok {
		return name
	}
	return strings.TrimPrefix(value, "/")
}
