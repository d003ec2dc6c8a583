package scraper

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/signalguard/signalguard/agent/internal/config"
	"github.com/signalguard/signalguard/pkg/simulator"
	"github.com/signalguard/signalguard/pkg/types"
)

const defaultScrapeTimeout = 10 * time.Second

// Scraper produces the next cumulative Summary.
type Scraper interface {
	Scrape(ctx context.Context) (types.Summary, error)
}

// New returns the Scraper for the configured source type. sim is only used
// by the simulated source.
func New(src config.Source, sim simulator.Config) (Scraper, error) {
	switch src.Type {
	case config.SourceSimulated:
		return newSimulated(src, sim)
	case config.SourcePrometheus:
		return &promScraper{src: src, client: newHTTPClient(src)}, nil
	default:
		return nil, fmt.Errorf("scraper: unsupported type %q", src.Type)
	}
}

// authorize applies the configured credentials to req.
func authorize(req *http.Request, auth config.AuthConfig) {
	switch auth.Mode {
	case "apikey":
		req.Header.Set(auth.Header, auth.Key())
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+auth.Token())
	case "basic":
		req.SetBasicAuth(auth.Username, auth.Password())
	}
}

// newHTTPClient returns a client honouring the source's TLS settings.
func newHTTPClient(src config.Source) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: src.TLS.InsecureSkipVerify, //nolint:gosec // opt-in per source
	}
	return &http.Client{Transport: tr, Timeout: defaultScrapeTimeout}
}

// fetchMetrics GETs the exposition at src.Endpoint and parses it.
func fetchMetrics(ctx context.Context, client *http.Client, src config.Source) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	authorize(req, src.Auth)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a Prometheus text exposition from r into metric families.
// A partial result with a parse warning is still returned.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// sumByLabel adds up counter, gauge and untyped values in mf grouped by the
// value of label. Series without the label are skipped.
func sumByLabel(mf *dto.MetricFamily, label string) map[string]float64 {
	out := make(map[string]float64)
	if mf == nil {
		return out
	}
	for _, m := range mf.GetMetric() {
		key, ok := labelValue(m, label)
		if !ok {
			continue
		}
		out[key] += metricValue(m)
	}
	return out
}

func labelValue(m *dto.Metric, name string) (string, bool) {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue(), true
		}
	}
	return "", false
}

func metricValue(m *dto.Metric) float64 {
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Untyped != nil:
		return m.Untyped.GetValue()
	}
	return 0
}
