package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/signalguard/signalguard/pkg/types"
)

// maxBodyBytes bounds a single response body.
const maxBodyBytes = 1 << 20

// RemoteOptions configures a Remote source.
type RemoteOptions struct {
	BaseURL       string
	SummaryPath   string
	AnomaliesPath string
	Timeout       time.Duration

	// Header and Key are sent on every request when both are set.
	Header string
	Key    string

	// Client overrides the HTTP client. Timeout is ignored when set.
	Client *http.Client
}

// Remote fetches the Summary and AnomalyReport from an agent.
type Remote struct {
	summaryURL   string
	anomaliesURL string
	header       string
	key          string
	client       *http.Client
	now          func() time.Time
}

// NewRemote validates opts and returns a Remote.
func NewRemote(opts RemoteOptions) (*Remote, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("source: remote base url is required")
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	return &Remote{
		summaryURL:   base + opts.SummaryPath,
		anomaliesURL: base + opts.AnomaliesPath,
		header:       opts.Header,
		key:          opts.Key,
		client:       client,
		now:          time.Now,
	}, nil
}

// Fetch retrieves both documents concurrently. A failed summary fails the
// frame. A failed anomaly fetch, or an explicit {"status":"error"} body,
// yields a frame with AnomalyErr set.
func (r *Remote) Fetch(ctx context.Context) (Frame, error) {
	var (
		sum     types.Summary
		rep     types.AnomalyReport
		anomErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		body, code, err := r.get(gctx, r.summaryURL)
		if err != nil {
			return fmt.Errorf("source: fetch summary: %w", err)
		}
		if code != http.StatusOK {
			return fmt.Errorf("source: fetch summary: unexpected status %d", code)
		}
		if err := json.Unmarshal(body, &sum); err != nil {
			return fmt.Errorf("source: decode summary: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Anomaly failures degrade the frame instead of failing the group.
		rep, anomErr = r.fetchAnomalies(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Frame{}, err
	}

	return Frame{
		Summary:    sum,
		Report:     rep,
		AnomalyErr: anomErr,
		ReceivedAt: r.now(),
	}, nil
}

func (r *Remote) fetchAnomalies(ctx context.Context) (types.AnomalyReport, error) {
	body, code, err := r.get(ctx, r.anomaliesURL)
	if err != nil {
		return types.AnomalyReport{}, fmt.Errorf("%w: %v", ErrAnomaliesUnavailable, err)
	}
	if code != http.StatusOK && !isStatusDocument(body) {
		return types.AnomalyReport{}, fmt.Errorf("%w: unexpected status %d", ErrAnomaliesUnavailable, code)
	}

	var probe struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return types.AnomalyReport{}, fmt.Errorf("%w: decode: %v", ErrAnomaliesUnavailable, err)
	}
	if probe.Status == types.StatusError {
		msg := probe.Message
		if msg == "" {
			msg = types.MessageAnomaliesUnavailable
		}
		return types.AnomalyReport{}, fmt.Errorf("%w: %s", ErrAnomaliesUnavailable, msg)
	}

	var rep types.AnomalyReport
	if err := json.Unmarshal(body, &rep); err != nil {
		return types.AnomalyReport{}, fmt.Errorf("%w: decode: %v", ErrAnomaliesUnavailable, err)
	}
	return rep, nil
}

// get returns the body and status code of a GET to url.
func (r *Remote) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.header != "" && r.key != "" {
		req.Header.Set(r.header, r.key)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// isStatusDocument reports whether body is a {"status":"error"} document.
func isStatusDocument(body []byte) bool {
	var probe struct {
		Status string `json:"status"`
	}
	return json.Unmarshal(body, &probe) == nil && probe.Status == types.StatusError
}
