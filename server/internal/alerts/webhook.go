package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/signalguard/signalguard/server/internal/config"
)

// webhookTimeout bounds one delivery attempt.
const webhookTimeout = 10 * time.Second

// payloads builds the request body for each webhook type.
var payloads = map[string]func(*Alert) interface{}{
	"slack": slackPayload,
	"teams": teamsPayload,
	"http":  func(a *Alert) interface{} { return map[string]interface{}{"alert": a} },
}

// deliver posts a to every configured target. Failures are logged per
// target and never reach the evaluator.
func (e *Engine) deliver(hooks []config.WebhookConfig, a *Alert) {
	for _, wh := range hooks {
		url := wh.URL()
		if url == "" {
			continue
		}
		build, ok := payloads[wh.Type]
		if !ok {
			slog.Warn("alerts: unknown webhook type", "type", wh.Type)
			continue
		}
		body, err := json.Marshal(build(a))
		if err == nil {
			err = e.post(url, body)
		}
		if err != nil {
			slog.Error("alerts: webhook delivery failed", "type", wh.Type, "rule", a.RuleName, "err", err)
			continue
		}
		slog.Debug("alerts: webhook delivered", "type", wh.Type, "rule", a.RuleName, "state", a.State)
	}
}

func (e *Engine) post(url string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func slackPayload(a *Alert) interface{} {
	return map[string]interface{}{
		"text": fmt.Sprintf("*%s* %s%s", severityTag(a.Severity), resolvedPrefix(a), a.Message),
		"attachments": []map[string]interface{}{{
			"color": "#" + severityColor(a.Severity),
			"fields": []map[string]interface{}{
				{"title": "Service", "value": a.Service, "short": true},
				{"title": "Value", "value": strconv.FormatFloat(a.Value, 'f', 3, 64), "short": true},
			},
		}},
	}
}

func teamsPayload(a *Alert) interface{} {
	return map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a.Severity),
		"summary":    a.RuleName,
		"title":      fmt.Sprintf("SignalGuard Alert: %s (%s)", a.RuleName, a.Service),
		"text":       resolvedPrefix(a) + a.Message,
		"sections": []map[string]interface{}{{
			"facts": []map[string]string{
				{"name": "Service", "value": a.Service},
				{"name": "Severity", "value": a.Severity},
				{"name": "State", "value": a.State},
			},
		}},
	}
}

func resolvedPrefix(a *Alert) string {
	if a.State == StateResolved {
		return "RESOLVED: "
	}
	return ""
}

func severityTag(s string) string {
	switch s {
	case "critical", "warning":
		return "[" + strings.ToUpper(s) + "]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
