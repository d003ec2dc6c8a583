package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/signalguard/signalguard/pkg/status"
	"github.com/signalguard/signalguard/pkg/types"
	"github.com/signalguard/signalguard/server/internal/alerts"
	"github.com/signalguard/signalguard/server/internal/store"
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It reads the latest frame and chart history from the store.
type Handler struct {
	store    *store.Store
	cls      *status.Classifier
	opts     Options
	alerts   *alerts.Engine // nil when alerting is not configured
	mux      *http.ServeMux
}

// New creates a Handler and registers all routes. al may be nil.
func New(st *store.Store, cls *status.Classifier, opts Options, al *alerts.Engine) *Handler {
	h := &Handler{store: st, cls: cls, opts: opts, alerts: al, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/summary", h.summary)
	h.mux.HandleFunc("/api/v1/anomalies", h.anomalies)
	h.mux.HandleFunc("/api/v1/view", h.view)
	h.mux.HandleFunc("/api/v1/history", h.history)
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// View builds the current dashboard document.
func (h *Handler) View() View {
	return BuildView(h.store, h.cls, h.opts, h.firing(), time.Now())
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: caption and per-tier counts.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	v := h.View()
	resp := HealthResponse{
		Caption:            v.Caption,
		Message:            v.Message,
		ServiceCount:       len(v.Services),
		AnomaliesAvailable: v.AnomaliesAvailable,
		AlertCount:         v.FiringAlerts,
		LastUpdate:         v.UpdatedAt,
	}
	for _, c := range v.Services {
		switch c.Tier {
		case status.TierHealthy:
			resp.HealthyCount++
		case status.TierWatch:
			resp.WatchCount++
		case status.TierDegraded:
			resp.DegradedCount++
		case status.TierIncident:
			resp.IncidentCount++
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// summary returns GET /api/v1/summary: the latest Summary.
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	e, ok := h.store.Latest()
	if !ok {
		jsonErr(w, http.StatusNotFound, "no data yet")
		return
	}
	jsonResp(w, http.StatusOK, e.Frame.Summary)
}

// anomalies returns GET /api/v1/anomalies: the latest AnomalyReport, or the
// unavailable document when the last frame carried none.
func (h *Handler) anomalies(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	e, ok := h.store.Latest()
	if !ok {
		jsonErr(w, http.StatusNotFound, "no data yet")
		return
	}
	if !e.Frame.Available() {
		jsonResp(w, http.StatusServiceUnavailable, types.UnavailableResponse{
			Status:  types.StatusError,
			Message: types.MessageAnomaliesUnavailable,
		})
		return
	}
	jsonResp(w, http.StatusOK, e.Frame.Report)
}

// view returns GET /api/v1/view.
func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	jsonResp(w, http.StatusOK, h.View())
}

// history returns GET /api/v1/history.
func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	jsonResp(w, http.StatusOK, h.store.History())
}

// listAlerts returns GET /api/v1/alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// --- helpers ----------------------------------------------------------------

func (h *Handler) firing() int {
	if h.alerts == nil {
		return 0
	}
	return h.alerts.FiringCount()
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
