// Package api serves the agent's HTTP surface: the latest Summary, the
// latest AnomalyReport, a liveness probe and the Prometheus exposition.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/signalguard/signalguard/pkg/types"
)

// Latest provides the most recent scored tick. *compute.Engine satisfies it.
type Latest interface {
	Latest() (types.Summary, types.AnomalyReport, bool)
}

// uptimer is implemented by sources that track scrape success.
type uptimer interface {
	UptimePct() float64
}

// Handler routes the agent endpoints.
type Handler struct {
	src Latest
	mux *http.ServeMux
}

// New creates a Handler reading from src. metrics is mounted at /metrics
// when non-nil.
func New(src Latest, metrics http.Handler) http.Handler {
	h := &Handler{src: src, mux: http.NewServeMux()}

	h.mux.HandleFunc("/health", h.health)
	h.mux.HandleFunc("/api/dashboard/summary", h.summary)
	h.mux.HandleFunc("/api/anomalies", h.anomalies)
	if metrics != nil {
		h.mux.Handle("/metrics", metrics)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	resp := map[string]interface{}{"status": "ok"}
	if u, ok := h.src.(uptimer); ok {
		resp["uptimePct"] = u.UptimePct()
	}
	jsonResp(w, http.StatusOK, resp)
}

// summary returns the latest cumulative Summary, zero-valued before the
// first tick.
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	sum, _, _ := h.src.Latest()
	if sum.Services == nil {
		sum.Services = map[string]types.ServiceStats{}
	}
	jsonResp(w, http.StatusOK, sum)
}

// anomalies returns the latest AnomalyReport, or 503 until one exists.
func (h *Handler) anomalies(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	_, rep, ok := h.src.Latest()
	if !ok {
		jsonResp(w, http.StatusServiceUnavailable, types.UnavailableResponse{
			Status:  types.StatusError,
			Message: types.MessageAnomaliesUnavailable,
		})
		return
	}
	jsonResp(w, http.StatusOK, rep)
}

// --- helpers ----------------------------------------------------------------

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		jsonResp(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return false
	}
	return true
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
