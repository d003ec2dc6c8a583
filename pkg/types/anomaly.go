package types

// ServiceAnomaly is the anomaly verdict for one service.
// Flag is 1 when ErrorRate crossed the threshold, 0 otherwise.
// Score is ErrorRate / threshold.
type ServiceAnomaly struct {
	Flag      int     `json:"flag"`
	Score     float64 `json:"score"`
	ErrorRate float64 `json:"errorRate"`
}

// AnomalyReport is the per-service anomaly classification derived from
// exactly one Summary. UpdatedAt is unix seconds with sub-second precision.
type AnomalyReport struct {
	Services  map[string]ServiceAnomaly `json:"services"`
	UpdatedAt float64                   `json:"updatedAt"`
}

// Service returns the verdict for name, zero-valued when absent.
func (r AnomalyReport) Service(name string) ServiceAnomaly {
	return r.Services[name]
}

// Clone returns a deep copy of r.
func (r AnomalyReport) Clone() AnomalyReport {
	out := r
	if r.Services != nil {
		out.Services = make(map[string]ServiceAnomaly, len(r.Services))
		for k, v := range r.Services {
			out.Services[k] = v
		}
	}
	return out
}

// UnavailableResponse is the body returned in place of an AnomalyReport when
// the anomaly service cannot answer.
type UnavailableResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StatusError is the Status value carried by an UnavailableResponse.
const StatusError = "error"

// MessageAnomaliesUnavailable is the default UnavailableResponse message.
const MessageAnomaliesUnavailable = "Anomaly service unavailable"
