package types

// ServiceStats is the cumulative traffic for one service.
// ErrorRate is Errors / Requests, or 0 before the service has seen traffic.
type ServiceStats struct {
	Requests  int64   `json:"requests"`
	Errors    int64   `json:"errors"`
	ErrorRate float64 `json:"errorRate"`
}

// Summary is a point-in-time view of cumulative request and error counts,
// overall and per service. Figures are cumulative, never per-tick deltas.
type Summary struct {
	TotalRequests int64                   `json:"totalRequests"`
	TotalErrors   int64                   `json:"totalErrors"`
	ErrorRate     float64                 `json:"errorRate"`
	Services      map[string]ServiceStats `json:"services"`
}

// Service returns the stats for name. A service absent from the summary
// yields zero-valued stats rather than an error.
func (s Summary) Service(name string) ServiceStats {
	return s.Services[name]
}

// Clone returns a deep copy of s so it can be published to another goroutine.
func (s Summary) Clone() Summary {
	out := s
	if s.Services != nil {
		out.Services = make(map[string]ServiceStats, len(s.Services))
		for k, v := range s.Services {
			out.Services[k] = v
		}
	}
	return out
}

// Rate returns errors/requests, or 0 when requests is not positive.
func Rate(errors, requests int64) float64 {
	if requests <= 0 {
		return 0
	}
	return float64(errors) / float64(requests)
}
