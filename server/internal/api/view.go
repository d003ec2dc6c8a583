package api

import (
	"sort"
	"time"

	"github.com/signalguard/signalguard/pkg/status"
	"github.com/signalguard/signalguard/pkg/types"
	"github.com/signalguard/signalguard/server/internal/source"
	"github.com/signalguard/signalguard/server/internal/store"
)

const unavailableLabel = "Unavailable"

// Options controls how frames are presented.
type Options struct {
	// ErrorChartMax is the upper bound of the error-rate chart axis.
	ErrorChartMax float64

	// Services always get a card once a frame exists, zero-valued when the
	// frame does not mention them.
	Services []string
}

// BuildView assembles the dashboard document from the store's latest frame
// and history. Before the first frame the caption is computed from zero
// traffic and the service list is empty.
func BuildView(st *store.Store, cls *status.Classifier, opts Options, firing int, now time.Time) View {
	v := View{
		Services:     []ServiceCard{},
		History:      st.History(),
		FiringAlerts: firing,
		Chart:        ChartConfig{ErrorMax: opts.ErrorChartMax, Services: []string{}},
		GeneratedAt:  now.UTC().Format(time.RFC3339),
	}

	e, ok := st.Latest()
	if !ok {
		v.Caption = cls.Caption(0, 0)
		v.Message = v.Caption.Message()
		return v
	}

	sum := e.Frame.Summary
	v.Caption = cls.Caption(sum.TotalRequests, sum.ErrorRate)
	v.Message = v.Caption.Message()
	v.TotalRequests = sum.TotalRequests
	v.TotalErrors = sum.TotalErrors
	v.ErrorRate = sum.ErrorRate
	v.AnomaliesAvailable = e.Frame.Available()
	v.UpdatedAt = e.UpdatedAt.UTC().Format(time.RFC3339)

	warming := v.Caption == status.CaptionWarmingUp
	names := serviceNames(e.Frame, opts.Services)
	for _, name := range names {
		v.Services = append(v.Services, buildCard(name, e.Frame, warming))
	}
	v.Chart.Services = names
	return v
}

func buildCard(name string, f source.Frame, warming bool) ServiceCard {
	stats := f.Summary.Service(name)
	c := ServiceCard{
		Name:      name,
		Requests:  stats.Requests,
		Errors:    stats.Errors,
		ErrorRate: stats.ErrorRate,
	}
	if !f.Available() {
		c.Label = unavailableLabel
		c.Class = "badge-warn"
		c.Detail = types.MessageAnomaliesUnavailable
		c.Hints = computeHints(stats, types.ServiceAnomaly{}, false, warming)
		return c
	}

	a := f.Report.Service(name)
	c.Flag = a.Flag
	c.Score = a.Score
	c.ErrorRate = a.ErrorRate
	c.Tier = status.Badge(a.Flag, a.Score)
	c.Label = c.Tier.Label()
	c.Class = c.Tier.Class()
	c.Detail = status.Detail(a.Flag)
	c.Hints = computeHints(stats, a, true, warming)
	return c
}

// serviceNames is the sorted union of the expected services and those in the
// summary and report.
func serviceNames(f source.Frame, expected []string) []string {
	set := make(map[string]struct{}, len(expected)+len(f.Summary.Services)+len(f.Report.Services))
	for _, name := range expected {
		set[name] = struct{}{}
	}
	for name := range f.Summary.Services {
		set[name] = struct{}{}
	}
	if f.Available() {
		for name := range f.Report.Services {
			set[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
