// Package expr parses and evaluates alert rule conditions of the form
// "field op value", e.g.
//
//	error_rate > 0.2
//	score >= 2
//	flag == 1
//	requests > 1000
//	errors > 50
//	tier == incident
//	tier >= degraded
//
// Tier conditions compare badge tiers by severity and report the anomaly
// score as their value.
package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/signalguard/signalguard/pkg/status"
	"github.com/signalguard/signalguard/pkg/types"
)

// Sample is everything a condition can look at for one service.
type Sample struct {
	Stats   types.ServiceStats
	Anomaly types.ServiceAnomaly
}

// Condition is a compiled rule expression.
type Condition struct {
	field string
	op    string
	value float64
	tier  status.Tier
}

var fields = map[string]func(Sample) float64{
	"error_rate": func(s Sample) float64 { return s.Anomaly.ErrorRate },
	"score":      func(s Sample) float64 { return s.Anomaly.Score },
	"flag":       func(s Sample) float64 { return float64(s.Anomaly.Flag) },
	"requests":   func(s Sample) float64 { return float64(s.Stats.Requests) },
	"errors":     func(s Sample) float64 { return float64(s.Stats.Errors) },
}

var comparators = map[string]func(a, b float64) bool{
	">":  func(a, b float64) bool { return a > b },
	">=": func(a, b float64) bool { return a >= b },
	"<":  func(a, b float64) bool { return a < b },
	"<=": func(a, b float64) bool { return a <= b },
	"==": func(a, b float64) bool { return a == b },
}

// Parse compiles s or reports why it cannot be evaluated.
func Parse(s string) (Condition, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return Condition{}, fmt.Errorf("want \"field op value\", got %q", s)
	}
	c := Condition{field: parts[0], op: parts[1]}

	if c.field == "tier" {
		if c.op != "==" && c.op != ">=" {
			return Condition{}, fmt.Errorf("tier supports == and >=, got %q", c.op)
		}
		c.tier = status.Tier(parts[2])
		if c.tier.Severity() < 0 {
			return Condition{}, fmt.Errorf("unknown tier %q", parts[2])
		}
		return c, nil
	}

	if _, ok := fields[c.field]; !ok {
		return Condition{}, fmt.Errorf("unknown field %q", c.field)
	}
	if _, ok := comparators[c.op]; !ok {
		return Condition{}, fmt.Errorf("unknown operator %q", c.op)
	}
	v, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return Condition{}, fmt.Errorf("value %q is not a number", parts[2])
	}
	c.value = v
	return c, nil
}

// Eval reports whether the condition holds for s and the value it tested.
func (c Condition) Eval(s Sample) (bool, float64) {
	if c.field == "tier" {
		got := status.Badge(s.Anomaly.Flag, s.Anomaly.Score)
		if c.op == "==" {
			return got == c.tier, s.Anomaly.Score
		}
		return got.Severity() >= c.tier.Severity(), s.Anomaly.Score
	}
	v := fields[c.field](s)
	return comparators[c.op](v, c.value), v
}
