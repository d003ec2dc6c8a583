// Package anomaly flags services whose cumulative error rate crosses a fixed
// threshold.
//
// Scorer.Score is a pure function of its input Summary: score is
// errorRate/threshold and flag is 1 iff errorRate > threshold. It keeps no
// memory of earlier summaries.
package anomaly
