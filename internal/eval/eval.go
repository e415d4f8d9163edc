package eval

import (
	"fmt"

	"github.com/danielpatrickdp/query-coordinator/internal/segment"
)

// #region eval-harness
// EvalHarness scores a finished coordination run. No model calls.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Assess scores completed results against the number of failed segments.
// Completeness is the completed share, accuracy the mean completed
// confidence, coherence a coarse flag for any non-empty output, and overall
// the mean of the three.
func (h *EvalHarness) Assess(completed []segment.Result, failed int) Quality {
	var q Quality

	total := len(completed) + failed
	if total > 0 {
		q.Completeness = float64(len(completed)) / float64(total)
	}

	var confSum float64
	for _, r := range completed {
		confSum += r.Confidence
		if !r.Findings.Empty() || len(r.SearchResults) > 0 {
			q.Coherence = h.config.CoherentScore
		}
	}
	if len(completed) > 0 {
		q.Accuracy = confSum / float64(len(completed))
	}
	q.Overall = (q.Completeness + q.Accuracy + q.Coherence) / 3

	var failReasons []string
	q.Metrics = []EvalMetric{
		{Name: "completeness", Value: q.Completeness, Pass: q.Completeness >= h.config.MinCompleteness},
		{Name: "accuracy", Value: q.Accuracy, Pass: len(completed) > 0},
		{Name: "coherence", Value: q.Coherence, Pass: q.Coherence > 0},
		{Name: "overall", Value: q.Overall, Pass: q.Overall >= h.config.MinOverall},
	}
	for _, m := range q.Metrics {
		if !m.Pass {
			failReasons = append(failReasons, fmt.Sprintf("%s %.2f", m.Name, m.Value))
		}
	}

	q.Passed = len(failReasons) == 0
	q.Reason = "all checks passed"
	if !q.Passed {
		q.Reason = fmt.Sprintf("degraded: %s", failReasons[0])
		if len(failReasons) > 1 {
			q.Reason = fmt.Sprintf("degraded: %d checks: %s", len(failReasons), failReasons[0])
		}
	}
	return q
}

// #endregion eval-harness
