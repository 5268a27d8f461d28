package ns

import "fmt"

// LikelihoodError reports a user likelihood or transform that returned an
// invalid value (NaN, +Inf, or a malformed output vector). A -Inf
// log-likelihood is NOT an error; it marks a point as unacceptable.
type LikelihoodError struct {
	Reason string
	Params []float64
}

func (e *LikelihoodError) Error() string {
	return fmt.Sprintf("likelihood evaluation failed: %s (params=%v)", e.Reason, e.Params)
}

// SamplingStalled reports that the constrained sampler exhausted its
// proposal budget without finding a point above the threshold. The run
// loop responds with a bounded sequence of region rebuilds at larger
// enlargement before treating the run as exhausted.
type SamplingStalled struct {
	Threshold float64
	Proposals int
	Rebuilds  int
}

func (e *SamplingStalled) Error() string {
	return fmt.Sprintf("constrained sampling stalled: %d proposals below threshold %g after %d region rebuilds",
		e.Proposals, e.Threshold, e.Rebuilds)
}

// ResumeMismatch reports a resume cache that is incompatible with the
// current problem (wrong dimensionality or parameter names). Hard
// failure; warm start never silently falls back to a cold start.
type ResumeMismatch struct {
	Reason string
}

func (e *ResumeMismatch) Error() string {
	return fmt.Sprintf("resume cache incompatible with current problem: %s", e.Reason)
}
