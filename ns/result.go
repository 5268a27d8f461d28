package ns

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"
)

// WeightedSamples is the posterior sample set with importance weights:
// weight = prior-volume element times likelihood, normalized by the
// evidence.
type WeightedSamples struct {
	Weights []float64   // normalized, sums to 1
	UPoints [][]float64 // unit-cube positions
	Points  [][]float64 // physical parameters
	Derived [][]float64 // derived transform outputs (nil entries when none)
	Logl    []float64
}

// Result is the run outcome exposed to callers.
type Result struct {
	ParamNames      []string
	LogZ            float64
	LogZErr         float64
	NCalls          int
	Niter           int
	Status          RunStatus
	StopReason      string
	ESS             float64 // effective posterior sample size
	WeightedSamples WeightedSamples
	Samples         [][]float64 // equal-weight posterior samples
}

// Converged reports whether a statistical stopping criterion ended the
// run. Exhausted runs carry a best current estimate, never a silent
// pretense of success.
func (r *Result) Converged() bool {
	return r.Status == StatusConverged
}

// newResult assembles a Result from the terminal run state.
func newResult(space *ParameterSpace, state *RunState, logzerr float64, rng *rand.Rand) *Result {
	n := len(state.Dead)
	ws := WeightedSamples{
		Weights: make([]float64, n),
		UPoints: make([][]float64, n),
		Points:  make([][]float64, n),
		Derived: make([][]float64, n),
		Logl:    make([]float64, n),
	}

	total := 0.0
	for i, d := range state.Dead {
		w := math.Exp(d.LogWeight + d.Logl - state.LogZ)
		ws.Weights[i] = w
		ws.UPoints[i] = d.U
		ws.Points[i] = d.Params
		ws.Derived[i] = d.Derived
		ws.Logl[i] = d.Logl
		total += w
	}
	ess := 0.0
	if total > 0 {
		sumSq := 0.0
		for i := range ws.Weights {
			ws.Weights[i] /= total
			sumSq += ws.Weights[i] * ws.Weights[i]
		}
		ess = 1 / sumSq
	}

	res := &Result{
		ParamNames:      space.ParamNames,
		LogZ:            state.LogZ,
		LogZErr:         logzerr,
		NCalls:          state.NCalls,
		Niter:           state.Iteration,
		Status:          state.Status,
		StopReason:      state.StopReason,
		ESS:             ess,
		WeightedSamples: ws,
	}
	res.Samples = resampleEqual(ws, rng)
	return res
}

// resampleEqual draws equal-weight posterior samples by systematic
// resampling, one sample per effective-sample-size unit.
func resampleEqual(ws WeightedSamples, rng *rand.Rand) [][]float64 {
	n := len(ws.Weights)
	if n == 0 {
		return nil
	}
	sumSq := 0.0
	for _, w := range ws.Weights {
		sumSq += w * w
	}
	k := n
	if sumSq > 0 {
		k = int(1/sumSq + 0.5)
	}
	if k < 1 {
		k = 1
	}

	out := make([][]float64, 0, k)
	step := 1 / float64(k)
	target := rng.Float64() * step
	cum := 0.0
	i := 0
	for len(out) < k {
		for i < n-1 && cum+ws.Weights[i] < target {
			cum += ws.Weights[i]
			i++
		}
		out = append(out, ws.Points[i])
		target += step
	}
	return out
}

// PosteriorMean returns the weighted posterior mean of each parameter.
func (r *Result) PosteriorMean() []float64 {
	dim := len(r.ParamNames)
	out := make([]float64, dim)
	col := make([]float64, len(r.WeightedSamples.Points))
	for j := 0; j < dim; j++ {
		for i, p := range r.WeightedSamples.Points {
			col[i] = p[j]
		}
		out[j] = stat.Mean(col, r.WeightedSamples.Weights)
	}
	return out
}

// PosteriorStdDev returns the weighted posterior standard deviation of
// each parameter.
func (r *Result) PosteriorStdDev() []float64 {
	dim := len(r.ParamNames)
	out := make([]float64, dim)
	col := make([]float64, len(r.WeightedSamples.Points))
	for j := 0; j < dim; j++ {
		for i, p := range r.WeightedSamples.Points {
			col[i] = p[j]
		}
		out[j] = stat.StdDev(col, r.WeightedSamples.Weights)
	}
	return out
}
