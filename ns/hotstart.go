package ns

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// LogWeightSentinel marks a hot-start sample whose reference density is
// numerically negligible. Such points carry an effectively -infinite
// derived weight instead of propagating NaN.
const LogWeightSentinel = -1e300

// quantileClip keeps unit-cube coordinates away from the Student-t
// quantile function's singular endpoints.
const quantileClip = 1e-12

// HotStart wraps a problem in an auxiliary parameterization centered on
// a user-estimated posterior peak. The auxiliary transform maps the
// unit cube through per-axis Student-t quantiles, correlated by the
// Cholesky factor of the supplied shape matrix and scaled by the
// enlargement factor, all in u-space. The auxiliary log-likelihood
// subtracts the reference log-density, so sampling the auxiliary
// problem with a plain run reproduces the original posterior; the
// subtracted term is recorded per sample as one extra derived output.
type HotStart struct {
	orig   *ParameterSpace
	center []float64
	scale  float64
	dim    int

	l       mat.TriDense // lower Cholesky factor of the shape covariance
	logDetL float64
	tdist   distuv.StudentsT
}

// NewHotStart builds the auxiliary parameterization. center is the
// estimated posterior peak in u-space; invCov is the inverse shape
// matrix there; enlarge (>= 1) scales the reference distribution
// linearly; df is the Student-t degrees of freedom (small df = heavier
// tails = more forgiving of a bad center estimate).
func NewHotStart(space *ParameterSpace, center []float64, invCov *mat.SymDense, enlarge, df float64) (*HotStart, error) {
	dim := space.Dim
	if len(center) != dim {
		return nil, fmt.Errorf("hot start center has %d entries, problem has %d", len(center), dim)
	}
	if enlarge < 1 {
		return nil, fmt.Errorf("hot start enlargement factor must be >= 1, got %g", enlarge)
	}
	if df <= 0 {
		return nil, fmt.Errorf("hot start degrees of freedom must be > 0, got %g", df)
	}

	var chInv mat.Cholesky
	if !chInv.Factorize(invCov) {
		return nil, fmt.Errorf("hot start inverse covariance is not positive definite")
	}
	var cov mat.SymDense
	if err := chInv.InverseTo(&cov); err != nil {
		return nil, fmt.Errorf("inverting hot start shape matrix: %w", err)
	}
	var ch mat.Cholesky
	if !ch.Factorize(&cov) {
		return nil, fmt.Errorf("hot start shape matrix is not positive definite")
	}

	h := &HotStart{
		orig:   space,
		center: center,
		scale:  enlarge,
		dim:    dim,
		tdist:  distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df},
	}
	ch.LTo(&h.l)
	h.logDetL = 0.5 * ch.LogDet()
	return h, nil
}

// AuxSpace returns the auxiliary problem: same dimensionality and
// parameter names, one extra derived output (the log-weight), and the
// wrapped transform/likelihood pair. Run it with a plain Sampler, then
// recover the original posterior with UnwrapHotStart.
func (h *HotStart) AuxSpace() *ParameterSpace {
	return &ParameterSpace{
		Dim:           h.orig.Dim,
		ParamNames:    h.orig.ParamNames,
		NumDerived:    h.orig.NumDerived + 1,
		Transform:     h.auxTransform,
		LogLikelihood: h.auxLogLikelihood,
	}
}

func (h *HotStart) auxTransform(v []float64) []float64 {
	z := make([]float64, h.dim)
	for i, vi := range v {
		z[i] = h.tdist.Quantile(math.Min(math.Max(vi, quantileClip), 1-quantileClip))
	}

	u := make([]float64, h.dim)
	inCube := true
	for i := 0; i < h.dim; i++ {
		s := 0.0
		for j := 0; j <= i; j++ {
			s += h.l.At(i, j) * z[j]
		}
		u[i] = h.center[i] + h.scale*s
		if u[i] < 0 || u[i] > 1 {
			inCube = false
			u[i] = math.Min(math.Max(u[i], 0), 1)
		}
	}

	logw := LogWeightSentinel
	if inCube {
		logw = -h.refLogDensity(z)
	}

	out := h.orig.Transform(u)
	aux := make([]float64, 0, len(out)+1)
	aux = append(aux, out...)
	return append(aux, logw)
}

// refLogDensity is the log-density of the reference distribution at the
// u-point corresponding to standardized coordinates z, by change of
// variables through u = center + scale * L * z.
func (h *HotStart) refLogDensity(z []float64) float64 {
	s := 0.0
	for _, zi := range z {
		s += h.tdist.LogProb(zi)
	}
	return s - float64(h.dim)*math.Log(h.scale) - h.logDetL
}

func (h *HotStart) auxLogLikelihood(x []float64) float64 {
	logw := x[len(x)-1]
	if logw <= LogWeightSentinel {
		return math.Inf(-1)
	}
	return h.orig.LogLikelihood(x[:len(x)-1]) + logw
}

// UnwrapHotStart converts an auxiliary-problem Result back to the
// original problem: the log-weight column is stripped, original
// log-likelihoods are restored (logl = logl_aux - logweight), sentinel
// points are dropped, and weights are renormalized. The posterior
// weights themselves are already correct because the reference density
// cancels inside the auxiliary likelihood.
func UnwrapHotStart(res *Result, rng *rand.Rand) *Result {
	src := res.WeightedSamples
	out := *res
	ws := WeightedSamples{}

	total := 0.0
	for i := range src.Weights {
		derived := src.Derived[i]
		logw := derived[len(derived)-1]
		if logw <= LogWeightSentinel {
			continue
		}
		ws.Weights = append(ws.Weights, src.Weights[i])
		ws.UPoints = append(ws.UPoints, src.UPoints[i])
		ws.Points = append(ws.Points, src.Points[i])
		ws.Derived = append(ws.Derived, derived[:len(derived)-1])
		ws.Logl = append(ws.Logl, src.Logl[i]-logw)
		total += src.Weights[i]
	}
	sumSq := 0.0
	for i := range ws.Weights {
		ws.Weights[i] /= total
		sumSq += ws.Weights[i] * ws.Weights[i]
	}
	if sumSq > 0 {
		out.ESS = 1 / sumSq
	}
	out.WeightedSamples = ws
	out.Samples = resampleEqual(ws, rng)
	return &out
}
