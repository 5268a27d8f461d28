package ns

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// TransformFunc maps a unit-hypercube point to physical parameters.
// Must be pure, deterministic, and total on [0,1]^d. The output may be
// longer than d; trailing entries are derived quantities carried along
// with the sample (hot start uses this for its log-weight column).
type TransformFunc func(u []float64) []float64

// LogLikelihoodFunc returns the log-likelihood of a transform output.
// Must be pure. The argument is the FULL transform output (physical
// parameters followed by any derived entries). -Inf means "never
// accept"; NaN or +Inf is an evaluation error.
type LogLikelihoodFunc func(params []float64) float64

// ParameterSpace wraps the problem definition: dimensionality, parameter
// names, and the user-supplied transform/likelihood pair.
type ParameterSpace struct {
	Dim           int
	ParamNames    []string
	NumDerived    int // extra transform outputs beyond Dim (0 for plain problems)
	Transform     TransformFunc
	LogLikelihood LogLikelihoodFunc
}

// NewParameterSpace builds a ParameterSpace for a plain problem with no
// derived outputs. Parameter names default to p0..p{d-1} when nil.
func NewParameterSpace(dim int, names []string, transform TransformFunc, loglike LogLikelihoodFunc) *ParameterSpace {
	if names == nil {
		names = make([]string, dim)
		for i := range names {
			names[i] = fmt.Sprintf("p%d", i)
		}
	}
	return &ParameterSpace{
		Dim:           dim,
		ParamNames:    names,
		Transform:     transform,
		LogLikelihood: loglike,
	}
}

// Point is a single evaluated sample. Immutable once created: u is
// canonical, params/derived are deterministic functions of u, and Logl
// is the likelihood at creation time. Points are produced only through
// ParameterSpace.Evaluate.
type Point struct {
	U       []float64
	Params  []float64
	Derived []float64
	Logl    float64

	// seq is the LiveSet insertion order, used for stable tie-breaks.
	// Zero until the point enters a LiveSet.
	seq uint64
}

// Evaluate runs the transform and likelihood for a unit-cube position
// and returns the resulting Point. The input slice is copied.
//
// A -Inf log-likelihood yields a valid (never-acceptable) Point. NaN or
// +Inf from the likelihood, or a malformed transform output, returns a
// LikelihoodError.
func (s *ParameterSpace) Evaluate(u []float64) (Point, error) {
	if len(u) != s.Dim {
		return Point{}, &LikelihoodError{Reason: fmt.Sprintf("cube point has %d entries, want %d", len(u), s.Dim)}
	}
	uc := make([]float64, s.Dim)
	copy(uc, u)

	out := s.Transform(uc)
	want := s.Dim + s.NumDerived
	if len(out) != want {
		return Point{}, &LikelihoodError{Reason: fmt.Sprintf("transform returned %d entries, want %d", len(out), want)}
	}
	for i, v := range out {
		if math.IsNaN(v) {
			return Point{}, &LikelihoodError{Reason: fmt.Sprintf("transform output %d is NaN", i), Params: out}
		}
	}

	logl := s.LogLikelihood(out)
	if math.IsNaN(logl) || math.IsInf(logl, 1) {
		return Point{}, &LikelihoodError{Reason: fmt.Sprintf("log-likelihood is %v", logl), Params: out}
	}

	return Point{
		U:       uc,
		Params:  out[:s.Dim:s.Dim],
		Derived: out[s.Dim:],
		Logl:    logl,
	}, nil
}

// DrawPrior evaluates a fresh uniform draw from the unit hypercube.
func (s *ParameterSpace) DrawPrior(rng *rand.Rand) (Point, error) {
	u := make([]float64, s.Dim)
	for i := range u {
		u[i] = rng.Float64()
	}
	return s.Evaluate(u)
}
