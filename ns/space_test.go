package ns

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(u []float64) []float64 {
	out := make([]float64, len(u))
	copy(out, u)
	return out
}

func TestEvaluate_SplitsParamsAndDerived(t *testing.T) {
	space := &ParameterSpace{
		Dim:        2,
		ParamNames: []string{"a", "b"},
		NumDerived: 1,
		Transform: func(u []float64) []float64 {
			return []float64{u[0], u[1], u[0] + u[1]}
		},
		LogLikelihood: func(params []float64) float64 { return -params[2] },
	}
	p, err := space.Evaluate([]float64{0.25, 0.5})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.5}, p.Params)
	assert.Equal(t, []float64{0.75}, p.Derived)
	assert.Equal(t, -0.75, p.Logl)
}

func TestEvaluate_CopiesInput(t *testing.T) {
	space := NewParameterSpace(1, nil, identity, func(params []float64) float64 { return 0 })
	u := []float64{0.5}
	p, err := space.Evaluate(u)
	require.NoError(t, err)
	u[0] = 0.9
	assert.Equal(t, 0.5, p.U[0])
}

func TestEvaluate_NegInfIsNotAnError(t *testing.T) {
	space := NewParameterSpace(1, nil, identity, func(params []float64) float64 { return math.Inf(-1) })
	p, err := space.Evaluate([]float64{0.1})
	require.NoError(t, err)
	assert.True(t, math.IsInf(p.Logl, -1))
}

func TestEvaluate_NaNLikelihoodFails(t *testing.T) {
	space := NewParameterSpace(1, nil, identity, func(params []float64) float64 { return math.NaN() })
	_, err := space.Evaluate([]float64{0.1})
	var lerr *LikelihoodError
	assert.ErrorAs(t, err, &lerr)
}

func TestEvaluate_BadTransformLengthFails(t *testing.T) {
	space := NewParameterSpace(2, nil, func(u []float64) []float64 {
		return []float64{u[0]}
	}, func(params []float64) float64 { return 0 })
	_, err := space.Evaluate([]float64{0.1, 0.2})
	var lerr *LikelihoodError
	assert.ErrorAs(t, err, &lerr)
}

func TestEvaluate_WrongInputLengthFails(t *testing.T) {
	space := NewParameterSpace(2, nil, identity, func(params []float64) float64 { return 0 })
	_, err := space.Evaluate([]float64{0.1})
	var lerr *LikelihoodError
	assert.ErrorAs(t, err, &lerr)
}

func TestDrawPrior_InsideCube(t *testing.T) {
	space := NewParameterSpace(3, nil, identity, func(params []float64) float64 { return 0 })
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 50; i++ {
		p, err := space.DrawPrior(rng)
		require.NoError(t, err)
		for _, v := range p.U {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.Less(t, v, 1.0)
		}
	}
}

func TestNewParameterSpace_DefaultNames(t *testing.T) {
	space := NewParameterSpace(2, nil, identity, func(params []float64) float64 { return 0 })
	assert.Equal(t, []string{"p0", "p1"}, space.ParamNames)
}
