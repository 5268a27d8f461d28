package ns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoPointResult() *Result {
	return &Result{
		ParamNames: []string{"a"},
		WeightedSamples: WeightedSamples{
			Weights: []float64{0.25, 0.75},
			Points:  [][]float64{{1}, {3}},
			Logl:    []float64{-1, 0},
		},
	}
}

func TestPosteriorMean_Weighted(t *testing.T) {
	res := twoPointResult()
	m := res.PosteriorMean()
	require.Len(t, m, 1)
	assert.InDelta(t, 2.5, m[0], 1e-12)
}

func TestResampleEqual_EmptyInput(t *testing.T) {
	rng := NewPartitionedRNG(NewRunKey(61)).ForSubsystem(SubsystemPosterior)
	assert.Nil(t, resampleEqual(WeightedSamples{}, rng))
}

func TestResampleEqual_DegenerateWeightPicksThatPoint(t *testing.T) {
	ws := WeightedSamples{
		Weights: []float64{0, 1, 0},
		Points:  [][]float64{{1}, {2}, {3}},
	}
	rng := NewPartitionedRNG(NewRunKey(62)).ForSubsystem(SubsystemPosterior)
	out := resampleEqual(ws, rng)
	require.NotEmpty(t, out)
	for _, p := range out {
		assert.Equal(t, []float64{2}, p)
	}
}

func TestResampleEqual_FrequenciesTrackWeights(t *testing.T) {
	ws := WeightedSamples{
		Weights: make([]float64, 1000),
		Points:  make([][]float64, 1000),
	}
	for i := range ws.Weights {
		ws.Weights[i] = 1.0 / 1000
		v := 0.0
		if i < 300 {
			v = 1
		}
		ws.Points[i] = []float64{v}
	}
	rng := NewPartitionedRNG(NewRunKey(63)).ForSubsystem(SubsystemPosterior)
	out := resampleEqual(ws, rng)
	require.NotEmpty(t, out)

	ones := 0
	for _, p := range out {
		if p[0] == 1 {
			ones++
		}
	}
	assert.InDelta(t, 0.3, float64(ones)/float64(len(out)), 0.05)
}

func TestResultConverged(t *testing.T) {
	assert.True(t, (&Result{Status: StatusConverged}).Converged())
	assert.False(t, (&Result{Status: StatusExhausted}).Converged())
	assert.False(t, (&Result{Status: StatusAborted}).Converged())
}
