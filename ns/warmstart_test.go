package ns

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shiftedGaussianSpace is gaussianSpace with the peak moved by shift on
// every axis, emulating a likelihood whose data changed slightly.
func shiftedGaussianSpace(dim int, shift float64) *ParameterSpace {
	const sigma = 0.1
	return NewParameterSpace(dim, nil, identity, func(params []float64) float64 {
		r2 := 0.0
		for _, p := range params {
			d := p - 0.5 - shift
			r2 += d * d
		}
		return -r2 / (2 * sigma * sigma)
	})
}

func cacheFromRun(t *testing.T, space *ParameterSpace, seed int64) *ResumeCache {
	t.Helper()
	s, err := NewSampler(space, testConfig(seed))
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	require.NoError(t, err)

	c := &ResumeCache{Dim: space.Dim, ParamNames: space.ParamNames}
	for _, d := range s.State().Dead {
		c.Points = append(c.Points, CachedPoint{U: d.U, Params: d.Params, Logl: d.Logl})
	}
	return c
}

func TestWarmStart_DimensionMismatchFailsHard(t *testing.T) {
	adapter := NewWarmStartAdapter(gaussianSpace(3), NewWarmStartConfig())
	cache := &ResumeCache{Dim: 2, Points: []CachedPoint{{U: []float64{0.5, 0.5}, Logl: 0}}}
	_, _, err := adapter.Seed(context.Background(), cache, 10, NewPartitionedRNG(1).ForSubsystem(SubsystemWarmStart))
	var mismatch *ResumeMismatch
	assert.ErrorAs(t, err, &mismatch)
}

func TestWarmStart_ParamNameMismatchFailsHard(t *testing.T) {
	space := NewParameterSpace(1, []string{"mass"}, identity, func(p []float64) float64 { return 0 })
	adapter := NewWarmStartAdapter(space, NewWarmStartConfig())
	cache := &ResumeCache{
		Dim:        1,
		ParamNames: []string{"radius"},
		Points:     []CachedPoint{{U: []float64{0.5}, Params: []float64{0.5}, Logl: 0}},
	}
	_, _, err := adapter.Seed(context.Background(), cache, 5, NewPartitionedRNG(1).ForSubsystem(SubsystemWarmStart))
	var mismatch *ResumeMismatch
	assert.ErrorAs(t, err, &mismatch)
}

func TestWarmStart_EmptyCacheFailsHard(t *testing.T) {
	adapter := NewWarmStartAdapter(gaussianSpace(2), NewWarmStartConfig())
	cache := &ResumeCache{Dim: 2}
	_, _, err := adapter.Seed(context.Background(), cache, 5, NewPartitionedRNG(1).ForSubsystem(SubsystemWarmStart))
	var mismatch *ResumeMismatch
	assert.ErrorAs(t, err, &mismatch)
}

func TestWarmStart_TrustingModeSpendsNoCalls(t *testing.T) {
	space := gaussianSpace(2)
	cache := cacheFromRun(t, space, 31)

	cfg := NewWarmStartConfig()
	cfg.Mode = ResumeModeResume
	adapter := NewWarmStartAdapter(space, cfg)
	seeds, ncalls, err := adapter.Seed(context.Background(), cache, 100, NewPartitionedRNG(32).ForSubsystem(SubsystemWarmStart))
	require.NoError(t, err)
	assert.Equal(t, 0, ncalls)
	assert.Len(t, seeds, 100)
}

func TestWarmStart_SimilarLikelihoodReusesCache(t *testing.T) {
	base := gaussianSpace(2)
	cache := cacheFromRun(t, base, 33)

	// A tiny peak shift changes every cached log-likelihood by a small,
	// smoothly-varying amount: the Δ spread stays within tau.
	perturbed := shiftedGaussianSpace(2, 0.001)
	cfg := NewWarmStartConfig()
	cfg.Mode = ResumeModeSimilar
	adapter := NewWarmStartAdapter(perturbed, cfg)
	seeds, ncalls, err := adapter.Seed(context.Background(), cache, 100, NewPartitionedRNG(34).ForSubsystem(SubsystemWarmStart))
	require.NoError(t, err)
	assert.Len(t, seeds, 100)
	// Only the probe subset was re-evaluated.
	assert.LessOrEqual(t, ncalls, cfg.ProbeSize)
	for _, p := range seeds {
		assert.False(t, math.IsInf(p.Logl, -1))
	}
}

func TestWarmStart_DissimilarLikelihoodFilters(t *testing.T) {
	base := gaussianSpace(2)
	cache := cacheFromRun(t, base, 35)

	// Moving the peak far away produces wildly varying Δ: the adapter
	// must fall back to filtering and re-evaluate the full cache.
	perturbed := shiftedGaussianSpace(2, 0.3)
	cfg := NewWarmStartConfig()
	cfg.Mode = ResumeModeSimilar
	cfg.MaxTau = 0.5
	adapter := NewWarmStartAdapter(perturbed, cfg)
	seeds, ncalls, err := adapter.Seed(context.Background(), cache, 100, NewPartitionedRNG(36).ForSubsystem(SubsystemWarmStart))
	require.NoError(t, err)
	assert.Len(t, seeds, 100)
	assert.Greater(t, ncalls, cfg.ProbeSize)
}

func TestWarmStart_RunSavesCallsAndAgreesOnPosterior(t *testing.T) {
	base := gaussianSpace(2)
	cache := cacheFromRun(t, base, 37)
	perturbed := shiftedGaussianSpace(2, 0.001)

	cold, err := NewSampler(perturbed, testConfig(38))
	require.NoError(t, err)
	coldRes, err := cold.Run(context.Background())
	require.NoError(t, err)

	warmCfg := testConfig(38)
	warmCfg.WarmStart.Mode = ResumeModeSimilar
	warmCfg.WarmStart.ProbeSize = 24
	warm, err := NewSampler(perturbed, warmCfg, WithResumeCache(cache))
	require.NoError(t, err)
	warmRes, err := warm.Run(context.Background())
	require.NoError(t, err)

	assert.Less(t, warmRes.NCalls, coldRes.NCalls,
		"warm start must spend fewer likelihood calls than a cold start")
	cm := coldRes.PosteriorMean()
	wm := warmRes.PosteriorMean()
	for i := range cm {
		assert.InDelta(t, cm[i], wm[i], 0.05)
	}
}

func TestWarmStart_SeedsSatisfyOrderingInvariant(t *testing.T) {
	space := gaussianSpace(2)
	cache := cacheFromRun(t, space, 39)
	cfg := NewWarmStartConfig()
	cfg.Mode = ResumeModeResume
	adapter := NewWarmStartAdapter(space, cfg)
	seeds, _, err := adapter.Seed(context.Background(), cache, 50, NewPartitionedRNG(40).ForSubsystem(SubsystemWarmStart))
	require.NoError(t, err)

	ls := NewLiveSet()
	assert.NotPanics(t, func() {
		for _, p := range seeds {
			ls.Insert(p)
		}
	})
	assert.Equal(t, 50, ls.Len())
}

func TestStratifyByLikelihood_CoversRange(t *testing.T) {
	pool := make([]Point, 100)
	for i := range pool {
		pool[i] = mkPoint(float64(i))
	}
	picked := stratifyByLikelihood(pool, 10)
	require.Len(t, picked, 10)
	assert.Equal(t, 0.0, picked[0].Logl)
	assert.Equal(t, 99.0, picked[9].Logl)
}

func TestRobustSpread(t *testing.T) {
	flat := []float64{1, 1, 1, 1, 1}
	assert.InDelta(t, 0.0, robustSpread(flat), 1e-12)
	assert.Equal(t, 0.0, robustSpread([]float64{3}))
}
