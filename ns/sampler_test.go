package ns

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaussianSpace(dim int) *ParameterSpace {
	const sigma = 0.1
	return NewParameterSpace(dim, nil, identity, func(params []float64) float64 {
		r2 := 0.0
		for _, p := range params {
			d := p - 0.5
			r2 += d * d
		}
		return -r2 / (2 * sigma * sigma)
	})
}

func testRegion(t *testing.T, dim int) *Region {
	t.Helper()
	rng := NewPartitionedRNG(NewRunKey(11)).ForSubsystem(SubsystemRegion)
	us := clusterPoints(rng, 60, dim, 0.5, 0.4)
	return BuildRegion(us, NewRegionConfig(), rng)
}

func TestConstrainedSampler_AcceptsAboveThreshold(t *testing.T) {
	space := gaussianSpace(2)
	cs := NewConstrainedSampler(space, NewSamplerConfig())
	region := testRegion(t, 2)
	rng := NewPartitionedRNG(NewRunKey(12)).ForSubsystem(SubsystemProposal)

	threshold := -8.0
	pt, ncalls, err := cs.Propose(context.Background(), region, threshold, rng)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pt.Logl, threshold)
	assert.True(t, region.Contains(pt.U))
	assert.Greater(t, ncalls, 0)
}

func TestConstrainedSampler_StallsOnImpossibleThreshold(t *testing.T) {
	space := gaussianSpace(2) // log-likelihood is never positive
	cfg := NewSamplerConfig()
	cfg.MaxProposals = 64
	cs := NewConstrainedSampler(space, cfg)
	region := testRegion(t, 2)
	rng := NewPartitionedRNG(NewRunKey(13)).ForSubsystem(SubsystemProposal)

	_, ncalls, err := cs.Propose(context.Background(), region, 1.0, rng)
	var stall *SamplingStalled
	require.ErrorAs(t, err, &stall)
	assert.GreaterOrEqual(t, ncalls, cfg.MaxProposals)
	assert.Equal(t, 1.0, stall.Threshold)
}

func TestConstrainedSampler_DeterministicForFixedSeed(t *testing.T) {
	space := gaussianSpace(2)
	cs := NewConstrainedSampler(space, NewSamplerConfig())

	run := func() (Point, int) {
		p := NewPartitionedRNG(NewRunKey(21))
		us := clusterPoints(p.ForSubsystem(SubsystemRegion), 60, 2, 0.5, 0.4)
		region := BuildRegion(us, NewRegionConfig(), p.ForSubsystem(SubsystemRegion))
		pt, n, err := cs.Propose(context.Background(), region, -5, p.ForSubsystem(SubsystemProposal))
		require.NoError(t, err)
		return pt, n
	}
	p1, n1 := run()
	p2, n2 := run()
	assert.Equal(t, p1.U, p2.U)
	assert.Equal(t, p1.Logl, p2.Logl)
	assert.Equal(t, n1, n2)
}

func TestConstrainedSampler_PropagatesLikelihoodError(t *testing.T) {
	space := NewParameterSpace(2, nil, identity, func(params []float64) float64 {
		return math.NaN()
	})
	cs := NewConstrainedSampler(space, NewSamplerConfig())
	region := testRegion(t, 2)
	rng := NewPartitionedRNG(NewRunKey(14)).ForSubsystem(SubsystemProposal)

	_, _, err := cs.Propose(context.Background(), region, -1, rng)
	var lerr *LikelihoodError
	assert.ErrorAs(t, err, &lerr)
}

func TestConstrainedSampler_RespectsCancelledContext(t *testing.T) {
	space := gaussianSpace(2)
	cs := NewConstrainedSampler(space, NewSamplerConfig())
	region := testRegion(t, 2)
	rng := NewPartitionedRNG(NewRunKey(15)).ForSubsystem(SubsystemProposal)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := cs.Propose(ctx, region, -1, rng)
	assert.ErrorIs(t, err, context.Canceled)
}
