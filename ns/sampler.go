package ns

import (
	"context"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
)

// SamplerConfig groups constrained-sampler parameters.
type SamplerConfig struct {
	BatchSize        int     // candidates per parallel evaluation batch (default 16)
	Workers          int     // concurrent likelihood evaluations (default 4)
	MaxProposals     int     // likelihood calls per replacement before declaring a stall (default 10000)
	MaxStallRebuilds int     // region rebuilds attempted after a stall (default 5)
	StallEnlarge     float64 // region volume growth per stall rebuild (default 2.0)
}

// NewSamplerConfig returns a SamplerConfig with defaults applied.
func NewSamplerConfig() SamplerConfig {
	return SamplerConfig{
		BatchSize:        16,
		Workers:          4,
		MaxProposals:     10000,
		MaxStallRebuilds: 5,
		StallEnlarge:     2.0,
	}
}

// maxMissesPerCandidate bounds the candidate-generation loop (draws that
// land outside the cube or fail the union multiplicity correction)
// before the region is considered degenerate.
const maxMissesPerCandidate = 10000

// ConstrainedSampler draws replacement points above a likelihood
// threshold from within a Region.
//
// Candidate positions are generated sequentially from the coordinator's
// RNG; only the pure likelihood evaluations run on the worker pool, and
// acceptance scans results in generation order, so the accepted-point
// sequence is reproducible for a fixed seed regardless of parallelism.
type ConstrainedSampler struct {
	space *ParameterSpace
	cfg   SamplerConfig
}

// NewConstrainedSampler creates a sampler for the given problem.
func NewConstrainedSampler(space *ParameterSpace, cfg SamplerConfig) *ConstrainedSampler {
	return &ConstrainedSampler{space: space, cfg: cfg}
}

// Propose draws one point with Logl >= threshold from the region.
// It returns the accepted point and the number of likelihood calls
// spent. Acceptance uses >= (not >) so likelihood plateaus drain by
// volume shrinkage instead of stalling forever.
//
// Returns SamplingStalled when MaxProposals likelihood calls (or a
// degenerate generation loop) yield no acceptance; the caller rebuilds
// the region before retrying.
func (cs *ConstrainedSampler) Propose(ctx context.Context, region *Region, threshold float64, rng *rand.Rand) (Point, int, error) {
	ncalls := 0
	for ncalls < cs.cfg.MaxProposals {
		if err := ctx.Err(); err != nil {
			return Point{}, ncalls, err
		}

		batch := make([][]float64, 0, cs.cfg.BatchSize)
		misses := 0
		for len(batch) < cs.cfg.BatchSize {
			u := region.Propose(rng)
			if u == nil {
				misses++
				if misses > maxMissesPerCandidate {
					return Point{}, ncalls, &SamplingStalled{Threshold: threshold, Proposals: ncalls}
				}
				continue
			}
			batch = append(batch, u)
		}

		points := make([]Point, len(batch))
		evalErrs := make([]error, len(batch))
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(cs.cfg.Workers)
		for i, u := range batch {
			g.Go(func() error {
				points[i], evalErrs[i] = cs.space.Evaluate(u)
				return nil
			})
		}
		g.Wait()
		ncalls += len(batch)

		// Fold results back in generation order: the first acceptable
		// candidate wins, independent of evaluation completion order.
		for i := range points {
			if evalErrs[i] != nil {
				return Point{}, ncalls, evalErrs[i]
			}
			if points[i].Logl >= threshold && region.Contains(points[i].U) {
				return points[i], ncalls, nil
			}
		}
	}
	return Point{}, ncalls, &SamplingStalled{Threshold: threshold, Proposals: ncalls}
}
