package ns

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nested-inference/nested-inference/ns/trace"
)

// initRetries bounds the rejection loop for initial prior draws that
// land on -Inf likelihood.
const initRetries = 100

// Sampler is one independent nested-sampling run: a live-point
// population, a constrained sampler, and an integrator, coordinated by
// a single goroutine. Multiple Samplers can coexist in one process.
type Sampler struct {
	space    *ParameterSpace
	cfg      Config
	rng      *PartitionedRNG
	live     *LiveSet
	integ    *Integrator
	csampler *ConstrainedSampler
	observer Observer
	cache    *ResumeCache
	started  time.Time
}

// Option customizes a Sampler.
type Option func(*Sampler)

// WithObserver installs a progress observer (default: NoopObserver).
func WithObserver(obs Observer) Option {
	return func(s *Sampler) { s.observer = obs }
}

// WithResumeCache seeds the live set from a previous run's cache,
// honoring Config.WarmStart.Mode.
func WithResumeCache(c *ResumeCache) Option {
	return func(s *Sampler) { s.cache = c }
}

// NewSampler creates a run for the given problem and configuration.
func NewSampler(space *ParameterSpace, cfg Config, opts ...Option) (*Sampler, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Sampler{
		space:    space,
		cfg:      cfg,
		rng:      NewPartitionedRNG(NewRunKey(cfg.Seed)),
		live:     NewLiveSet(),
		integ:    NewIntegrator(cfg.Integrator),
		csampler: NewConstrainedSampler(space, cfg.Sampler),
		observer: NoopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// State exposes the run state for diagnostics and cache persistence.
func (s *Sampler) State() *RunState { return s.integ.State() }

// LivePoints returns a copy of the current live population, used when
// persisting a resume cache.
func (s *Sampler) LivePoints() []Point { return s.live.Points() }

// Run executes the nested-sampling loop until a stopping criterion or
// budget fires. A run that cannot converge still returns its best
// current estimate with Status/StopReason explaining why; the error is
// non-nil only for hard failures (LikelihoodError, ResumeMismatch).
func (s *Sampler) Run(ctx context.Context) (*Result, error) {
	s.started = time.Now()

	if err := s.seedLiveSet(ctx); err != nil {
		s.integ.Finalize(StatusAborted, err.Error())
		return s.buildResult(), err
	}
	logrus.Infof("starting run: dim=%d nlive=%d seed=%d", s.space.Dim, s.live.Len(), s.cfg.Seed)

	var region *Region
	lastBuild := -1
	loops := 0

	for {
		// Budget and cancellation checks happen once per iteration,
		// never mid-proposal-batch.
		if ctx.Err() != nil {
			return s.finish(StatusExhausted, "cancelled"), nil
		}
		if stop, status, reason := s.integ.CheckStop(s.live.MaxLogl(), s.started); stop {
			if status == StatusConverged && loops < s.cfg.MaxNumImprovementLoops && s.live.Len() < s.cfg.MaxLivePoints {
				loops++
				region = s.growLiveSet(ctx, region, loops)
				continue
			}
			return s.finish(status, reason), nil
		}

		nLive := s.live.Len()
		dead := s.live.PopMin()
		s.integ.Step(dead, nLive)
		threshold := s.live.Threshold()

		rebuilt := false
		if region == nil || s.integ.State().Iteration-lastBuild >= s.cfg.Region.UpdateInterval {
			region = s.buildRegion(dead)
			lastBuild = s.integ.State().Iteration
			rebuilt = true
		}

		pt, ncalls, stalled, err := s.replace(ctx, region, threshold, dead)
		if err != nil {
			var stall *SamplingStalled
			if errors.As(err, &stall) {
				return s.finish(StatusExhausted, err.Error()), nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return s.finish(StatusExhausted, "cancelled"), nil
			}
			s.integ.Finalize(StatusAborted, err.Error())
			return s.buildResult(), err
		}
		if stalled {
			// The stall-recovery path rebuilt the region.
			region = nil
			rebuilt = true
		}
		s.live.Insert(pt)

		st := s.integ.State()
		s.observer.OnIteration(trace.IterationRecord{
			Iteration:  st.Iteration,
			Threshold:  dead.Logl,
			LogVolume:  st.LogVolume,
			LogZ:       st.LogZ,
			NCalls:     st.NCalls,
			BatchCalls: ncalls,
			RegionKind: string(region.KindOrRebuilding()),
			Rebuilt:    rebuilt,
			Stalled:    stalled,
			NLive:      s.live.Len(),
		})
	}
}

// seedLiveSet fills the initial population, from the resume cache when
// one is attached in a reusing mode, otherwise from fresh prior draws.
func (s *Sampler) seedLiveSet(ctx context.Context) error {
	mode := s.cfg.WarmStart.Mode
	if s.cache != nil && (mode == ResumeModeResume || mode == ResumeModeSimilar) {
		adapter := NewWarmStartAdapter(s.space, s.cfg.WarmStart)
		points, ncalls, err := adapter.Seed(ctx, s.cache, s.cfg.MinNumLivePoints, s.rng.ForSubsystem(SubsystemWarmStart))
		s.integ.AddCalls(ncalls)
		if err != nil {
			return err
		}
		for _, p := range points {
			s.live.Insert(p)
		}
		logrus.Infof("warm start: seeded %d live points for %d likelihood calls", len(points), ncalls)
		return nil
	}

	rng := s.rng.ForSubsystem(SubsystemInit)
	for i := 0; i < s.cfg.MinNumLivePoints; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		inserted := false
		for attempt := 0; attempt < initRetries; attempt++ {
			p, err := s.space.DrawPrior(rng)
			s.integ.AddCalls(1)
			if err != nil {
				return err
			}
			if !math.IsInf(p.Logl, -1) {
				s.live.Insert(p)
				inserted = true
				break
			}
		}
		if !inserted {
			return &LikelihoodError{Reason: fmt.Sprintf("no finite likelihood in %d prior draws", initRetries)}
		}
	}
	return nil
}

// buildRegion recomputes the region from the surviving live points. A
// momentarily empty live set (MinNumLivePoints=1) falls back to the
// just-removed point as the sole member.
func (s *Sampler) buildRegion(dead Point) *Region {
	us := s.live.UMatrix()
	if len(us) == 0 {
		us = [][]float64{dead.U}
	}
	return BuildRegion(us, s.cfg.Region, s.rng.ForSubsystem(SubsystemRegion))
}

// replace draws the iteration's replacement point, recovering from
// stalls with a bounded sequence of enlarged region rebuilds.
func (s *Sampler) replace(ctx context.Context, region *Region, threshold float64, dead Point) (Point, int, bool, error) {
	rng := s.rng.ForSubsystem(SubsystemProposal)
	total := 0
	stalledOnce := false
	for attempt := 0; ; attempt++ {
		pt, ncalls, err := s.csampler.Propose(ctx, region, threshold, rng)
		total += ncalls
		s.integ.AddCalls(ncalls)
		if err == nil {
			return pt, total, stalledOnce, nil
		}
		var stall *SamplingStalled
		if !errors.As(err, &stall) {
			return Point{}, total, stalledOnce, err
		}
		if attempt >= s.cfg.Sampler.MaxStallRebuilds {
			stall.Rebuilds = attempt
			return Point{}, total, true, stall
		}
		stalledOnce = true
		logrus.Warnf("sampling stalled at threshold %g (%d proposals), rebuilding region enlarged x%g",
			threshold, ncalls, s.cfg.Sampler.StallEnlarge)
		region = s.buildRegion(dead)
		region.Scale(math.Pow(s.cfg.Sampler.StallEnlarge, float64(attempt+1)))
	}
}

// growLiveSet reactively doubles the live population (capped at
// MaxLivePoints) with fresh draws above the current threshold,
// tightening the evidence variance of the eventual live-point fold.
func (s *Sampler) growLiveSet(ctx context.Context, region *Region, loop int) *Region {
	target := s.live.Len() * 2
	if target > s.cfg.MaxLivePoints {
		target = s.cfg.MaxLivePoints
	}
	k := target - s.live.Len()
	if k <= 0 {
		return region
	}
	if region == nil {
		region = BuildRegion(s.live.UMatrix(), s.cfg.Region, s.rng.ForSubsystem(SubsystemRegion))
	}

	rng := s.rng.ForSubsystem(SubsystemProposal)
	threshold := s.live.Threshold()
	added, ncalls := 0, 0
	for i := 0; i < k; i++ {
		pt, n, err := s.csampler.Propose(ctx, region, threshold, rng)
		ncalls += n
		s.integ.AddCalls(n)
		if err != nil {
			logrus.Warnf("live-set growth stopped after %d of %d points: %v", added, k, err)
			break
		}
		s.live.Insert(pt)
		added++
	}
	s.observer.OnGrowth(trace.GrowthRecord{
		Loop:      loop,
		Added:     added,
		NLive:     s.live.Len(),
		Threshold: threshold,
		NCalls:    ncalls,
	})
	return region
}

// finish folds the remaining live points, finalizes the state machine,
// and assembles the result.
func (s *Sampler) finish(status RunStatus, reason string) *Result {
	s.integ.FoldLive(s.live.Points())
	s.integ.Finalize(status, reason)
	return s.buildResult()
}

func (s *Sampler) buildResult() *Result {
	st := s.integ.State()
	res := newResult(s.space, st, s.integ.LogZErr(), s.rng.ForSubsystem(SubsystemPosterior))
	s.observer.OnDone(st)
	return res
}

// BootstrapLogZErr replays the finished run's shrinkage sequence to
// produce a resampling-based error estimate alongside Result.LogZErr.
func (s *Sampler) BootstrapLogZErr(nboot int) float64 {
	return s.integ.BootstrapLogZErr(s.rng.SourceFor(SubsystemBootstrap), nboot)
}

// KindOrRebuilding is a nil-safe accessor used for trace records.
func (r *Region) KindOrRebuilding() RegionKind {
	if r == nil {
		return "rebuilding"
	}
	return r.Kind
}
