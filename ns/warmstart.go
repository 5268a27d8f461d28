package ns

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// CachedPoint is one entry of a previous run's persisted sample set.
type CachedPoint struct {
	U      []float64
	Params []float64
	Logl   float64
}

// ResumeCache is a previous run's point set, consumed to seed a new
// run. The on-disk format lives in ns/cache; the engine only sees this
// decoded form.
type ResumeCache struct {
	Dim        int
	ParamNames []string
	Points     []CachedPoint
}

// WarmStartAdapter reseeds a run from a ResumeCache. In
// ResumeModeResume the cached log-likelihoods are trusted outright; in
// ResumeModeSimilar a probe subset is re-evaluated under the current
// likelihood, and the cached population is reused only when the change
// Δ = logl_new − logl_old has a small robust spread.
//
// The similarity statistic is the central 90% interquantile range of Δ
// (p95 − p5), compared against WarmStartConfig.MaxTau. A wide spread
// keeps only points with |Δ − median(Δ)| <= MaxTau and tops the set up
// with fresh prior draws.
type WarmStartAdapter struct {
	space *ParameterSpace
	cfg   WarmStartConfig
}

// NewWarmStartAdapter creates an adapter for the current problem.
func NewWarmStartAdapter(space *ParameterSpace, cfg WarmStartConfig) *WarmStartAdapter {
	return &WarmStartAdapter{space: space, cfg: cfg}
}

// Seed produces n initial live points from the cache, returning the
// number of likelihood calls spent. Every returned point has a finite
// or -Inf-free log-likelihood, so the LiveSet ordering invariant holds
// from the first iteration.
func (w *WarmStartAdapter) Seed(ctx context.Context, cache *ResumeCache, n int, rng *rand.Rand) ([]Point, int, error) {
	if err := w.validate(cache); err != nil {
		return nil, 0, err
	}

	ncalls := 0
	var pool []Point
	switch w.cfg.Mode {
	case ResumeModeResume:
		for _, cp := range cache.Points {
			if math.IsInf(cp.Logl, -1) || math.IsNaN(cp.Logl) {
				continue
			}
			pool = append(pool, Point{U: cp.U, Params: cp.Params, Logl: cp.Logl})
		}
	case ResumeModeSimilar:
		var err error
		pool, ncalls, err = w.filterSimilar(ctx, cache, rng)
		if err != nil {
			return nil, ncalls, err
		}
	default:
		return nil, 0, fmt.Errorf("warm start invoked with non-reusing mode %q", w.cfg.Mode)
	}

	seeds := stratifyByLikelihood(pool, n)

	// Top up with fresh prior draws when the cache cannot cover n.
	for len(seeds) < n {
		if ctx.Err() != nil {
			return nil, ncalls, ctx.Err()
		}
		p, err := w.space.DrawPrior(rng)
		ncalls++
		if err != nil {
			return nil, ncalls, err
		}
		if !math.IsInf(p.Logl, -1) {
			seeds = append(seeds, p)
		}
	}
	return seeds, ncalls, nil
}

func (w *WarmStartAdapter) validate(cache *ResumeCache) error {
	if cache.Dim != w.space.Dim {
		return &ResumeMismatch{Reason: fmt.Sprintf("cache dimensionality %d, problem has %d", cache.Dim, w.space.Dim)}
	}
	if len(cache.ParamNames) > 0 && len(w.space.ParamNames) > 0 {
		if len(cache.ParamNames) != len(w.space.ParamNames) {
			return &ResumeMismatch{Reason: "parameter name count differs"}
		}
		for i, name := range cache.ParamNames {
			if name != w.space.ParamNames[i] {
				return &ResumeMismatch{Reason: fmt.Sprintf("parameter %d named %q in cache, %q in problem", i, name, w.space.ParamNames[i])}
			}
		}
	}
	if len(cache.Points) == 0 {
		return &ResumeMismatch{Reason: "cache holds no points"}
	}
	return nil
}

// filterSimilar implements the resume-similar Δ-spread decision.
func (w *WarmStartAdapter) filterSimilar(ctx context.Context, cache *ResumeCache, rng *rand.Rand) ([]Point, int, error) {
	total := len(cache.Points)
	probeSize := w.cfg.ProbeSize
	if probeSize > total {
		probeSize = total
	}
	probeIdx := rng.Perm(total)[:probeSize]

	ncalls := 0
	probed := make(map[int]Point, probeSize)
	deltas := make([]float64, 0, probeSize)
	for _, i := range probeIdx {
		if ctx.Err() != nil {
			return nil, ncalls, ctx.Err()
		}
		p, err := w.space.Evaluate(cache.Points[i].U)
		ncalls++
		if err != nil {
			return nil, ncalls, err
		}
		probed[i] = p
		if !math.IsInf(p.Logl, -1) && !math.IsInf(cache.Points[i].Logl, -1) {
			deltas = append(deltas, p.Logl-cache.Points[i].Logl)
		}
	}

	spread := robustSpread(deltas)
	if spread <= w.cfg.MaxTau {
		// Similar enough: reuse the full cached population, paying only
		// for the probe evaluations.
		logrus.Infof("warm start: Δ-logl spread %.3g within tau %.3g, reusing %d cached points", spread, w.cfg.MaxTau, total)
		pool := make([]Point, 0, total)
		for i, cp := range cache.Points {
			if p, ok := probed[i]; ok {
				if !math.IsInf(p.Logl, -1) {
					pool = append(pool, p)
				}
				continue
			}
			if !math.IsInf(cp.Logl, -1) && !math.IsNaN(cp.Logl) {
				pool = append(pool, Point{U: cp.U, Params: cp.Params, Logl: cp.Logl})
			}
		}
		return pool, ncalls, nil
	}

	// Too different: re-evaluate everything and keep only points whose
	// change sits near the median shift.
	logrus.Warnf("warm start: Δ-logl spread %.3g exceeds tau %.3g, filtering cached points", spread, w.cfg.MaxTau)
	median := medianOf(deltas)
	var pool []Point
	for i, cp := range cache.Points {
		if ctx.Err() != nil {
			return nil, ncalls, ctx.Err()
		}
		p, ok := probed[i]
		if !ok {
			var err error
			p, err = w.space.Evaluate(cp.U)
			ncalls++
			if err != nil {
				return nil, ncalls, err
			}
		}
		if math.IsInf(p.Logl, -1) || math.IsInf(cp.Logl, -1) {
			continue
		}
		if math.Abs((p.Logl-cp.Logl)-median) <= w.cfg.MaxTau {
			pool = append(pool, p)
		}
	}
	return pool, ncalls, nil
}

// stratifyByLikelihood picks up to n points spread evenly across the
// pool's likelihood range, approximating the spread of fresh prior
// draws better than taking the likelihood top-n would.
func stratifyByLikelihood(pool []Point, n int) []Point {
	sorted := make([]Point, len(pool))
	copy(sorted, pool)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Logl < sorted[j].Logl })

	if len(sorted) <= n {
		return sorted
	}
	out := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		idx := 0
		if n > 1 {
			idx = i * (len(sorted) - 1) / (n - 1)
		}
		out = append(out, sorted[idx])
	}
	return out
}

// robustSpread returns the central 90% interquantile range (p95 - p5).
func robustSpread(deltas []float64) float64 {
	if len(deltas) < 2 {
		return 0
	}
	sorted := make([]float64, len(deltas))
	copy(sorted, deltas)
	sort.Float64s(sorted)
	return stat.Quantile(0.95, stat.Empirical, sorted, nil) - stat.Quantile(0.05, stat.Empirical, sorted, nil)
}

func medianOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
