package ns

import (
	"math"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
)

// RegionKind selects the constrained-region representation.
type RegionKind string

const (
	// RegionEllipsoid covers the live set with a single enlarged
	// bounding ellipsoid.
	RegionEllipsoid RegionKind = "ellipsoid"
	// RegionMLFriends covers the live set with a union of equal-radius
	// balls, one per live point, with a bootstrap-calibrated radius.
	RegionMLFriends RegionKind = "mlfriends"
)

// RegionConfig groups region construction parameters.
type RegionConfig struct {
	Enlarge        float64 // ellipsoid volume enlargement factor (default 1.25)
	Bootstraps     int     // bootstrap rounds for MLFriends radius calibration (default 30)
	UpdateInterval int     // rebuild the region every this many iterations (default 15)
	ForceKind      RegionKind
}

// NewRegionConfig returns a RegionConfig with defaults applied.
func NewRegionConfig() RegionConfig {
	return RegionConfig{Enlarge: 1.25, Bootstraps: 30, UpdateInterval: 15}
}

// Region is the constrained-sampling region derived from the live set:
// a membership test plus a uniform proposal generator. Membership must
// over-cover the true likelihood-constrained prior region with high
// probability; rejection-sampling correctness depends on it.
type Region struct {
	Kind RegionKind
	Ell  *Ellipsoid

	dim       int
	members   [][]float64 // live u-points (MLFriends only)
	radius2   float64     // squared ball radius (MLFriends only)
	volume    float64
	proposals int // candidate generations since build, for diagnostics
}

// chooseRegionKind picks the representation from live-set geometry: the
// union-of-balls needs enough neighbors to calibrate a radius, and in
// high dimensions the balls carry negligible volume relative to the
// bounding ellipsoid.
func chooseRegionKind(n, dim int) RegionKind {
	if n >= 25 && dim <= 20 {
		return RegionMLFriends
	}
	return RegionEllipsoid
}

// BuildRegion constructs a fresh Region from the live-point u-matrix.
// Always recomputed from scratch, never incrementally mutated.
func BuildRegion(us [][]float64, cfg RegionConfig, rng *rand.Rand) *Region {
	n := len(us)
	dim := len(us[0])

	kind := cfg.ForceKind
	if kind == "" {
		kind = chooseRegionKind(n, dim)
	}

	r := &Region{
		Kind: kind,
		Ell:  FitEllipsoid(us, cfg.Enlarge),
		dim:  dim,
	}

	switch kind {
	case RegionMLFriends:
		r.members = us
		r.radius2 = mlfriendsRadius2(us, cfg.Bootstraps, rng)
		r.volume = r.estimateUnionVolume(rng)
	default:
		r.volume = math.Min(math.Exp(r.Ell.LogVolume()), 1)
	}
	logrus.Debugf("region rebuilt: kind=%s n=%d dim=%d volume=%.3g", kind, n, dim, r.volume)
	return r
}

// mlfriendsRadius2 calibrates the shared ball radius by bootstrap
// resampling: in each round, points left out of the resample must be
// reachable from some selected point, and the radius is the largest
// such nearest-neighbor distance seen across rounds.
func mlfriendsRadius2(us [][]float64, rounds int, rng *rand.Rand) float64 {
	n := len(us)
	maxR2 := 0.0
	if rounds < 1 {
		rounds = 1
	}
	for b := 0; b < rounds; b++ {
		selected := make([]bool, n)
		for i := 0; i < n; i++ {
			selected[rng.IntN(n)] = true
		}
		for i := 0; i < n; i++ {
			if selected[i] {
				continue
			}
			nearest := math.Inf(1)
			for j := 0; j < n; j++ {
				if !selected[j] {
					continue
				}
				d2 := sqDist(us[i], us[j])
				if d2 < nearest {
					nearest = d2
				}
			}
			if !math.IsInf(nearest, 1) && nearest > maxR2 {
				maxR2 = nearest
			}
		}
	}
	if maxR2 == 0 {
		// Collapsed live set; fall back to a tiny fixed radius.
		maxR2 = 1e-12
	}
	return maxR2
}

// Contains tests region membership. Points outside the unit cube are
// never members.
func (r *Region) Contains(u []float64) bool {
	if !inUnitCube(u) {
		return false
	}
	if r.Kind == RegionMLFriends {
		for _, m := range r.members {
			if sqDist(u, m) <= r.radius2 {
				return true
			}
		}
		return false
	}
	return r.Ell.Contains(u)
}

// Propose generates one candidate drawn uniformly from the region, or
// nil when the draw missed (outside the cube, or rejected by the
// union-of-balls multiplicity correction). Callers loop.
func (r *Region) Propose(rng *rand.Rand) []float64 {
	r.proposals++
	if r.Kind == RegionMLFriends {
		i := rng.IntN(len(r.members))
		radius := math.Sqrt(r.radius2)
		z := sampleUnitBall(rng, r.dim)
		u := make([]float64, r.dim)
		for j := range u {
			u[j] = r.members[i][j] + radius*z[j]
		}
		if !inUnitCube(u) {
			return nil
		}
		// Uniformity over the union: accept with probability 1/m where
		// m is the number of balls containing the candidate.
		m := 0
		for _, mem := range r.members {
			if sqDist(u, mem) <= r.radius2 {
				m++
			}
		}
		if m > 1 && rng.Float64() > 1/float64(m) {
			return nil
		}
		return u
	}

	u := r.Ell.Sample(rng)
	if !inUnitCube(u) {
		return nil
	}
	return u
}

// VolumeEstimate returns the region's effective volume relative to the
// unit cube. Diagnostic only; the evidence sum uses analytic shrinkage.
func (r *Region) VolumeEstimate() float64 {
	return r.volume
}

// Scale multiplies the region volume by factor (> 1 to enlarge), used
// by the stall-recovery rebuild path.
func (r *Region) Scale(factor float64) {
	r.Ell.Scale(factor)
	if r.Kind == RegionMLFriends {
		r.radius2 *= math.Pow(factor, 2/float64(r.dim))
	}
}

// estimateUnionVolume Monte-Carlo estimates the union-of-balls volume:
// n * V_ball * E[1/multiplicity], clipped to the unit cube trivially by
// the probe rejection.
func (r *Region) estimateUnionVolume(rng *rand.Rand) float64 {
	const probes = 64
	n := len(r.members)
	radius := math.Sqrt(r.radius2)
	logBall := logUnitBallVolume(r.dim) + float64(r.dim)*math.Log(radius)

	sumInv := 0.0
	for p := 0; p < probes; p++ {
		i := rng.IntN(n)
		z := sampleUnitBall(rng, r.dim)
		u := make([]float64, r.dim)
		for j := range u {
			u[j] = r.members[i][j] + radius*z[j]
		}
		if !inUnitCube(u) {
			continue
		}
		m := 0
		for _, mem := range r.members {
			if sqDist(u, mem) <= r.radius2 {
				m++
			}
		}
		sumInv += 1 / float64(m)
	}
	v := float64(n) * math.Exp(logBall) * sumInv / probes
	return math.Min(v, 1)
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func inUnitCube(u []float64) bool {
	for _, v := range u {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}
