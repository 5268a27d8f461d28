package ns

import (
	"math"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Ellipsoid is a bounding ellipsoid over live points in u-space:
// {u : mahalanobis(u, center) <= radius} under the live-set covariance.
type Ellipsoid struct {
	Center []float64
	Radius float64 // Mahalanobis radius after enlargement

	dim  int
	chol mat.Cholesky
	l    mat.TriDense // lower Cholesky factor of the covariance
}

// minCovarianceJitter is the starting diagonal jitter applied when the
// live-set covariance is singular (DegenerateRegion recovery).
const minCovarianceJitter = 1e-10

// FitEllipsoid builds the minimal-volume-style bounding ellipsoid of the
// given u-space points, then scales its volume by enlarge (>= 1).
//
// A singular covariance (collapsed live set, e.g. a likelihood plateau
// or n < dim+1) is recovered locally by adding diagonal jitter until the
// Cholesky factorization succeeds. This is a diagnostic, not an error.
func FitEllipsoid(us [][]float64, enlarge float64) *Ellipsoid {
	n := len(us)
	dim := len(us[0])

	center := make([]float64, dim)
	for _, u := range us {
		for j, v := range u {
			center[j] += v
		}
	}
	for j := range center {
		center[j] /= float64(n)
	}

	var cov mat.SymDense
	if n < 2 {
		// A lone point has no covariance; use a vanishing sphere so the
		// region degenerates to (essentially) that point.
		cov.ReuseAsSym(dim)
		for j := 0; j < dim; j++ {
			cov.SetSym(j, j, 1e-12)
		}
	} else {
		x := mat.NewDense(n, dim, nil)
		for i, u := range us {
			x.SetRow(i, u)
		}
		stat.CovarianceMatrix(&cov, x, nil)
	}

	e := &Ellipsoid{Center: center, dim: dim}
	jitter := minCovarianceJitter
	for !e.chol.Factorize(&cov) {
		logrus.Debugf("degenerate live-set covariance, adding diagonal jitter %g", jitter)
		for j := 0; j < dim; j++ {
			cov.SetSym(j, j, cov.At(j, j)+jitter)
		}
		jitter *= 10
	}
	e.chol.LTo(&e.l)

	// Scale to cover the farthest point, then enlarge by volume factor.
	centerVec := mat.NewVecDense(dim, center)
	maxDist := 0.0
	for _, u := range us {
		d := stat.Mahalanobis(mat.NewVecDense(dim, u), centerVec, &e.chol)
		if d > maxDist {
			maxDist = d
		}
	}
	if maxDist < 1e-9 {
		maxDist = 1e-9
	}
	e.Radius = maxDist * math.Pow(enlarge, 1/float64(dim))
	return e
}

// Contains reports whether u lies inside the ellipsoid. A small
// relative tolerance keeps boundary points (from our own sampler's
// floating-point round-trip) inside; over-covering is always safe.
func (e *Ellipsoid) Contains(u []float64) bool {
	d := stat.Mahalanobis(mat.NewVecDense(e.dim, u), mat.NewVecDense(e.dim, e.Center), &e.chol)
	return d <= e.Radius*(1+1e-9)
}

// Sample draws a point uniformly from the ellipsoid interior. The
// returned point may lie outside the unit cube; callers reject those.
func (e *Ellipsoid) Sample(rng *rand.Rand) []float64 {
	z := sampleUnitBall(rng, e.dim)
	u := make([]float64, e.dim)
	for i := 0; i < e.dim; i++ {
		s := 0.0
		for j := 0; j <= i; j++ {
			s += e.l.At(i, j) * z[j]
		}
		u[i] = e.Center[i] + e.Radius*s
	}
	return u
}

// LogVolume returns the log of the ellipsoid volume.
func (e *Ellipsoid) LogVolume() float64 {
	return logUnitBallVolume(e.dim) + float64(e.dim)*math.Log(e.Radius) + 0.5*e.chol.LogDet()
}

// Scale multiplies the ellipsoid volume by factor (> 0), used when a
// stalled sampler requests a larger region.
func (e *Ellipsoid) Scale(factor float64) {
	e.Radius *= math.Pow(factor, 1/float64(e.dim))
}

// sampleUnitBall draws a point uniformly from the d-dimensional unit
// ball: a normalized Gaussian direction scaled by U^(1/d).
func sampleUnitBall(rng *rand.Rand, dim int) []float64 {
	z := make([]float64, dim)
	norm := 0.0
	for i := range z {
		z[i] = rng.NormFloat64()
		norm += z[i] * z[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}
	r := math.Pow(rng.Float64(), 1/float64(dim)) / norm
	for i := range z {
		z[i] *= r
	}
	return z
}

// logUnitBallVolume returns log V_d of the d-dimensional unit ball.
func logUnitBallVolume(dim int) float64 {
	lg, _ := math.Lgamma(float64(dim)/2 + 1)
	return float64(dim)/2*math.Log(math.Pi) - lg
}
