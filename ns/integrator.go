package ns

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// RunStatus is the integrator state machine:
// RUNNING -> (CONVERGED | EXHAUSTED | ABORTED).
type RunStatus string

const (
	// StatusRunning means the main loop is still iterating.
	StatusRunning RunStatus = "running"
	// StatusConverged means a statistical stopping criterion fired.
	StatusConverged RunStatus = "converged"
	// StatusExhausted means an iteration, call, or wall-clock budget ran
	// out, or sampling stalled terminally. The result is incomplete but
	// valid as a best current estimate.
	StatusExhausted RunStatus = "exhausted"
	// StatusAborted means a hard error (LikelihoodError) ended the run.
	StatusAborted RunStatus = "aborted"
)

// DeadPoint is a removed live point with its prior-volume bookkeeping.
type DeadPoint struct {
	Point
	LogWeight float64 // log of the prior-volume element assigned to this point
	NLive     int     // live-set size when the point was removed
}

// RunState is the integrator-owned accumulator, mutated once per
// iteration by exactly one coordinating goroutine.
type RunState struct {
	Iteration  int
	LogVolume  float64 // log of remaining prior volume, strictly decreasing
	LogZ       float64
	LogZVar    float64
	H          float64 // information (nats)
	Dead       []DeadPoint
	NCalls     int
	Status     RunStatus
	StopReason string
}

// IntegratorConfig groups stopping-criterion and budget parameters.
type IntegratorConfig struct {
	FracRemain  float64       // stop when the live points' possible evidence fraction drops below this (default 0.01)
	Dlogz       float64       // stop when the remaining log-evidence width drops below this (default 0.5)
	MaxIters    int           // iteration budget, 0 = unlimited
	MaxNCalls   int           // likelihood-call budget, 0 = unlimited
	MaxDuration time.Duration // wall-clock budget, 0 = unlimited
}

// NewIntegratorConfig returns an IntegratorConfig with defaults applied.
func NewIntegratorConfig() IntegratorConfig {
	return IntegratorConfig{FracRemain: 0.01, Dlogz: 0.5}
}

// Integrator tracks prior-volume shrinkage and accumulates the evidence
// and its variance, and decides when a run stops.
type Integrator struct {
	cfg   IntegratorConfig
	state RunState
}

// NewIntegrator creates an Integrator at iteration zero with the full
// prior volume and no evidence.
func NewIntegrator(cfg IntegratorConfig) *Integrator {
	return &Integrator{
		cfg: cfg,
		state: RunState{
			LogVolume: 0,
			LogZ:      math.Inf(-1),
			Status:    StatusRunning,
		},
	}
}

// State returns a pointer to the run state. Callers other than the run
// loop must treat it as read-only.
func (it *Integrator) State() *RunState { return &it.state }

// AddCalls records likelihood evaluations against the call budget.
func (it *Integrator) AddCalls(n int) { it.state.NCalls += n }

// Step consumes the iteration's removed point: shrinks the prior volume
// by the expected factor E[log t] = -1/nLive, assigns the point its
// trapezoidal volume element, and folds its evidence contribution into
// logZ, H, and the sequential variance estimate.
func (it *Integrator) Step(dead Point, nLive int) {
	s := &it.state
	dlv := 1 / float64(nLive)
	logw := s.LogVolume + log1mexp(-dlv)

	it.accumulate(logw, dead.Logl, dlv)
	s.LogVolume -= dlv
	s.Iteration++
	s.Dead = append(s.Dead, DeadPoint{Point: dead, LogWeight: logw, NLive: nLive})
}

// FoldLive distributes the residual prior volume uniformly over the
// remaining live points and absorbs them into the dead sequence. Called
// exactly once, at termination.
func (it *Integrator) FoldLive(live []Point) {
	s := &it.state
	n := len(live)
	if n == 0 {
		return
	}
	logw := s.LogVolume - math.Log(float64(n))
	for _, p := range live {
		it.accumulate(logw, p.Logl, 0)
		s.Dead = append(s.Dead, DeadPoint{Point: p, LogWeight: logw, NLive: n})
	}
}

// accumulate folds one weighted likelihood contribution into logZ and
// the information/variance accumulators.
func (it *Integrator) accumulate(logw, logl, dlv float64) {
	s := &it.state
	contrib := logw + logl
	if math.IsInf(contrib, -1) {
		return
	}
	logzNew := logAddExp(s.LogZ, contrib)

	var hNew float64
	if math.IsInf(s.LogZ, -1) {
		hNew = math.Exp(contrib-logzNew)*logl - logzNew
	} else {
		hNew = math.Exp(contrib-logzNew)*logl +
			math.Exp(s.LogZ-logzNew)*(s.H+s.LogZ) - logzNew
	}
	s.LogZVar += 2 * (hNew - s.H) * dlv
	s.H = hNew
	s.LogZ = logzNew
}

// LogZErr returns the sequential-approximation standard error of logZ.
func (it *Integrator) LogZErr() float64 {
	return math.Sqrt(math.Max(it.state.LogZVar, 0))
}

// CheckStop evaluates the stopping criteria. maxLiveLogl bounds the
// live points' total evidence contribution from above. Returns the
// terminal status and triggering reason when a criterion fired.
func (it *Integrator) CheckStop(maxLiveLogl float64, started time.Time) (bool, RunStatus, string) {
	s := &it.state

	if it.cfg.MaxIters > 0 && s.Iteration >= it.cfg.MaxIters {
		return true, StatusExhausted, "iteration budget exhausted"
	}
	if it.cfg.MaxNCalls > 0 && s.NCalls >= it.cfg.MaxNCalls {
		return true, StatusExhausted, "likelihood-call budget exhausted"
	}
	if it.cfg.MaxDuration > 0 && time.Since(started) >= it.cfg.MaxDuration {
		return true, StatusExhausted, "wall-clock budget exhausted"
	}

	logzRemain := maxLiveLogl + s.LogVolume
	logzTotal := logAddExp(s.LogZ, logzRemain)
	if math.Exp(logzRemain-logzTotal) < it.cfg.FracRemain {
		return true, StatusConverged, "remaining evidence fraction below threshold"
	}
	if !math.IsInf(s.LogZ, -1) && logzTotal-s.LogZ < it.cfg.Dlogz {
		return true, StatusConverged, "evidence width below dlogz"
	}
	return false, StatusRunning, ""
}

// Finalize transitions the state machine to its terminal status.
func (it *Integrator) Finalize(status RunStatus, reason string) {
	it.state.Status = status
	it.state.StopReason = reason
}

// BootstrapLogZErr replays the whole dead sequence nboot times with
// shrinkage factors sampled from Beta(nLive, 1) instead of their
// expectation, giving a second, more robust error estimate for logZ.
func (it *Integrator) BootstrapLogZErr(src rand.Source, nboot int) float64 {
	if nboot < 2 || len(it.state.Dead) == 0 {
		return it.LogZErr()
	}
	logzs := make([]float64, nboot)
	for b := 0; b < nboot; b++ {
		logvol := 0.0
		logz := math.Inf(-1)
		for _, d := range it.state.Dead {
			t := distuv.Beta{Alpha: float64(d.NLive), Beta: 1, Src: src}.Rand()
			logw := logvol + math.Log1p(-t)
			logvol += math.Log(t)
			if !math.IsInf(d.Logl, -1) {
				logz = logAddExp(logz, logw+d.Logl)
			}
		}
		logzs[b] = logz
	}
	return stat.StdDev(logzs, nil)
}

// logAddExp returns log(exp(a) + exp(b)) without overflow.
func logAddExp(a, b float64) float64 {
	return floats.LogSumExp([]float64{a, b})
}

// log1mexp returns log(1 - exp(x)) for x < 0, stable near both limits.
func log1mexp(x float64) float64 {
	if x > -math.Ln2 {
		return math.Log(-math.Expm1(x))
	}
	return math.Log1p(-math.Exp(x))
}
