package ns

import (
	"github.com/sirupsen/logrus"

	"github.com/nested-inference/nested-inference/ns/trace"
)

// Observer receives run progress at well-defined iteration boundaries.
// Implementations are invoked synchronously by the coordinating
// goroutine and must not retain the records' slices.
type Observer interface {
	OnIteration(record trace.IterationRecord)
	OnGrowth(record trace.GrowthRecord)
	OnDone(state *RunState)
}

// NoopObserver is the default Observer; it discards everything.
type NoopObserver struct{}

func (NoopObserver) OnIteration(trace.IterationRecord) {}
func (NoopObserver) OnGrowth(trace.GrowthRecord)       {}
func (NoopObserver) OnDone(*RunState)                  {}

// LogObserver logs run progress through logrus every Interval
// iterations.
type LogObserver struct {
	Interval int // default 100
}

func (o LogObserver) OnIteration(r trace.IterationRecord) {
	interval := o.Interval
	if interval <= 0 {
		interval = 100
	}
	if r.Iteration%interval != 0 {
		return
	}
	logrus.Infof("[iter %6d] logz=%.4f logvol=%.2f threshold=%.4f ncalls=%d region=%s",
		r.Iteration, r.LogZ, r.LogVolume, r.Threshold, r.NCalls, r.RegionKind)
}

func (o LogObserver) OnGrowth(r trace.GrowthRecord) {
	logrus.Infof("[loop %d] grew live set by %d to %d (threshold=%.4f, +%d calls)",
		r.Loop, r.Added, r.NLive, r.Threshold, r.NCalls)
}

func (o LogObserver) OnDone(s *RunState) {
	logrus.Infof("run %s after %d iterations: logz=%.4f ncalls=%d (%s)",
		s.Status, s.Iteration, s.LogZ, s.NCalls, s.StopReason)
}

// TraceObserver records every iteration into a RunTrace.
type TraceObserver struct {
	Trace *trace.RunTrace
}

func (o TraceObserver) OnIteration(r trace.IterationRecord) { o.Trace.RecordIteration(r) }
func (o TraceObserver) OnGrowth(r trace.GrowthRecord)       { o.Trace.RecordGrowth(r) }
func (o TraceObserver) OnDone(*RunState)                    {}
