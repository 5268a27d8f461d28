// Package trace provides iteration-trace recording for run diagnostics.
// This package has no dependencies on ns/ — it stores pure data types.
package trace

// IterationRecord captures one main-loop iteration of a sampling run.
type IterationRecord struct {
	Iteration  int
	Threshold  float64 // log-likelihood of the removed point
	LogVolume  float64 // remaining prior volume after shrinkage
	LogZ       float64 // running evidence estimate
	NCalls     int     // cumulative likelihood calls
	BatchCalls int     // likelihood calls spent on this iteration's replacement
	RegionKind string  // active region representation
	Rebuilt    bool    // region was rebuilt this iteration
	Stalled    bool    // replacement required stall-recovery rebuilds
	NLive      int     // live-set size at this iteration
}

// GrowthRecord captures one reactive live-set growth round.
type GrowthRecord struct {
	Loop      int // improvement-loop index (1-based)
	Added     int // points added
	NLive     int // live-set size after growth
	Threshold float64
	NCalls    int // likelihood calls spent on the growth draws
}
