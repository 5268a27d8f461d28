package trace

// TraceSummary aggregates statistics from a RunTrace.
type TraceSummary struct {
	TotalIterations int
	TotalCalls      int
	MeanEfficiency  float64 // accepted replacements per likelihood call
	Rebuilds        int
	StalledCount    int
	GrowthRounds    int
	PointsAdded     int
	FinalLogZ       float64
	FinalLogVolume  float64
	RegionKinds     map[string]int // region kind → iterations it was active
}

// Summarize computes aggregate statistics from a RunTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(rt *RunTrace) *TraceSummary {
	summary := &TraceSummary{
		RegionKinds: make(map[string]int),
	}
	if rt == nil {
		return summary
	}

	summary.TotalIterations = len(rt.Iterations)
	replacementCalls := 0
	for _, r := range rt.Iterations {
		replacementCalls += r.BatchCalls
		if r.Rebuilt {
			summary.Rebuilds++
		}
		if r.Stalled {
			summary.StalledCount++
		}
		summary.RegionKinds[r.RegionKind]++
	}
	if len(rt.Iterations) > 0 {
		last := rt.Iterations[len(rt.Iterations)-1]
		summary.TotalCalls = last.NCalls
		summary.FinalLogZ = last.LogZ
		summary.FinalLogVolume = last.LogVolume
		if replacementCalls > 0 {
			summary.MeanEfficiency = float64(len(rt.Iterations)) / float64(replacementCalls)
		}
	}

	summary.GrowthRounds = len(rt.Growths)
	for _, g := range rt.Growths {
		summary.PointsAdded += g.Added
	}
	return summary
}
