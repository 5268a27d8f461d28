package trace

// RunTrace collects iteration records during a sampling run.
type RunTrace struct {
	Iterations []IterationRecord
	Growths    []GrowthRecord
}

// NewRunTrace creates a RunTrace ready for recording.
func NewRunTrace() *RunTrace {
	return &RunTrace{
		Iterations: make([]IterationRecord, 0),
		Growths:    make([]GrowthRecord, 0),
	}
}

// RecordIteration appends an iteration record.
func (rt *RunTrace) RecordIteration(record IterationRecord) {
	rt.Iterations = append(rt.Iterations, record)
}

// RecordGrowth appends a growth-round record.
func (rt *RunTrace) RecordGrowth(record GrowthRecord) {
	rt.Growths = append(rt.Growths, record)
}
