package ns

import (
	"container/heap"
	"fmt"
	"math"
)

// pointHeap implements heap.Interface ordered by log-likelihood
// ascending, with insertion order as the tie-break so runs are
// deterministic on likelihood plateaus.
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type pointHeap []Point

func (ph pointHeap) Len() int { return len(ph) }
func (ph pointHeap) Less(i, j int) bool {
	if ph[i].Logl != ph[j].Logl {
		return ph[i].Logl < ph[j].Logl
	}
	return ph[i].seq < ph[j].seq
}
func (ph pointHeap) Swap(i, j int) { ph[i], ph[j] = ph[j], ph[i] }

func (ph *pointHeap) Push(x any) {
	*ph = append(*ph, x.(Point))
}

func (ph *pointHeap) Pop() any {
	old := *ph
	n := len(old)
	item := old[n-1]
	*ph = old[0 : n-1]
	return item
}

// LiveSet maintains the current live-point population ordered by
// log-likelihood. Every member satisfies Logl >= Threshold(), the
// likelihood of the most recently popped point.
type LiveSet struct {
	points    pointHeap
	nextSeq   uint64
	threshold float64 // last popped log-likelihood, -Inf before the first pop
}

// NewLiveSet creates an empty LiveSet with threshold -Inf.
func NewLiveSet() *LiveSet {
	return &LiveSet{threshold: math.Inf(-1)}
}

// Len returns the current population size.
func (ls *LiveSet) Len() int { return len(ls.points) }

// Threshold returns the log-likelihood of the most recently popped
// point, the constraint every current and future member must satisfy.
func (ls *LiveSet) Threshold() float64 { return ls.threshold }

// Insert adds a point to the population. The point must satisfy the
// current threshold; a violating insert is a logic error in the caller
// (the sampler only accepts above-threshold points) and panics.
func (ls *LiveSet) Insert(p Point) {
	if p.Logl < ls.threshold {
		panic(fmt.Sprintf("ns: inserting point with logl=%g below threshold %g", p.Logl, ls.threshold))
	}
	p.seq = ls.nextSeq
	ls.nextSeq++
	heap.Push(&ls.points, p)
}

// PopMin removes and returns the point with the smallest
// log-likelihood, raising the threshold to that value. Panics on an
// empty set.
func (ls *LiveSet) PopMin() Point {
	if len(ls.points) == 0 {
		panic("ns: PopMin on empty LiveSet")
	}
	p := heap.Pop(&ls.points).(Point)
	ls.threshold = p.Logl
	return p
}

// MinLogl returns the smallest log-likelihood in the population.
func (ls *LiveSet) MinLogl() float64 {
	if len(ls.points) == 0 {
		return math.Inf(-1)
	}
	return ls.points[0].Logl
}

// MaxLogl returns the largest log-likelihood in the population.
// O(n); used once per iteration for the remaining-evidence bound.
func (ls *LiveSet) MaxLogl() float64 {
	max := math.Inf(-1)
	for _, p := range ls.points {
		if p.Logl > max {
			max = p.Logl
		}
	}
	return max
}

// Points returns a copy of the current population in heap order.
// Callers must not rely on full sortedness; only the minimum is at
// index 0.
func (ls *LiveSet) Points() []Point {
	out := make([]Point, len(ls.points))
	copy(out, ls.points)
	return out
}

// UMatrix returns the unit-cube coordinates of the population as a
// row-per-point slice, the input to region construction.
func (ls *LiveSet) UMatrix() [][]float64 {
	out := make([][]float64, len(ls.points))
	for i, p := range ls.points {
		out[i] = p.U
	}
	return out
}
