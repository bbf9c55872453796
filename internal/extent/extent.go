// Package extent computes the smallest extent enclosing the items and child
// collections of a collection.
package extent

import (
	"fmt"
	"math"
)

// Seed values are the identity of the min/max fold: any observation wins.
const (
	SeedStart = "9999-01-01T00:00:00Z"
	SeedEnd   = "0000-01-01T00:00:00Z"
)

// Extent is a folded temporal interval and [w, s, e, n] box.
type Extent struct {
	Start string
	End   string
	BBox  [4]float64
}

// Seed returns the empty extent: far-future start, far-past end and an
// inverted box.
func Seed() Extent {
	return Extent{
		Start: SeedStart,
		End:   SeedEnd,
		BBox:  [4]float64{180, 90, -180, -90},
	}
}

// Fold widens acc to cover obs. Timestamps compare lexically, which orders
// RFC 3339 UTC strings correctly; empty timestamps are ignored. Box
// components are rounded to two decimals.
func Fold(acc, obs Extent) Extent {
	out := acc
	if obs.Start != "" && obs.Start < out.Start {
		out.Start = obs.Start
	}
	if obs.End != "" && obs.End > out.End {
		out.End = obs.End
	}

	out.BBox = [4]float64{
		round2(math.Min(acc.BBox[0], obs.BBox[0])),
		round2(math.Min(acc.BBox[1], obs.BBox[1])),
		round2(math.Max(acc.BBox[2], obs.BBox[2])),
		round2(math.Max(acc.BBox[3], obs.BBox[3])),
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// IsEmpty reports whether nothing has been folded into e.
func (e Extent) IsEmpty() bool {
	return e == Seed()
}

// Unbounded reports the interval ends that no observation set. Such an
// extent still carries a seed timestamp and must not be written.
func (e Extent) Unbounded() []string {
	var problems []string
	if e.Start == SeedStart {
		problems = append(problems, "no observation has a start time")
	}
	if e.End == SeedEnd {
		problems = append(problems, "no observation has an end time")
	}
	return problems
}

// Contains reports whether e encloses o in both time and space.
func (e Extent) Contains(o Extent) bool {
	return e.Start <= o.Start && e.End >= o.End &&
		e.BBox[0] <= o.BBox[0] && e.BBox[1] <= o.BBox[1] &&
		e.BBox[2] >= o.BBox[2] && e.BBox[3] >= o.BBox[3]
}

// Check returns the range violations of e: a box outside
// -180<=w<=e<=180, -90<=s<=n<=90, or an end before the start.
func (e Extent) Check() []string {
	var problems []string
	w, s, east, n := e.BBox[0], e.BBox[1], e.BBox[2], e.BBox[3]

	if w < -180 || east > 180 || w > east {
		problems = append(problems, fmt.Sprintf("longitude range [%g, %g] outside -180<=w<=e<=180", w, east))
	}
	if s < -90 || n > 90 || s > n {
		problems = append(problems, fmt.Sprintf("latitude range [%g, %g] outside -90<=s<=n<=90", s, n))
	}
	if e.Start > e.End {
		problems = append(problems, fmt.Sprintf("interval start %s is after end %s", e.Start, e.End))
	}
	return problems
}
