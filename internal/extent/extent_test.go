package extent

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	acc := Seed()
	acc = Fold(acc, Extent{
		Start: "2001-01-01T00:00:00Z",
		End:   "2001-12-31T00:00:00Z",
		BBox:  [4]float64{-10.123, -5.678, 10.004, 5.006},
	})

	assert.Equal(t, Extent{
		Start: "2001-01-01T00:00:00Z",
		End:   "2001-12-31T00:00:00Z",
		BBox:  [4]float64{-10.12, -5.68, 10, 5.01},
	}, acc)

	acc = Fold(acc, Extent{
		Start: "1999-06-01T00:00:00Z",
		End:   "2000-01-01T00:00:00Z",
		BBox:  [4]float64{0, 0, 20, 1},
	})
	assert.Equal(t, "1999-06-01T00:00:00Z", acc.Start)
	assert.Equal(t, "2001-12-31T00:00:00Z", acc.End)
	assert.Equal(t, [4]float64{-10.12, -5.68, 20, 5.01}, acc.BBox)
}

func TestFold_IgnoresEmptyTimes(t *testing.T) {
	acc := Fold(Seed(), Extent{Start: "2001-01-01T00:00:00Z", End: "2002-01-01T00:00:00Z", BBox: [4]float64{0, 0, 1, 1}})
	acc = Fold(acc, Extent{BBox: [4]float64{0, 0, 1, 1}})

	assert.Equal(t, "2001-01-01T00:00:00Z", acc.Start)
	assert.Equal(t, "2002-01-01T00:00:00Z", acc.End)
}

func TestSeed(t *testing.T) {
	s := Seed()
	assert.True(t, s.IsEmpty())
	assert.NotEmpty(t, s.Check(), "the inverted seed box is not a valid extent")

	one := Fold(s, Extent{Start: "2000-01-01T00:00:00Z", End: "2000-01-02T00:00:00Z", BBox: [4]float64{1, 2, 3, 4}})
	assert.False(t, one.IsEmpty())
	assert.Empty(t, one.Check())
}

// Folding one more observation never shrinks the extent.
func TestFold_Monotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	randomExtent := func() Extent {
		w := rng.Float64()*360 - 180
		e := w + rng.Float64()*(180-w)
		s := rng.Float64()*180 - 90
		n := s + rng.Float64()*(90-s)
		y1 := 1970 + rng.Intn(50)
		y2 := y1 + rng.Intn(5)
		return Extent{
			Start: fmt.Sprintf("%04d-01-01T00:00:00Z", y1),
			End:   fmt.Sprintf("%04d-12-31T23:59:59Z", y2),
			BBox:  [4]float64{w, s, e, n},
		}
	}

	for run := 0; run < 50; run++ {
		acc := Seed()
		for k := 0; k < 40; k++ {
			next := Fold(acc, randomExtent())
			if !next.Contains(acc) {
				t.Fatalf("run %d step %d: %+v does not contain %+v", run, k, next, acc)
			}
			if problems := next.Check(); len(problems) > 0 {
				t.Fatalf("run %d step %d: valid observations produced %v", run, k, problems)
			}
			acc = next
		}
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		ext  Extent
		want int
	}{
		{"valid", Extent{Start: "a", End: "b", BBox: [4]float64{-180, -90, 180, 90}}, 0},
		{"west beyond range", Extent{Start: "a", End: "b", BBox: [4]float64{-190, -90, 180, 90}}, 1},
		{"north beyond range", Extent{Start: "a", End: "b", BBox: [4]float64{-180, -90, 180, 95}}, 1},
		{"inverted time", Extent{Start: "b", End: "a", BBox: [4]float64{0, 0, 1, 1}}, 1},
		{"everything wrong", Extent{Start: "b", End: "a", BBox: [4]float64{10, 10, 0, 0}}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.ext.Check(), tt.want)
		})
	}
}

func TestUnbounded(t *testing.T) {
	assert.Len(t, Seed().Unbounded(), 2)

	e := Fold(Seed(), Extent{Start: "2000-01-01T00:00:00Z", BBox: [4]float64{0, 0, 1, 1}})
	assert.Equal(t, []string{"no observation has an end time"}, e.Unbounded())

	e = Fold(e, Extent{End: "2001-01-01T00:00:00Z", BBox: [4]float64{0, 0, 1, 1}})
	assert.Empty(t, e.Unbounded())
}
