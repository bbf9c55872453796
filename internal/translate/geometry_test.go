package translate

import (
	"errors"
	"testing"
)

func TestParseBBox(t *testing.T) {
	got, err := ParseBBox("-10, 40, 5.5, 60")
	if err != nil {
		t.Fatalf("ParseBBox() failed: %v", err)
	}
	if got != [4]float64{-10, 40, 5.5, 60} {
		t.Errorf("unexpected bbox %v", got)
	}

	got, err = ParseBBox("-10,40,0,5.5,60,100")
	if err != nil {
		t.Fatalf("ParseBBox() 3D failed: %v", err)
	}
	if got != [4]float64{-10, 40, 5.5, 60} {
		t.Errorf("unexpected 3D bbox %v", got)
	}

	for _, bad := range []string{"1,2,3", "a,b,c,d", "0,60,10,40"} {
		if _, err := ParseBBox(bad); !errors.Is(err, ErrInvalidBBox) {
			t.Errorf("ParseBBox(%q) expected ErrInvalidBBox, got %v", bad, err)
		}
	}
}

func TestBBoxIntersects(t *testing.T) {
	query := [4]float64{0, 0, 10, 10}

	tests := []struct {
		name string
		item []float64
		want bool
	}{
		{"overlapping", []float64{5, 5, 15, 15}, true},
		{"touching edge", []float64{10, 0, 20, 10}, true},
		{"disjoint", []float64{11, 11, 20, 20}, false},
		{"global", []float64{-180, -90, 180, 90}, true},
		{"point inside", []float64{3, 3, 3, 3}, true},
		{"missing", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BBoxIntersects(tt.item, query); got != tt.want {
				t.Errorf("BBoxIntersects(%v) = %v, want %v", tt.item, got, tt.want)
			}
		})
	}
}
