package translate

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBBox parses a bbox query parameter "w,s,e,n" (or the six-value 3D
// form, whose elevations are ignored).
func ParseBBox(s string) ([4]float64, error) {
	var out [4]float64

	parts := strings.Split(s, ",")
	if len(parts) != 4 && len(parts) != 6 {
		return out, fmt.Errorf("%w: must have 4 or 6 values, got %d", ErrInvalidBBox, len(parts))
	}

	values := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, fmt.Errorf("%w: value %d: %v", ErrInvalidBBox, i, err)
		}
		values[i] = v
	}

	if len(values) == 6 {
		values = []float64{values[0], values[1], values[3], values[4]}
	}
	copy(out[:], values)

	if out[1] > out[3] {
		return out, fmt.Errorf("%w: south greater than north", ErrInvalidBBox)
	}
	return out, nil
}

// BBoxIntersects reports whether an item bbox intersects the query box.
// Touching edges count as intersecting.
func BBoxIntersects(item []float64, query [4]float64) bool {
	if len(item) < 4 {
		return false
	}
	w, s, e, n := item[0], item[1], item[2], item[3]
	if len(item) == 6 {
		w, s, e, n = item[0], item[1], item[3], item[4]
	}
	return w <= query[2] && e >= query[0] && s <= query[3] && n >= query[1]
}
