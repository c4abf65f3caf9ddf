package model

import "fmt"

// Corner is one immutable combination of stimulus parameters: the input
// transition time applied to the related pin, the capacitive load on the
// measured output, and, for constraint arcs only, the related-signal
// offset under test.
//
// Corner uniqueness is an invariant of the sweep: the same corner is
// never simulated twice for the same arc.
type Corner struct {
	Slew   float64 // input transition time, library time unit
	Load   float64 // output load, library capacitance unit
	Offset float64 // data-to-clock offset, constraint arcs only
}

// Key returns the content-addressed identity of the corner: the SHA-256
// of its canonical JSON encoding. Two corners with equal fields always
// produce the same key.
func (c Corner) Key() string {
	key, err := CanonicalHash(map[string]any{
		"slew":   c.Slew,
		"load":   c.Load,
		"offset": c.Offset,
	})
	if err != nil {
		// The corner map above contains only floats; canonical encoding
		// of it cannot fail.
		panic(fmt.Sprintf("corner key: %v", err))
	}
	return key
}

func (c Corner) String() string {
	if c.Offset != 0 {
		return fmt.Sprintf("slew=%g load=%g offset=%g", c.Slew, c.Load, c.Offset)
	}
	return fmt.Sprintf("slew=%g load=%g", c.Slew, c.Load)
}

// WithOffset returns a copy of the corner probing a different offset.
// Used by the constraint bisection, which sweeps offsets at a fixed
// (slew, load) point.
func (c Corner) WithOffset(offset float64) Corner {
	c.Offset = offset
	return c
}

// SweepCorners expands the cross-product of slew and load lists in
// arc-major, corner-minor order: slews outermost, loads innermost, the
// order the original tool wrote its table rows in.
func SweepCorners(slews, loads []float64) []Corner {
	corners := make([]Corner, 0, len(slews)*len(loads))
	for _, s := range slews {
		for _, l := range loads {
			corners = append(corners, Corner{Slew: s, Load: l})
		}
	}
	return corners
}
