package engine

import "math"

// ProbeFunc judges one constraint offset: true means the cell still
// captured cleanly at that offset. The predicate must be monotone over
// the searched range: passing offsets form a contiguous upper interval.
type ProbeFunc func(offset float64) (bool, error)

// BisectResult is the converged outcome of a constraint search.
type BisectResult struct {
	// Offset is the smallest probed offset that passed.
	Offset float64
	// Probes is how many predicate evaluations the search used.
	Probes int
}

// Bisect finds the smallest passing offset in [lo, hi] to within
// resolution, assuming a monotone pass/fail predicate.
//
// The bracket is validated first: hi must pass and lo must fail. When
// the boundary probes agree, in either direction, the range brackets no
// transition and the search reports no convergence via the returned
// ok=false; the caller turns that into its own error since it knows the
// cell and arc. A range whose floor already passes needs a lower floor,
// not a guessed answer.
//
// The loop is bounded: each iteration halves the bracket, so it runs at
// most ceil(log2((hi-lo)/resolution)) times.
func Bisect(lo, hi, resolution float64, probe ProbeFunc) (BisectResult, bool, error) {
	if hi <= lo || resolution <= 0 {
		return BisectResult{}, false, nil
	}

	probes := 0
	eval := func(x float64) (bool, error) {
		probes++
		return probe(x)
	}

	passHi, err := eval(hi)
	if err != nil {
		return BisectResult{}, false, err
	}
	if !passHi {
		return BisectResult{Probes: probes}, false, nil
	}
	passLo, err := eval(lo)
	if err != nil {
		return BisectResult{}, false, err
	}
	if passLo {
		return BisectResult{Probes: probes}, false, nil
	}

	maxIter := int(math.Ceil(math.Log2((hi - lo) / resolution)))
	for i := 0; i < maxIter && hi-lo > resolution; i++ {
		mid := lo + (hi-lo)/2
		pass, err := eval(mid)
		if err != nil {
			return BisectResult{}, false, err
		}
		if pass {
			hi = mid
		} else {
			lo = mid
		}
	}
	return BisectResult{Offset: hi, Probes: probes}, true, nil
}
