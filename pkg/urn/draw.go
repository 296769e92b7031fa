package urn

import (
	"math/rand/v2"

	"github.com/r3d91ll/urnlab/pkg/errors"
)

// Draw picks one color, choosing colors[i] with probability counts[i]/sum(counts).
// Colors with a zero count stay in play with zero probability. An empty urn
// is a configuration defect and returns ErrDrawZeroWeight.
func Draw(r *rand.Rand, colors []string, counts []int) (string, error) {
	if len(colors) != len(counts) {
		return "", errors.InternalErrorf(errors.ErrDrawZeroWeight,
			"%d colors but %d counts", len(colors), len(counts))
	}
	total := 0
	for _, n := range counts {
		if n < 0 {
			return "", errors.InternalErrorf(errors.ErrDrawZeroWeight, "negative count %d", n)
		}
		total += n
	}
	if total == 0 {
		return "", errors.InternalErrorf(errors.ErrDrawZeroWeight, "urn holds no balls")
	}

	x := r.IntN(total)
	for i, n := range counts {
		if x < n {
			return colors[i], nil
		}
		x -= n
	}
	// unreachable: x < total
	return colors[len(colors)-1], nil
}
