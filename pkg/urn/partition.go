package urn

import (
	"math/rand/v2"
	"sort"

	"github.com/r3d91ll/urnlab/pkg/errors"
)

// Partition splits size balls into k non-negative parts.
//
// k-1 distinct cut points are drawn without replacement from [0, size],
// sorted, and the gaps between them (plus the two ends) become the parts.
// It fails when size < 0, k < 1, or there are fewer than k-1 cut positions.
func Partition(r *rand.Rand, size, k int) ([]int, error) {
	if size < 0 || k < 1 || k-1 > size+1 {
		return nil, errors.ValidationErrorf(errors.ErrPartitionInfeasible,
			"cannot split %d balls into %d parts", size, k).
			WithSuggestion("Use at least k-2 balls for k colors")
	}
	if k == 1 {
		return []int{size}, nil
	}

	cuts := sampleDistinct(r, size+1, k-1)
	sort.Ints(cuts)

	parts := make([]int, 0, k)
	last := 0
	for _, c := range cuts {
		parts = append(parts, c-last)
		last = c
	}
	parts = append(parts, size-last)
	return parts, nil
}

// sampleDistinct returns m distinct integers from [0, n) using Floyd's algorithm.
func sampleDistinct(r *rand.Rand, n, m int) []int {
	seen := make(map[int]struct{}, m)
	out := make([]int, 0, m)
	for j := n - m; j < n; j++ {
		t := r.IntN(j + 1)
		if _, ok := seen[t]; ok {
			t = j
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
