package features

import (
	"cmp"
	"slices"
	"strings"
)

// GroupKFold assigns every sample a fold in [0, k) so that all samples of a
// group share one fold. k is min(folds, distinct groups). Groups are placed
// largest first, ties by name, each into the fold with the fewest samples so
// far (lowest index on ties).
//
// It returns the per-sample fold and the effective k.
func GroupKFold(groups []string, folds int) ([]int, int) {
	sizes := make(map[string]int)
	for _, g := range groups {
		sizes[g]++
	}
	names := make([]string, 0, len(sizes))
	for g := range sizes {
		names = append(names, g)
	}
	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(sizes[b], sizes[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	k := min(folds, len(names))
	if k <= 0 {
		return make([]int, len(groups)), 0
	}

	load := make([]int, k)
	foldOf := make(map[string]int, len(names))
	for _, g := range names {
		f := 0
		for i := 1; i < k; i++ {
			if load[i] < load[f] {
				f = i
			}
		}
		foldOf[g] = f
		load[f] += sizes[g]
	}

	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = foldOf[g]
	}
	return out, k
}
