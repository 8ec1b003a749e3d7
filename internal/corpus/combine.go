package corpus

import "strings"

// Combine concatenates per-source indexes in argument order and drops every
// record whose Key was already seen. The first occurrence wins, so earlier
// sources keep their field values. It returns the surviving records and the
// number removed.
func Combine(sources ...[]Record) ([]Record, int) {
	total := 0
	for _, s := range sources {
		total += len(s)
	}

	seen := make(map[Key]struct{}, total)
	out := make([]Record, 0, total)
	removed := 0

	for _, src := range sources {
		for _, r := range src {
			r.Dataset = strings.TrimSpace(r.Dataset)
			k := r.Key()
			if _, dup := seen[k]; dup {
				removed++
				continue
			}
			seen[k] = struct{}{}
			out = append(out, r)
		}
	}
	return out, removed
}
