// Package resolve maps master index rows to audio files that exist on disk.
package resolve

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/alnah/go-accent-corpus/internal/corpus"
)

// Options configure a Resolver.
type Options struct {
	// StaleDatasets lists dataset tags whose stored paths are known to go
	// stale. Tags compare case-insensitively after trimming.
	StaleDatasets []string

	// SearchDir is the flat directory searched for stale rows.
	SearchDir string

	// Extension restricts candidates, e.g. ".wav" or "wav". Empty accepts any file.
	Extension string
}

// Stats summarise one resolution run.
type Stats struct {
	Total   int
	Stale   int // rows of a stale dataset
	Kept    int // stored path exists
	Fixed   int // stale row whose stored path was replaced by a candidate
	Missing int // stale row with no candidate
}

// Resolver resolves rows against a filesystem. The search directory is
// listed at most once per Resolver.
type Resolver struct {
	fs    afero.Fs
	opts  Options
	stale map[string]struct{}

	names  []string
	listed bool
}

// New creates a Resolver over fsys.
func New(fsys afero.Fs, opts Options) *Resolver {
	stale := make(map[string]struct{}, len(opts.StaleDatasets))
	for _, d := range opts.StaleDatasets {
		stale[strings.ToUpper(strings.TrimSpace(d))] = struct{}{}
	}
	if ext := strings.TrimSpace(opts.Extension); ext != "" && !strings.HasPrefix(ext, ".") {
		opts.Extension = "." + ext
	}
	return &Resolver{fs: fsys, opts: opts, stale: stale}
}

// IsStale reports whether dataset is configured as stale.
func (r *Resolver) IsStale(dataset string) bool {
	_, ok := r.stale[strings.ToUpper(strings.TrimSpace(dataset))]
	return ok
}

// ResolveAll annotates every record with its resolved path. Only a failure
// to list the search directory is returned as an error; unresolved rows are
// counted in Stats.Missing and carry an empty resolved path.
func (r *Resolver) ResolveAll(ctx context.Context, recs []corpus.Record) ([]corpus.Resolved, Stats, error) {
	var st Stats
	out := make([]corpus.Resolved, 0, len(recs))

	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return nil, st, err
		}
		st.Total++

		stale := r.IsStale(rec.Dataset)
		if stale {
			st.Stale++
		}

		res := corpus.Resolved{Record: rec, SegmentFileResolved: rec.SegmentFile}
		if r.exists(rec.SegmentFile) {
			st.Kept++
			out = append(out, res)
			continue
		}
		if !stale {
			out = append(out, res)
			continue
		}

		path, err := r.Find(rec.VideoID)
		if err != nil {
			return nil, st, err
		}
		res.SegmentFileResolved = path
		if path == "" {
			st.Missing++
		} else {
			st.Fixed++
		}
		out = append(out, res)
	}
	return out, st, nil
}

// Find returns the search-directory file whose name contains id, preferring
// the shortest name and then the lexicographically smallest. It returns ""
// when id is blank or nothing matches.
func (r *Resolver) Find(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", nil
	}
	if err := r.list(); err != nil {
		return "", err
	}

	var candidates []string
	for _, n := range r.names {
		if strings.Contains(n, id) {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return "", nil
	}

	best := slices.MinFunc(candidates, func(a, b string) int {
		if c := cmp.Compare(len(a), len(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return filepath.Join(r.opts.SearchDir, best), nil
}

func (r *Resolver) list() error {
	if r.listed {
		return nil
	}
	entries, err := afero.ReadDir(r.fs, r.opts.SearchDir)
	if err != nil {
		return fmt.Errorf("list search directory %s: %w", r.opts.SearchDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if r.opts.Extension != "" && !strings.EqualFold(filepath.Ext(e.Name()), r.opts.Extension) {
			continue
		}
		r.names = append(r.names, e.Name())
	}
	r.listed = true
	return nil
}

func (r *Resolver) exists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := r.fs.Stat(path)
	return err == nil && !info.IsDir()
}
