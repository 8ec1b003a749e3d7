// Package features builds the feature, label and group arrays used for
// speaker-grouped cross-validation, and evaluates a classifier over them.
package features

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-accent-corpus/internal/corpus"
	"github.com/alnah/go-accent-corpus/internal/report"
	"github.com/alnah/go-accent-corpus/internal/table"
	"github.com/alnah/go-accent-corpus/internal/textnorm"
)

// ColSpeakerKey, when present and non-empty anywhere in the sheet, supplies
// the group key directly.
const ColSpeakerKey = "speaker_key"

// Skip reasons recorded in the run report.
const (
	ReasonMissingLabel  = "missing_label"
	ReasonRejectedLabel = "label_not_accepted"
	ReasonCapped        = "speaker_cap"
	ReasonMissingAudio  = "missing_audio"
	ReasonExtractError  = "extract_error"
	ReasonFeatureLength = "feature_length"
)

// Defaults for Options.
const (
	DefaultLabelColumn = corpus.ColNativeProvince
	DefaultMaxPerGroup = 20
	DefaultSeed        = 42
	DefaultMinGroups   = 5
	DefaultWorkers     = 4
)

// Options control which rows become samples.
type Options struct {
	LabelColumn string
	Labels      []string // accepted labels; empty accepts any non-blank label
	MaxPerGroup int      // per-speaker cap; 0 disables the cap
	Seed        uint64
	MinGroups   int
	Workers     int
}

// DefaultOptions returns the settings used by the province baseline.
func DefaultOptions() Options {
	return Options{
		LabelColumn: DefaultLabelColumn,
		MaxPerGroup: DefaultMaxPerGroup,
		Seed:        DefaultSeed,
		MinGroups:   DefaultMinGroups,
		Workers:     DefaultWorkers,
	}
}

// Matrix holds aligned samples. Row i of Features belongs to Labels[i],
// Groups[i] and Paths[i].
type Matrix struct {
	Features [][]float64
	Labels   []string
	Groups   []string
	Paths    []string
}

// Len returns the number of samples.
func (m *Matrix) Len() int {
	return len(m.Labels)
}

// Dim returns the feature vector length, or 0 for an empty matrix.
func (m *Matrix) Dim() int {
	if len(m.Features) == 0 {
		return 0
	}
	return len(m.Features[0])
}

// DistinctGroups returns the sorted distinct group keys.
func (m *Matrix) DistinctGroups() []string {
	out := slices.Clone(m.Groups)
	slices.Sort(out)
	return slices.Compact(out)
}

// Builder turns resolved master rows into a Matrix.
type Builder struct {
	fs     afero.Fs
	ex     Extractor
	opts   Options
	logger zerolog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger used for per-row debug events.
func WithLogger(l zerolog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// WithFs sets the filesystem used for audio existence checks.
func WithFs(fs afero.Fs) BuilderOption {
	return func(b *Builder) { b.fs = fs }
}

// NewBuilder creates a Builder. Zero-valued options fall back to defaults,
// except MaxPerGroup where 0 disables the cap.
func NewBuilder(ex Extractor, opts Options, bopts ...BuilderOption) *Builder {
	if opts.LabelColumn == "" {
		opts.LabelColumn = DefaultLabelColumn
	}
	if opts.MinGroups <= 0 {
		opts.MinGroups = DefaultMinGroups
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	b := &Builder{
		fs:     afero.NewOsFs(),
		ex:     ex,
		opts:   opts,
		logger: zerolog.Nop(),
	}
	for _, o := range bopts {
		o(b)
	}
	return b
}

// candidate is a row that survived filtering and awaits extraction.
type candidate struct {
	row   int
	label string
	group string
	path  string
}

// Build filters t, extracts features and returns the aligned matrix.
// Rows are dropped, in order, for a blank or unaccepted label, the speaker
// cap, a missing audio file, an extractor error, and a vector length that
// differs from the first vector. Each drop is recorded in rep.
//
// Build fails with ErrInsufficientGroups when fewer than MinGroups distinct
// speakers remain.
func (b *Builder) Build(ctx context.Context, t *table.Table, rep *report.Report) (*Matrix, error) {
	if rep == nil {
		rep = report.New("features", 0)
	}
	groups := GroupKeys(t)

	labelled := b.filterLabels(t, groups, rep)
	kept := b.capGroups(labelled, rep)

	var cands []candidate
	for _, c := range kept {
		c.path = b.pickPath(t.Rows[c.row])
		if c.path == "" {
			rep.Skip(ReasonMissingAudio, fmt.Sprintf("row %d", c.row+2))
			continue
		}
		cands = append(cands, c)
	}

	vecs, err := b.extract(ctx, cands)
	if err != nil {
		return nil, err
	}

	m := &Matrix{}
	dim := 0
	for i, c := range cands {
		v := vecs[i]
		if v.err != nil {
			rep.Skip(ReasonExtractError, fmt.Sprintf("row %d: %v", c.row+2, v.err))
			continue
		}
		if dim == 0 {
			dim = len(v.vec)
		}
		if len(v.vec) != dim {
			rep.Skip(ReasonFeatureLength, fmt.Sprintf("row %d: %d values, want %d", c.row+2, len(v.vec), dim))
			continue
		}
		m.Features = append(m.Features, v.vec)
		m.Labels = append(m.Labels, c.label)
		m.Groups = append(m.Groups, c.group)
		m.Paths = append(m.Paths, c.path)
	}

	if n := len(m.DistinctGroups()); n < b.opts.MinGroups {
		return m, fmt.Errorf("%w: %d distinct speakers, need %d", ErrInsufficientGroups, n, b.opts.MinGroups)
	}
	return m, nil
}

func (b *Builder) filterLabels(t *table.Table, groups []string, rep *report.Report) []candidate {
	accepted := make(map[string]struct{}, len(b.opts.Labels))
	for _, l := range b.opts.Labels {
		accepted[strings.TrimSpace(l)] = struct{}{}
	}

	var out []candidate
	for i, row := range t.Rows {
		label := row.Get(b.opts.LabelColumn)
		if label == "" {
			rep.Skip(ReasonMissingLabel, fmt.Sprintf("row %d", i+2))
			continue
		}
		if len(accepted) > 0 {
			if _, ok := accepted[label]; !ok {
				rep.Skip(ReasonRejectedLabel, fmt.Sprintf("row %d: %s", i+2, label))
				continue
			}
		}
		out = append(out, candidate{row: i, label: label, group: groups[i]})
	}
	return out
}

// capGroups keeps at most MaxPerGroup rows per group. Groups are visited in
// sorted order with one seeded generator, so the selection only depends on
// the input and the seed. Input order is preserved.
func (b *Builder) capGroups(in []candidate, rep *report.Report) []candidate {
	if b.opts.MaxPerGroup <= 0 {
		return in
	}

	byGroup := make(map[string][]int)
	for i, c := range in {
		byGroup[c.group] = append(byGroup[c.group], i)
	}
	names := make([]string, 0, len(byGroup))
	for g := range byGroup {
		names = append(names, g)
	}
	slices.Sort(names)

	rng := rand.New(rand.NewPCG(b.opts.Seed, b.opts.Seed))
	keep := make([]bool, len(in))
	for _, g := range names {
		idx := byGroup[g]
		if len(idx) > b.opts.MaxPerGroup {
			rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
			for _, i := range idx[b.opts.MaxPerGroup:] {
				rep.Skip(ReasonCapped, fmt.Sprintf("row %d: %s", in[i].row+2, g))
			}
			idx = idx[:b.opts.MaxPerGroup]
		}
		for _, i := range idx {
			keep[i] = true
		}
	}

	out := make([]candidate, 0, len(in))
	for i, c := range in {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out
}

// pickPath prefers the resolved path when it exists, else the stored path
// when it exists.
func (b *Builder) pickPath(row table.Row) string {
	for _, col := range []string{corpus.ColResolved, corpus.ColSegmentFile} {
		p := row.Get(col)
		if p == "" {
			continue
		}
		if ok, err := afero.Exists(b.fs, p); err == nil && ok {
			return p
		}
	}
	return ""
}

type extraction struct {
	vec []float64
	err error
}

// extract runs the extractor over cands with bounded parallelism. Per-file
// errors are returned in the slice; only cancellation aborts.
func (b *Builder) extract(ctx context.Context, cands []candidate) ([]extraction, error) {
	out := make([]extraction, len(cands))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for i, c := range cands {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vec, err := b.ex.Extract(gctx, c.path)
			if err != nil {
				b.logger.Debug().Str("path", c.path).Err(err).Msg("extract failed")
			}
			out[i] = extraction{vec: vec, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GroupKeys returns one group key per row. The speaker_key column is used
// when the sheet has it with at least one non-blank value; otherwise the key
// is the slugged dataset and speaker joined by an underscore.
func GroupKeys(t *table.Table) []string {
	useKey := false
	if t.Has(ColSpeakerKey) {
		for _, r := range t.Rows {
			if r.Get(ColSpeakerKey) != "" {
				useKey = true
				break
			}
		}
	}

	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		if useKey {
			out[i] = r.Get(ColSpeakerKey)
			continue
		}
		out[i] = textnorm.Slug(r.Get(corpus.ColDataset), 0) + "_" + textnorm.Slug(r.Get(corpus.ColSpeaker), 0)
	}
	return out
}
