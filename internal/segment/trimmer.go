package segment

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/alnah/go-accent-corpus/internal/audio"
	"github.com/alnah/go-accent-corpus/internal/ident"
	"github.com/alnah/go-accent-corpus/internal/report"
	"github.com/alnah/go-accent-corpus/internal/table"
	"github.com/alnah/go-accent-corpus/internal/textnorm"
	"github.com/alnah/go-accent-corpus/internal/validtimes"
)

// Skip reasons recorded in the run report.
const (
	ReasonUnresolvableID = "unresolvable_identifier"
	ReasonDuplicateID    = "duplicate_video_id"
	ReasonMissingAudio   = "missing_audio"
	ReasonMalformedTimes = "malformed_valid_times"
	ReasonProbeFailed    = "probe_failed"
	ReasonEmptyClip      = "empty_clip"
	ReasonTrimFailed     = "trim_failed"
)

// Summary tallies one trimming run.
type Summary struct {
	Rows     int
	Clips    int // rows whose clip was planned
	Written  int
	Existing int
	Failed   int // chunks whose trim failed
	Audio    time.Duration
}

// Trimmer cuts every annotated clip of a Source into numbered segments.
type Trimmer struct {
	src    Source
	probe  audio.Prober
	cut    audio.Trimmer
	fs     afero.Fs
	now    func() time.Time
	logger zerolog.Logger
}

// TrimmerOption configures a Trimmer.
type TrimmerOption func(*Trimmer)

// WithFs sets the filesystem used for existence checks.
func WithFs(fs afero.Fs) TrimmerOption {
	return func(t *Trimmer) { t.fs = fs }
}

// WithClock sets the clock stamping log entries.
func WithClock(now func() time.Time) TrimmerOption {
	return func(t *Trimmer) { t.now = now }
}

// WithLogger sets the logger for per-row events.
func WithLogger(l zerolog.Logger) TrimmerOption {
	return func(t *Trimmer) { t.logger = l }
}

// NewTrimmer creates a Trimmer for src.
func NewTrimmer(src Source, probe audio.Prober, cut audio.Trimmer, opts ...TrimmerOption) (*Trimmer, error) {
	src, err := src.Normalize()
	if err != nil {
		return nil, err
	}
	t := &Trimmer{
		src:    src,
		probe:  probe,
		cut:    cut,
		fs:     afero.NewOsFs(),
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// BaseName returns the segment file stem for a row:
// slug(speaker)_slug(party)_slug(constituency)_<videoID>.
func BaseName(speaker, party, constituency, videoID string) string {
	return strings.Join([]string{
		textnorm.Slug(speaker, DefaultSlugLimit),
		textnorm.Slug(party, DefaultSlugLimit),
		textnorm.Slug(constituency, DefaultSlugLimit),
		videoID,
	}, "_")
}

// Run trims every row of sheet in order and returns the trim log. Row
// failures are logged, reported and skipped; a cancelled context stops the
// run and returns the entries written so far with the context error.
func (t *Trimmer) Run(ctx context.Context, sheet *table.Table, rep *report.Report) ([]LogEntry, Summary, error) {
	if rep == nil {
		rep = report.New("trim", 0)
	}
	cols := t.src.Columns
	if err := sheet.Require(t.src.Dataset+" annotation sheet", cols.URL); err != nil {
		return nil, Summary{}, err
	}

	var (
		entries []LogEntry
		sum     Summary
		seen    = make(map[string]bool)
	)
	for i, row := range sheet.Rows {
		if err := ctx.Err(); err != nil {
			return entries, sum, err
		}
		sum.Rows++
		line := i + 2

		vid, err := ident.FromURL(row.Get(cols.URL))
		if err != nil {
			entries = append(entries, t.fail(ReasonUnresolvableID, "", fmt.Sprintf("line %d: %v", line, err), rep))
			continue
		}
		if seen[vid] {
			rep.Skip(ReasonDuplicateID, vid)
			entries = append(entries, t.entry(vid, StatusSkip, "duplicate video_id in dataset; skipped row"))
			continue
		}
		seen[vid] = true

		rowEntries, rowSum, err := t.trimRow(ctx, vid, row, rep)
		entries = append(entries, rowEntries...)
		sum.add(rowSum)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return entries, sum, ctxErr
		}
		if err != nil {
			continue
		}
		sum.Clips++
	}
	return entries, sum, nil
}

// trimRow plans and cuts one clip. The returned error is non-nil when the
// row produced no plan.
func (t *Trimmer) trimRow(ctx context.Context, vid string, row table.Row, rep *report.Report) ([]LogEntry, Summary, error) {
	cols := t.src.Columns
	src := t.src.ClipPath(vid)
	if _, err := t.fs.Stat(src); err != nil {
		err = fmt.Errorf("%w: %s", ErrMissingAudio, src)
		return []LogEntry{t.fail(ReasonMissingAudio, vid, err.Error(), rep)}, Summary{}, err
	}

	ranges, err := validtimes.Parse(row.Get(cols.ValidTimes))
	if err != nil {
		return []LogEntry{t.fail(ReasonMalformedTimes, vid, err.Error(), rep)}, Summary{}, err
	}
	if len(ranges) == 0 {
		d, err := t.probe.Duration(ctx, src)
		if err != nil {
			return []LogEntry{t.fail(ReasonProbeFailed, vid, err.Error(), rep)}, Summary{}, err
		}
		whole := int(d / time.Second)
		if whole <= 0 {
			err := fmt.Errorf("%w: %s", ErrEmptyClip, src)
			return []LogEntry{t.fail(ReasonEmptyClip, vid, err.Error(), rep)}, Summary{}, err
		}
		ranges = []validtimes.Interval{{Start: 0, End: whole}}
	}

	base := BaseName(row.Get(cols.Speaker), row.Get(cols.Party), row.Get(cols.Constituency), vid)
	var (
		entries []LogEntry
		sum     Summary
	)
	for _, c := range validtimes.Plan(ranges, t.src.MaxChunk, t.src.Gap) {
		out := filepath.Join(t.src.OutDir, fmt.Sprintf("%s_%03d%s", base, c.Index, t.src.AudioExt))
		e := t.entry(vid, "", "")
		e.Segment, e.Start, e.End, e.Output = c.Index, c.Start, c.End, out

		if exists, _ := afero.Exists(t.fs, out); exists {
			e.Status = StatusExists
			sum.Existing++
			entries = append(entries, e)
			continue
		}

		err := t.cut.Trim(ctx, src, out, time.Duration(c.Start)*time.Second, time.Duration(c.End)*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return entries, sum, ctx.Err()
			}
			e.Status, e.Error = StatusFail, err.Error()
			rep.Skip(ReasonTrimFailed, fmt.Sprintf("%s #%d: %v", vid, c.Index, err))
			t.logger.Warn().Err(err).Str("video_id", vid).Int("segment", c.Index).Msg("trim failed")
			sum.Failed++
			entries = append(entries, e)
			continue
		}
		e.Status = StatusOK
		sum.Written++
		sum.Audio += time.Duration(c.Len()) * time.Second
		entries = append(entries, e)
	}
	return entries, sum, nil
}

func (t *Trimmer) entry(vid, status, msg string) LogEntry {
	return LogEntry{Time: t.now(), VideoID: vid, Status: status, Error: msg}
}

func (t *Trimmer) fail(reason, vid, msg string, rep *report.Report) LogEntry {
	example := msg
	if vid != "" {
		example = vid + ": " + msg
	}
	rep.Skip(reason, example)
	t.logger.Warn().Str("video_id", vid).Str("reason", reason).Msg(msg)
	return t.entry(vid, StatusFail, msg)
}

func (s *Summary) add(o Summary) {
	s.Written += o.Written
	s.Existing += o.Existing
	s.Failed += o.Failed
	s.Audio += o.Audio
}
