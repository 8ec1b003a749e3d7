package segment

import (
	"strconv"

	"github.com/alnah/go-accent-corpus/internal/corpus"
	"github.com/alnah/go-accent-corpus/internal/ident"
	"github.com/alnah/go-accent-corpus/internal/report"
	"github.com/alnah/go-accent-corpus/internal/table"
)

// ReasonNoAnnotation marks indexed segments whose video id has no row in the
// annotation sheet. The segment is still indexed with blank metadata.
const ReasonNoAnnotation = "no_annotation"

// IndexStats tallies one indexing run.
type IndexStats struct {
	Entries      int // trim log entries read
	Indexed      int
	NoAnnotation int
	NoNative     int // indexed rows with no native region values
}

// Index joins the trim log with the annotation sheet by video id and returns
// canonical records tagged with the source dataset. Only entries whose
// segment is on disk (ok or exists) are indexed. Native region columns come
// from native when given, else from the annotation sheet itself.
//
// When several sheet rows share a video id the last one wins.
func Index(src Source, log []LogEntry, sheet, native *table.Table, rep *report.Report) ([]corpus.Record, IndexStats, error) {
	src, err := src.Normalize()
	if err != nil {
		return nil, IndexStats{}, err
	}
	if rep == nil {
		rep = report.New("index", 0)
	}
	cols := src.Columns
	if err := sheet.Require(src.Dataset+" annotation sheet", cols.URL); err != nil {
		return nil, IndexStats{}, err
	}
	meta := byVideoID(sheet, cols.URL)

	regions := meta
	if native != nil {
		if err := native.Require(src.Dataset+" native sheet", cols.URL); err != nil {
			return nil, IndexStats{}, err
		}
		regions = byVideoID(native, cols.URL)
	}

	var (
		out   []corpus.Record
		stats IndexStats
	)
	for _, e := range log {
		stats.Entries++
		if !e.Indexable() {
			continue
		}
		row, ok := meta[e.VideoID]
		if !ok {
			stats.NoAnnotation++
			rep.Skip(ReasonNoAnnotation, e.Output)
			row = table.Row{}
		}
		rec := corpus.Record{
			SegmentFile:  e.Output,
			VideoID:      e.VideoID,
			SegmentIndex: strconv.Itoa(e.Segment),
			StartSec:     strconv.Itoa(e.Start),
			EndSec:       strconv.Itoa(e.End),
			Speaker:      row.Get(cols.Speaker),
			Party:        row.Get(cols.Party),
			Constituency: row.Get(cols.Constituency),
			ClipName:     row.Get(cols.ClipName),
			ClipType:     row.Get(cols.ClipType),
			ExtraInfo:    row.Get(cols.ExtraInfo),
			ValidTimes:   row.Get(cols.ValidTimes),
			Dataset:      src.Dataset,
		}
		if r, ok := regions[e.VideoID]; ok {
			rec.NativeCity = r.Get(corpus.ColNativeCity)
			rec.NativeCounty = r.Get(corpus.ColNativeCounty)
			rec.NativeProvince = r.Get(corpus.ColNativeProvince)
		}
		if rec.NativeCity == "" && rec.NativeCounty == "" && rec.NativeProvince == "" {
			stats.NoNative++
		}
		out = append(out, rec)
		stats.Indexed++
	}
	return out, stats, nil
}

// byVideoID maps the video id of each row's URL to the row. Rows without a
// resolvable id are dropped.
func byVideoID(t *table.Table, urlCol string) map[string]table.Row {
	m := make(map[string]table.Row, len(t.Rows))
	for _, row := range t.Rows {
		vid, err := ident.FromURL(row.Get(urlCol))
		if err != nil {
			continue
		}
		m[vid] = row
	}
	return m
}
