package metadata

import (
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"

	"github.com/alnah/go-accent-corpus/internal/corpus"
	"github.com/alnah/go-accent-corpus/internal/ident"
	"github.com/alnah/go-accent-corpus/internal/report"
	"github.com/alnah/go-accent-corpus/internal/table"
	"github.com/alnah/go-accent-corpus/internal/validtimes"
)

// MergedFields is the column order of the all and model sheets.
var MergedFields = []string{
	ColFilename,
	ColFilenameRaw,
	ColSpeakerRaw,
	ColSpeakerKey,
	ColSpeaker,
	ColParty,
	ColConstituency,
	ColNonTDRole,
	ColGender,
	ColNativePlace,
	ColNativeCity,
	ColNativeCounty,
	ColNativeProvince,
	ColExtraInfo,
	ColLon,
	ColLat,
	ColProvince,
}

// ReasonNoVideoID is the report reason for rows whose filename carries no id.
const ReasonNoVideoID = "unresolvable_identifier"

// ModelView keeps rows of primary-role speakers (blank non_td_role) that
// have both a constituency and a province.
func ModelView(rows []Row) []Row {
	var out []Row
	for _, r := range rows {
		if r.NonTDRole != "" || r.Constituency == "" || r.Province == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ProvinceCounts returns the number of rows per province.
func ProvinceCounts(rows []Row) map[string]int {
	m := make(map[string]int)
	for _, r := range rows {
		if r.Province != "" {
			m[r.Province]++
		}
	}
	return m
}

func (r Row) row() table.Row {
	return table.Row{
		ColFilename:       r.Filename,
		ColFilenameRaw:    r.FilenameRaw,
		ColSpeakerRaw:     r.SpeakerRaw,
		ColSpeakerKey:     r.SpeakerKey,
		ColSpeaker:        r.Speaker.Speaker,
		ColParty:          r.Party,
		ColConstituency:   r.Constituency,
		ColNonTDRole:      r.NonTDRole,
		ColGender:         r.Gender,
		ColNativePlace:    r.NativePlace,
		ColNativeCity:     r.NativeCity,
		ColNativeCounty:   r.NativeCounty,
		ColNativeProvince: r.NativeProvince,
		ColExtraInfo:      r.ExtraInfo,
		ColLon:            r.Lon,
		ColLat:            r.Lat,
		ColProvince:       r.Province,
	}
}

// WriteRows replaces path with rows in MergedFields order.
func WriteRows(fsys afero.Fs, path string, rows []Row) error {
	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.row())
	}
	return table.WriteFile(fsys, path, MergedFields, out)
}

// RecordOptions control the conversion of merged rows to canonical records.
type RecordOptions struct {
	Dataset  string
	AudioDir string

	// Window is the slice of every clip the records describe.
	Window validtimes.Interval
}

// ToRecords converts merged rows to canonical records. Rows whose filename
// yields no video id are skipped and recorded in rep, which may be nil.
func ToRecords(rows []Row, opts RecordOptions, rep *report.Report) []corpus.Record {
	start := strconv.Itoa(opts.Window.Start)
	end := strconv.Itoa(opts.Window.End)
	valid := validtimes.FormatInterval(opts.Window)

	out := make([]corpus.Record, 0, len(rows))
	for _, r := range rows {
		id, err := ident.FromFilename(r.Filename)
		if err != nil {
			if rep != nil {
				rep.Skip(ReasonNoVideoID, r.Filename)
			}
			continue
		}

		province := r.NativeProvince
		if province == "" {
			province = r.Province
		}
		path := r.FilenameRaw
		if opts.AudioDir != "" {
			path = filepath.Join(opts.AudioDir, r.FilenameRaw)
		}

		out = append(out, corpus.Record{
			SegmentFile:    path,
			VideoID:        id,
			SegmentIndex:   "001",
			StartSec:       start,
			EndSec:         end,
			Speaker:        r.SpeakerKey,
			Party:          r.Party,
			Constituency:   r.Constituency,
			NativeCity:     r.NativeCity,
			NativeCounty:   r.NativeCounty,
			NativeProvince: province,
			ClipName:       r.FilenameRaw,
			ExtraInfo:      r.ExtraInfo,
			ValidTimes:     valid,
			Dataset:        opts.Dataset,
		})
	}
	return out
}
