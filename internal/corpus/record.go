// Package corpus defines the canonical segment record shared by every source
// pipeline and the master index built from them.
package corpus

import (
	"fmt"
	"strings"

	"github.com/alnah/go-accent-corpus/internal/table"
)

// Dataset tags for the two bundled sources.
const (
	DatasetNI   = "NI"
	DatasetDail = "DAIL"
)

// Canonical column names.
const (
	ColSegmentFile    = "segment_file"
	ColVideoID        = "video_id"
	ColSegmentIndex   = "segment_index"
	ColStartSec       = "start_sec"
	ColEndSec         = "end_sec"
	ColSpeaker        = "speaker"
	ColParty          = "party"
	ColConstituency   = "constituency"
	ColNativeCity     = "native_city"
	ColNativeCounty   = "native_county"
	ColNativeProvince = "native_province"
	ColClipName       = "clip_name"
	ColClipType       = "clip_type"
	ColExtraInfo      = "extra_info"
	ColValidTimes     = "valid_times"
	ColDataset        = "dataset"

	// ColResolved is appended by the path resolver.
	ColResolved = "segment_file_resolved"
)

// Fields is the master index column order.
var Fields = []string{
	ColSegmentFile,
	ColVideoID,
	ColSegmentIndex,
	ColStartSec,
	ColEndSec,
	ColSpeaker,
	ColParty,
	ColConstituency,
	ColNativeCity,
	ColNativeCounty,
	ColNativeProvince,
	ColClipName,
	ColClipType,
	ColExtraInfo,
	ColValidTimes,
	ColDataset,
}

// ResolvedFields is Fields plus the resolver column.
var ResolvedFields = append(append([]string(nil), Fields...), ColResolved)

// Record is one audio segment in the canonical schema. Numeric columns are
// kept as written so the index round-trips byte for byte.
type Record struct {
	SegmentFile    string
	VideoID        string
	SegmentIndex   string
	StartSec       string
	EndSec         string
	Speaker        string
	Party          string
	Constituency   string
	NativeCity     string
	NativeCounty   string
	NativeProvince string
	ClipName       string
	ClipType       string
	ExtraInfo      string
	ValidTimes     string
	Dataset        string
}

// Key is the deduplication identity of a record. SegmentIndex is deliberately
// absent: it is numbered per pipeline run and differs between runs that cut
// the same slice.
type Key struct {
	Dataset  string
	VideoID  string
	StartSec string
	EndSec   string
}

// Key returns the record's deduplication identity with each part trimmed.
func (r Record) Key() Key {
	return Key{
		Dataset:  strings.TrimSpace(r.Dataset),
		VideoID:  strings.TrimSpace(r.VideoID),
		StartSec: strings.TrimSpace(r.StartSec),
		EndSec:   strings.TrimSpace(r.EndSec),
	}
}

// String returns a short identification for logs and reports.
func (r Record) String() string {
	return fmt.Sprintf("%s/%s[%s-%s]", r.Dataset, r.VideoID, r.StartSec, r.EndSec)
}

// FromRow maps a sheet row onto a Record. Absent columns become empty strings
// and the dataset tag is trimmed.
func FromRow(row table.Row) Record {
	return Record{
		SegmentFile:    row[ColSegmentFile],
		VideoID:        row[ColVideoID],
		SegmentIndex:   row[ColSegmentIndex],
		StartSec:       row[ColStartSec],
		EndSec:         row[ColEndSec],
		Speaker:        row[ColSpeaker],
		Party:          row[ColParty],
		Constituency:   row[ColConstituency],
		NativeCity:     row[ColNativeCity],
		NativeCounty:   row[ColNativeCounty],
		NativeProvince: row[ColNativeProvince],
		ClipName:       row[ColClipName],
		ClipType:       row[ColClipType],
		ExtraInfo:      row[ColExtraInfo],
		ValidTimes:     row[ColValidTimes],
		Dataset:        strings.TrimSpace(row[ColDataset]),
	}
}

// Row converts the record to a sheet row keyed by canonical column names.
func (r Record) Row() table.Row {
	return table.Row{
		ColSegmentFile:    r.SegmentFile,
		ColVideoID:        r.VideoID,
		ColSegmentIndex:   r.SegmentIndex,
		ColStartSec:       r.StartSec,
		ColEndSec:         r.EndSec,
		ColSpeaker:        r.Speaker,
		ColParty:          r.Party,
		ColConstituency:   r.Constituency,
		ColNativeCity:     r.NativeCity,
		ColNativeCounty:   r.NativeCounty,
		ColNativeProvince: r.NativeProvince,
		ColClipName:       r.ClipName,
		ColClipType:       r.ClipType,
		ColExtraInfo:      r.ExtraInfo,
		ColValidTimes:     r.ValidTimes,
		ColDataset:        r.Dataset,
	}
}

// Resolved is a record annotated with the audio path found on disk.
// An empty SegmentFileResolved means the path could not be resolved.
type Resolved struct {
	Record
	SegmentFileResolved string
}

// Row converts the resolved record to a sheet row including the resolver column.
func (r Resolved) Row() table.Row {
	row := r.Record.Row()
	row[ColResolved] = r.SegmentFileResolved
	return row
}
