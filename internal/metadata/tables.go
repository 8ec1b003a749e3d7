// Package metadata joins the per-file, per-speaker and per-constituency
// sheets of the Dáil source into one table and derives the model-ready view.
package metadata

import (
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/alnah/go-accent-corpus/internal/table"
	"github.com/alnah/go-accent-corpus/internal/textnorm"
)

// Files table columns.
const (
	ColFilename    = "filename"
	ColFilenameRaw = "filename_raw"
	ColSpeakerRaw  = "speaker_raw"
	ColSpeakerKey  = "speaker_key"
)

// Speaker master columns.
const (
	ColSpeaker        = "speaker"
	ColParty          = "party"
	ColConstituency   = "constituency"
	ColNonTDRole      = "non_td_role"
	ColGender         = "gender"
	ColNativePlace    = "native_place"
	ColNativeCity     = "native_city"
	ColNativeCounty   = "native_county"
	ColNativeProvince = "native_province"
	ColExtraInfo      = "extra_information"
)

// Coordinate table columns.
const (
	ColConstituencies = "constituencies"
	ColXCoordinates   = "x_coordinates"
	ColYCoordinates   = "y_coordinates"
)

// Merged-only columns.
const (
	ColLon      = "lon"
	ColLat      = "lat"
	ColProvince = "province"
)

// Required columns per input sheet.
var (
	FilesColumns       = []string{ColFilename, ColSpeakerRaw, ColSpeakerKey}
	SpeakersColumns    = []string{ColSpeakerKey, ColConstituency, ColNonTDRole, ColGender}
	CoordinatesColumns = []string{ColConstituencies, ColXCoordinates, ColYCoordinates}
)

// File is one downloaded clip and the speaker its name was attributed to.
type File struct {
	Filename    string
	FilenameRaw string
	SpeakerRaw  string
	SpeakerKey  string
}

// Speaker is one row of the speaker master sheet.
type Speaker struct {
	Key            string
	Speaker        string
	Party          string
	Constituency   string
	NonTDRole      string
	Gender         string
	NativePlace    string
	NativeCity     string
	NativeCounty   string
	NativeProvince string
	ExtraInfo      string
}

// Coordinate places a constituency on the map. Lon and Lat are empty when
// the sheet holds no parsable number.
type Coordinate struct {
	Constituency string
	Lon          string
	Lat          string
}

// FilesFrom converts a files sheet. The raw filename is kept as written and
// the other fields are whitespace-collapsed.
func FilesFrom(t *table.Table) ([]File, error) {
	if err := t.Require("files table", FilesColumns...); err != nil {
		return nil, err
	}
	out := make([]File, 0, len(t.Rows))
	for _, row := range t.Rows {
		raw := row[ColFilename]
		if t.Has(ColFilenameRaw) && row[ColFilenameRaw] != "" {
			raw = row[ColFilenameRaw]
		}
		out = append(out, File{
			Filename:    textnorm.CollapseSpace(row[ColFilename]),
			FilenameRaw: raw,
			SpeakerRaw:  textnorm.CollapseSpace(row[ColSpeakerRaw]),
			SpeakerKey:  row[ColSpeakerKey],
		})
	}
	return out, nil
}

// SpeakersFrom converts a speaker master sheet. Optional columns that are
// absent become empty strings.
func SpeakersFrom(t *table.Table) ([]Speaker, error) {
	if err := t.Require("speakers table", SpeakersColumns...); err != nil {
		return nil, err
	}
	out := make([]Speaker, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, Speaker{
			Key:            row[ColSpeakerKey],
			Speaker:        row.Get(ColSpeaker),
			Party:          row.Get(ColParty),
			Constituency:   textnorm.CollapseSpace(row[ColConstituency]),
			NonTDRole:      textnorm.CollapseSpace(row[ColNonTDRole]),
			Gender:         row.Get(ColGender),
			NativePlace:    row.Get(ColNativePlace),
			NativeCity:     row.Get(ColNativeCity),
			NativeCounty:   row.Get(ColNativeCounty),
			NativeProvince: row.Get(ColNativeProvince),
			ExtraInfo:      row.Get(ColExtraInfo),
		})
	}
	return out, nil
}

// CoordinatesFrom converts a coordinate sheet. Non-numeric coordinates are
// blanked rather than rejected.
func CoordinatesFrom(t *table.Table) ([]Coordinate, error) {
	if err := t.Require("coordinates table", CoordinatesColumns...); err != nil {
		return nil, err
	}
	out := make([]Coordinate, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, Coordinate{
			Constituency: textnorm.CollapseSpace(row[ColConstituencies]),
			Lon:          numeric(row[ColXCoordinates]),
			Lat:          numeric(row[ColYCoordinates]),
		})
	}
	return out, nil
}

// LoadFiles reads and converts a files sheet.
func LoadFiles(fsys afero.Fs, path string) ([]File, error) {
	t, err := table.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	return FilesFrom(t)
}

// LoadSpeakers reads and converts a speaker master sheet.
func LoadSpeakers(fsys afero.Fs, path string) ([]Speaker, error) {
	t, err := table.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	return SpeakersFrom(t)
}

// LoadCoordinates reads and converts a coordinate sheet.
func LoadCoordinates(fsys afero.Fs, path string) ([]Coordinate, error) {
	t, err := table.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	return CoordinatesFrom(t)
}

func numeric(s string) string {
	s = strings.TrimSpace(s)
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return ""
	}
	return s
}
