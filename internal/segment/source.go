// Package segment cuts annotated source clips into bounded segments and
// indexes the resulting files as canonical corpus records.
//
// A Source describes one dataset: where its annotation sheet and audio live,
// which sheet columns hold what, and how long segments may be. The same
// Trimmer and Index serve every dataset.
package segment

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Defaults for Source fields.
const (
	DefaultMaxChunk  = 30
	DefaultAudioExt  = ".wav"
	DefaultSlugLimit = 80
)

// Columns names the annotation sheet columns read by the trimmer and indexer.
type Columns struct {
	URL          string
	ValidTimes   string
	Speaker      string
	Party        string
	Constituency string
	ClipName     string
	ClipType     string
	ExtraInfo    string
}

// DefaultColumns returns the headers used by the bundled annotation sheets.
func DefaultColumns() Columns {
	return Columns{
		URL:          "youtube_url",
		ValidTimes:   "valid_times",
		Speaker:      "speaker",
		Party:        "party",
		Constituency: "constituency",
		ClipName:     "clip_name",
		ClipType:     "clip_type",
		ExtraInfo:    "extra_info",
	}
}

// withDefaults fills blank column names from DefaultColumns.
func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&c.URL, d.URL)
	fill(&c.ValidTimes, d.ValidTimes)
	fill(&c.Speaker, d.Speaker)
	fill(&c.Party, d.Party)
	fill(&c.Constituency, d.Constituency)
	fill(&c.ClipName, d.ClipName)
	fill(&c.ClipType, d.ClipType)
	fill(&c.ExtraInfo, d.ExtraInfo)
	return c
}

// Source is the per-dataset configuration of the trimming pipeline.
type Source struct {
	Dataset  string
	Columns  Columns
	AudioDir string // downloaded clips named <video_id><AudioExt>
	AudioExt string
	OutDir   string // segment output directory
	MaxChunk int    // seconds; 0 disables splitting
	Gap      int    // seconds skipped between consecutive chunks
}

// Normalize validates s and fills defaults.
func (s Source) Normalize() (Source, error) {
	s.Dataset = strings.TrimSpace(s.Dataset)
	if s.Dataset == "" {
		return s, fmt.Errorf("%w: dataset is empty", ErrInvalidSource)
	}
	if s.AudioDir == "" {
		return s, fmt.Errorf("%w: %s: audio directory is empty", ErrInvalidSource, s.Dataset)
	}
	if s.OutDir == "" {
		return s, fmt.Errorf("%w: %s: output directory is empty", ErrInvalidSource, s.Dataset)
	}
	if s.MaxChunk < 0 || s.Gap < 0 {
		return s, fmt.Errorf("%w: %s: negative chunk length or gap", ErrInvalidSource, s.Dataset)
	}
	if s.AudioExt == "" {
		s.AudioExt = DefaultAudioExt
	}
	if !strings.HasPrefix(s.AudioExt, ".") {
		s.AudioExt = "." + s.AudioExt
	}
	s.Columns = s.Columns.withDefaults()
	return s, nil
}

// ClipPath returns the downloaded clip path for videoID.
func (s Source) ClipPath(videoID string) string {
	return filepath.Join(s.AudioDir, videoID+s.AudioExt)
}
