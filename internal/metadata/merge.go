package metadata

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/alnah/go-accent-corpus/internal/textnorm"
)

// Row is one file after both joins. Speaker fields are empty when the
// speaker key had no match, and Lon/Lat are empty when the constituency had
// no coordinates.
type Row struct {
	File
	Speaker
	Lon      string
	Lat      string
	Province string

	// Matched reports whether the speaker join found a row.
	Matched bool
}

// Duplicate is a normalised speaker key held by more than one master row.
type Duplicate struct {
	Key   string
	Count int
}

// Duplicates lists speaker keys that normalise to the same value, sorted by
// key. Blank keys are ignored.
func Duplicates(speakers []Speaker) []Duplicate {
	counts := make(map[string]int)
	for _, s := range speakers {
		if strings.TrimSpace(s.Key) == "" {
			continue
		}
		counts[textnorm.Key(s.Key)]++
	}
	var out []Duplicate
	for k, n := range counts {
		if n > 1 {
			out = append(out, Duplicate{Key: k, Count: n})
		}
	}
	slices.SortFunc(out, func(a, b Duplicate) int { return strings.Compare(a.Key, b.Key) })
	return out
}

// Merge left-joins files to speakers on the normalised speaker key, then to
// coordinates on the normalised constituency, and derives each row's
// province. Every file yields exactly one row in input order.
//
// Merge fails with ErrCardinalityViolation when either right-hand table holds
// a key more than once.
func Merge(files []File, speakers []Speaker, coords []Coordinate) ([]Row, Diagnostics, error) {
	bySpeaker, err := indexSpeakers(speakers)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	byPlace, err := indexCoordinates(coords)
	if err != nil {
		return nil, Diagnostics{}, err
	}

	rows := make([]Row, 0, len(files))
	for _, f := range files {
		src := f.SpeakerKey
		if strings.TrimSpace(src) == "" {
			src = f.SpeakerRaw
		}
		f.SpeakerKey = textnorm.Key(src)

		r := Row{File: f}
		if s, ok := bySpeaker[f.SpeakerKey]; ok {
			r.Speaker = s
			r.Speaker.Key = f.SpeakerKey
			r.Matched = true
		}
		if c, ok := byPlace[textnorm.PlaceKey(r.Constituency)]; ok && r.Constituency != "" {
			r.Lon, r.Lat = c.Lon, c.Lat
		}
		r.Province = ProvinceOf(r.Constituency)
		rows = append(rows, r)
	}
	return rows, Diagnose(rows), nil
}

func indexSpeakers(speakers []Speaker) (map[string]Speaker, error) {
	if d := Duplicates(speakers); len(d) > 0 {
		parts := make([]string, 0, len(d))
		for _, x := range d {
			parts = append(parts, fmt.Sprintf("%q x%d", x.Key, x.Count))
		}
		return nil, fmt.Errorf("%w: speaker_key %s", ErrCardinalityViolation, strings.Join(parts, ", "))
	}
	m := make(map[string]Speaker, len(speakers))
	for _, s := range speakers {
		if strings.TrimSpace(s.Key) == "" {
			continue
		}
		m[textnorm.Key(s.Key)] = s
	}
	return m, nil
}

func indexCoordinates(coords []Coordinate) (map[string]Coordinate, error) {
	m := make(map[string]Coordinate, len(coords))
	var dups []string
	for _, c := range coords {
		k := textnorm.PlaceKey(c.Constituency)
		if k == "" {
			continue
		}
		if _, ok := m[k]; ok {
			dups = append(dups, c.Constituency)
			continue
		}
		m[k] = c
	}
	if len(dups) > 0 {
		slices.Sort(dups)
		return nil, fmt.Errorf("%w: constituency %s", ErrCardinalityViolation, strings.Join(slices.Compact(dups), ", "))
	}
	return m, nil
}

// Diagnostics are advisory counts over a merged table.
type Diagnostics struct {
	Rows                    int
	UniqueSpeakers          int
	UnmatchedSpeakers       int
	UnmatchedConstituencies int
	UnmatchedProvinces      int
	UnmatchedCoordinates    int

	// MissingCoordinates lists constituencies present in the speaker master
	// but absent from the coordinate table, sorted.
	MissingCoordinates []string
}

// Diagnose computes Diagnostics for rows.
func Diagnose(rows []Row) Diagnostics {
	d := Diagnostics{Rows: len(rows)}
	speakers := make(map[string]struct{})
	missing := make(map[string]struct{})

	for _, r := range rows {
		if r.SpeakerKey != "" {
			speakers[r.SpeakerKey] = struct{}{}
		}
		if !r.Matched {
			d.UnmatchedSpeakers++
		}
		if r.Constituency == "" {
			d.UnmatchedConstituencies++
		}
		if r.Province == "" {
			d.UnmatchedProvinces++
		}
		if r.Lon == "" || r.Lat == "" {
			d.UnmatchedCoordinates++
			if r.Constituency != "" {
				missing[r.Constituency] = struct{}{}
			}
		}
	}

	d.UniqueSpeakers = len(speakers)
	for c := range missing {
		d.MissingCoordinates = append(d.MissingCoordinates, c)
	}
	slices.Sort(d.MissingCoordinates)
	return d
}

// WriteTo prints the diagnostics for an operator.
func (d Diagnostics) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintln(&b, "join diagnostics:")
	fmt.Fprintf(&b, "  rows: %d\n", d.Rows)
	fmt.Fprintf(&b, "  unique speakers: %d\n", d.UniqueSpeakers)
	fmt.Fprintf(&b, "  unmatched speakers: %d\n", d.UnmatchedSpeakers)
	fmt.Fprintf(&b, "  missing constituency: %d\n", d.UnmatchedConstituencies)
	fmt.Fprintf(&b, "  missing province: %d\n", d.UnmatchedProvinces)
	fmt.Fprintf(&b, "  missing coordinates: %d\n", d.UnmatchedCoordinates)
	if len(d.MissingCoordinates) > 0 {
		fmt.Fprintln(&b, "  constituencies absent from coordinate table:")
		for _, c := range d.MissingCoordinates {
			fmt.Fprintf(&b, "    - %s\n", c)
		}
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
