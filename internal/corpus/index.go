package corpus

import (
	"github.com/spf13/afero"

	"github.com/alnah/go-accent-corpus/internal/table"
)

// ReadIndex loads a canonical index. Columns missing from the sheet are
// filled with empty strings, so older per-source indexes without the native
// region columns still load.
func ReadIndex(fsys afero.Fs, path string) ([]Record, error) {
	t, err := table.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	return Records(t), nil
}

// Records converts every row of t to a Record.
func Records(t *table.Table) []Record {
	out := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, FromRow(row))
	}
	return out
}

// WriteIndex replaces path with recs in master column order.
func WriteIndex(fsys afero.Fs, path string, recs []Record) error {
	rows := make([]table.Row, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, r.Row())
	}
	return table.WriteFile(fsys, path, Fields, rows)
}

// ReadResolved loads a master index written by WriteResolved. The resolver
// column is required.
func ReadResolved(fsys afero.Fs, path string) ([]Resolved, error) {
	t, err := table.ReadFileRequire(fsys, path, ColResolved)
	if err != nil {
		return nil, err
	}
	out := make([]Resolved, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, Resolved{Record: FromRow(row), SegmentFileResolved: row[ColResolved]})
	}
	return out, nil
}

// WriteResolved replaces path with recs including the resolver column.
func WriteResolved(fsys afero.Fs, path string, recs []Resolved) error {
	rows := make([]table.Row, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, r.Row())
	}
	return table.WriteFile(fsys, path, ResolvedFields, rows)
}
