// Package table reads and writes the CSV sheets exchanged between pipeline stages.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrMissingColumns indicates an input sheet lacks columns a stage requires.
var ErrMissingColumns = errors.New("missing required columns")

// Row is one CSV record keyed by header name.
type Row map[string]string

// Get returns the trimmed value of column, or "" when absent.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r[column])
}

// Table is an in-memory CSV sheet. Header order is preserved for writing.
type Table struct {
	Header []string
	Rows   []Row
}

// Has reports whether the table has the given column.
func (t *Table) Has(column string) bool {
	return slices.Contains(t.Header, column)
}

// Require returns ErrMissingColumns listing every required column the table lacks.
// name identifies the sheet in the error message.
func (t *Table) Require(name string, columns ...string) error {
	var missing []string
	for _, c := range columns {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return fmt.Errorf("%w: %s lacks %s", ErrMissingColumns, name, strings.Join(missing, ", "))
}

// Read parses a CSV stream whose first record is the header. A UTF-8 byte
// order mark is stripped. Short records are padded with empty values and
// surplus fields are ignored.
func Read(r io.Reader) (*Table, error) {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(dec)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := &Table{Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadFile opens and parses the CSV file at path.
func ReadFile(fsys afero.Fs, path string) (*Table, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ReadFileRequire reads path and checks the required columns.
func ReadFileRequire(fsys afero.Fs, path string, columns ...string) (*Table, error) {
	t, err := ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	if err := t.Require(path, columns...); err != nil {
		return nil, err
	}
	return t, nil
}

// Write encodes header and rows as CSV. Columns absent from a row are written empty.
func Write(w io.Writer, header []string, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(header))
	for _, r := range rows {
		for i, col := range header {
			rec[i] = r[col]
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile replaces path with the given sheet. Output goes to a temporary
// file in the same directory and is renamed into place, so readers never see
// a partial sheet and stale outputs are overwritten rather than merged.
func WriteFile(fsys afero.Fs, path string, header []string, rows []Row) error {
	return WriteFileFunc(fsys, path, func(w io.Writer) error {
		return Write(w, header, rows)
	})
}

// WriteFileFunc atomically replaces path with whatever fn writes.
func WriteFileFunc(fsys afero.Fs, path string, fn func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}

	tmp, err := afero.TempFile(fsys, dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("cannot create output file: %w", err)
	}
	tmpName := tmp.Name()

	writeErr := fn(tmp)
	closeErr := tmp.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, writeErr)
	}

	if err := fsys.Rename(tmpName, path); err != nil {
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
