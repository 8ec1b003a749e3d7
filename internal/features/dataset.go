package features

import (
	"fmt"
	"strconv"

	"github.com/spf13/afero"

	"github.com/alnah/go-accent-corpus/internal/table"
)

// Dataset sheet columns preceding the feature columns f1..fn.
const (
	ColGroup = "group"
	ColLabel = "label"
	ColFold  = "fold"
	ColPath  = "path"
)

func featureColumn(i int) string {
	return "f" + strconv.Itoa(i+1)
}

// WriteDataset replaces path with one row per sample. fold holds the
// 1-based fold of each sample as assigned by GroupKFold plus one.
func WriteDataset(fsys afero.Fs, path string, m *Matrix, fold []int) error {
	if len(fold) != m.Len() {
		return fmt.Errorf("%d fold assignments for %d samples", len(fold), m.Len())
	}
	dim := m.Dim()
	header := []string{ColGroup, ColLabel, ColFold, ColPath}
	for i := range dim {
		header = append(header, featureColumn(i))
	}

	rows := make([]table.Row, 0, m.Len())
	for i := range m.Len() {
		row := table.Row{
			ColGroup: m.Groups[i],
			ColLabel: m.Labels[i],
			ColFold:  strconv.Itoa(fold[i]),
			ColPath:  m.Paths[i],
		}
		for j, v := range m.Features[i] {
			row[featureColumn(j)] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		rows = append(rows, row)
	}
	return table.WriteFile(fsys, path, header, rows)
}

// ReadDataset loads a sheet written by WriteDataset. Feature columns are
// f1, f2, ... up to the first absent index.
func ReadDataset(fsys afero.Fs, path string) (*Matrix, error) {
	t, err := table.ReadFileRequire(fsys, path, ColGroup, ColLabel, ColPath, featureColumn(0))
	if err != nil {
		return nil, err
	}
	dim := 0
	for t.Has(featureColumn(dim)) {
		dim++
	}

	m := &Matrix{}
	for i, row := range t.Rows {
		vec := make([]float64, dim)
		for j := range dim {
			v, err := strconv.ParseFloat(row.Get(featureColumn(j)), 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %s: %w", path, i+2, featureColumn(j), err)
			}
			vec[j] = v
		}
		m.Features = append(m.Features, vec)
		m.Labels = append(m.Labels, row.Get(ColLabel))
		m.Groups = append(m.Groups, row.Get(ColGroup))
		m.Paths = append(m.Paths, row.Get(ColPath))
	}
	if m.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDataset, path)
	}
	return m, nil
}
