package features_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/alnah/go-accent-corpus/internal/corpus"
	"github.com/alnah/go-accent-corpus/internal/features"
	"github.com/alnah/go-accent-corpus/internal/report"
	"github.com/alnah/go-accent-corpus/internal/table"
)

var provinces = []string{"Connacht", "Leinster", "Munster", "Ulster"}

type fixture struct {
	fs  afero.Fs
	tbl *table.Table
}

func (f *fixture) add(t *testing.T, speaker, label, stored, resolved string, create ...string) {
	t.Helper()
	f.tbl.Rows = append(f.tbl.Rows, table.Row{
		corpus.ColDataset:        "NI",
		corpus.ColSpeaker:        speaker,
		corpus.ColNativeProvince: label,
		corpus.ColSegmentFile:    stored,
		corpus.ColResolved:       resolved,
	})
	for _, p := range create {
		if err := afero.WriteFile(f.fs, p, []byte("RIFF"), 0o640); err != nil {
			t.Fatal(err)
		}
	}
}

func newFixture() *fixture {
	return &fixture{
		fs: afero.NewMemMapFs(),
		tbl: &table.Table{Header: []string{
			corpus.ColDataset, corpus.ColSpeaker, corpus.ColNativeProvince,
			corpus.ColSegmentFile, corpus.ColResolved,
		}},
	}
}

// vectorByName returns [n, n, n] where n is the digit in the file name,
// fails for names containing "broken" and returns a short vector for
// names containing "short".
var vectorByName = features.ExtractorFunc(func(_ context.Context, path string) ([]float64, error) {
	base := filepath.Base(path)
	switch {
	case strings.Contains(base, "broken"):
		return nil, errors.New("decoder exploded")
	case strings.Contains(base, "short"):
		return []float64{1, 2}, nil
	}
	var n float64
	for _, r := range base {
		if r >= '0' && r <= '9' {
			n = float64(r - '0')
			break
		}
	}
	return []float64{n, n, n}, nil
})

func opts() features.Options {
	o := features.DefaultOptions()
	o.Labels = provinces
	return o
}

// ---------------------------------------------------------------------------
// Build - row filtering
// ---------------------------------------------------------------------------

func TestBuild_FiltersAndRecordsSkips(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.add(t, "S1", "Leinster", "/old/s1.wav", "/new/s1.wav", "/new/s1.wav")
	f.add(t, "S2", " Munster ", "/ni/s2.wav", "", "/ni/s2.wav")
	f.add(t, "S3", "Ulster", "/ni/s3.wav", "", "/ni/s3.wav")
	f.add(t, "S4", "Connacht", "/ni/s4.wav", "", "/ni/s4.wav")
	f.add(t, "S5", "Leinster", "/ni/s5.wav", "/gone/s5.wav", "/ni/s5.wav")
	f.add(t, "S6", "", "/ni/s6.wav", "", "/ni/s6.wav")
	f.add(t, "S7", "Other", "/ni/s7.wav", "", "/ni/s7.wav")
	f.add(t, "S8", "Munster", "/ni/s8.wav", "")
	f.add(t, "S9", "Munster", "/ni/broken9.wav", "", "/ni/broken9.wav")
	f.add(t, "S10", "Munster", "/ni/short.wav", "", "/ni/short.wav")

	rep := report.New("features", 0)
	b := features.NewBuilder(vectorByName, opts(), features.WithFs(f.fs))
	m, err := b.Build(context.Background(), f.tbl, rep)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	wantPaths := []string{"/new/s1.wav", "/ni/s2.wav", "/ni/s3.wav", "/ni/s4.wav", "/ni/s5.wav"}
	if !reflect.DeepEqual(m.Paths, wantPaths) {
		t.Errorf("Paths = %v, want %v", m.Paths, wantPaths)
	}
	wantLabels := []string{"Leinster", "Munster", "Ulster", "Connacht", "Leinster"}
	if !reflect.DeepEqual(m.Labels, wantLabels) {
		t.Errorf("Labels = %v, want %v", m.Labels, wantLabels)
	}
	if m.Groups[0] != "ni_s1" {
		t.Errorf("Groups[0] = %q, want ni_s1", m.Groups[0])
	}
	if m.Dim() != 3 || !reflect.DeepEqual(m.Features[1], []float64{2, 2, 2}) {
		t.Errorf("Features = %v", m.Features)
	}

	for _, reason := range []string{
		features.ReasonMissingLabel,
		features.ReasonRejectedLabel,
		features.ReasonMissingAudio,
		features.ReasonExtractError,
		features.ReasonFeatureLength,
	} {
		if got := rep.Count(reason); got != 1 {
			t.Errorf("report %s = %d, want 1", reason, got)
		}
	}
}

func TestBuild_InsufficientGroups(t *testing.T) {
	t.Parallel()

	f := newFixture()
	for i := range 4 {
		p := fmt.Sprintf("/ni/s%d.wav", i)
		f.add(t, fmt.Sprintf("S%d", i), "Leinster", p, "", p)
	}
	// Same speaker twice does not add a group.
	f.add(t, "S0", "Leinster", "/ni/s0b.wav", "", "/ni/s0b.wav")

	b := features.NewBuilder(vectorByName, opts(), features.WithFs(f.fs))
	m, err := b.Build(context.Background(), f.tbl, nil)
	if !errors.Is(err, features.ErrInsufficientGroups) {
		t.Fatalf("Build() error = %v, want ErrInsufficientGroups", err)
	}
	if m.Len() != 5 {
		t.Errorf("matrix rows = %d, want 5", m.Len())
	}
}

func TestBuild_SpeakerCapIsSeeded(t *testing.T) {
	t.Parallel()

	f := newFixture()
	for i := range 30 {
		p := fmt.Sprintf("/ni/big_%02d.wav", i)
		f.add(t, "Prolific", "Leinster", p, "", p)
	}
	for i := 1; i <= 4; i++ {
		p := fmt.Sprintf("/ni/s%d.wav", i)
		f.add(t, fmt.Sprintf("S%d", i), "Munster", p, "", p)
	}

	build := func() (*features.Matrix, *report.Report) {
		rep := report.New("features", 0)
		o := opts()
		o.Workers = 8
		m, err := features.NewBuilder(vectorByName, o, features.WithFs(f.fs)).Build(context.Background(), f.tbl, rep)
		if err != nil {
			t.Fatal(err)
		}
		return m, rep
	}

	a, rep := build()
	b, _ := build()
	if !reflect.DeepEqual(a.Paths, b.Paths) {
		t.Error("two builds with the same seed kept different rows")
	}
	if got := rep.Count(features.ReasonCapped); got != 10 {
		t.Errorf("capped = %d, want 10", got)
	}

	big := 0
	for _, g := range a.Groups {
		if g == "ni_prolific" {
			big++
		}
	}
	if big != features.DefaultMaxPerGroup {
		t.Errorf("prolific rows kept = %d, want %d", big, features.DefaultMaxPerGroup)
	}
	if !slices.IsSorted(a.Paths[:big]) {
		t.Errorf("kept rows lost input order: %v", a.Paths[:big])
	}
}

func TestBuild_Cancelled(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.add(t, "S1", "Leinster", "/ni/s1.wav", "", "/ni/s1.wav")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := features.NewBuilder(vectorByName, opts(), features.WithFs(f.fs)).Build(ctx, f.tbl, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Build() error = %v, want context.Canceled", err)
	}
}

// ---------------------------------------------------------------------------
// GroupKeys
// ---------------------------------------------------------------------------

func TestGroupKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		csv  string
		want []string
	}{
		{
			name: "slugged dataset and speaker",
			csv:  "dataset,speaker\nNI,Seán Óg\n DAIL ,\n",
			want: []string{"ni_sean-og", "dail_unknown"},
		},
		{
			name: "speaker_key column used when populated",
			csv:  "dataset,speaker,speaker_key\nNI,A, key-a \nNI,B,\n",
			want: []string{"key-a", ""},
		},
		{
			name: "blank speaker_key column ignored",
			csv:  "dataset,speaker,speaker_key\nNI,A,\n",
			want: []string{"ni_a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tbl, err := table.Read(strings.NewReader(tt.csv))
			if err != nil {
				t.Fatal(err)
			}
			if got := features.GroupKeys(tbl); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GroupKeys() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// GroupKFold and CrossValidate
// ---------------------------------------------------------------------------

func TestGroupKFold(t *testing.T) {
	t.Parallel()

	groups := []string{"a", "b", "a", "c", "d", "b", "a", "c"}
	got, k := features.GroupKFold(groups, 2)
	if k != 2 {
		t.Fatalf("k = %d, want 2", k)
	}
	want := []int{0, 1, 0, 1, 0, 1, 0, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GroupKFold() = %v, want %v", got, want)
	}

	if _, k := features.GroupKFold(groups, 5); k != 4 {
		t.Errorf("k with 5 folds over 4 groups = %d, want 4", k)
	}
	if _, k := features.GroupKFold(nil, 5); k != 0 {
		t.Errorf("k with no groups = %d, want 0", k)
	}
}

func separable() *features.Matrix {
	m := &features.Matrix{}
	for g := 1; g <= 6; g++ {
		label, base := "A", 0.0
		if g > 3 {
			label, base = "B", 10.0
		}
		for s := range 2 {
			m.Features = append(m.Features, []float64{base + float64(s), base})
			m.Labels = append(m.Labels, label)
			m.Groups = append(m.Groups, fmt.Sprintf("g%d", g))
			m.Paths = append(m.Paths, fmt.Sprintf("/g%d_%d.wav", g, s))
		}
	}
	return m
}

func TestCrossValidate_Separable(t *testing.T) {
	t.Parallel()

	ev, err := features.CrossValidate(separable(), 3, func() features.Classifier { return &features.NearestCentroid{} })
	if err != nil {
		t.Fatal(err)
	}
	if ev.K != 3 || len(ev.Folds) != 3 {
		t.Errorf("K = %d, folds = %d; want 3", ev.K, len(ev.Folds))
	}
	if ev.Accuracy != 1 {
		t.Errorf("Accuracy = %v, want 1", ev.Accuracy)
	}
	if want := [][]int{{6, 0}, {0, 6}}; !reflect.DeepEqual(ev.Confusion, want) {
		t.Errorf("Confusion = %v, want %v", ev.Confusion, want)
	}

	var b strings.Builder
	if _, err := ev.WriteTo(&b); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "overall accuracy 1.000") {
		t.Errorf("WriteTo() output:\n%s", b.String())
	}
}

func TestCrossValidate_SingleGroup(t *testing.T) {
	t.Parallel()

	m := &features.Matrix{
		Features: [][]float64{{1}, {2}},
		Labels:   []string{"A", "B"},
		Groups:   []string{"g", "g"},
		Paths:    []string{"a", "b"},
	}
	_, err := features.CrossValidate(m, 5, func() features.Classifier { return &features.NearestCentroid{} })
	if !errors.Is(err, features.ErrInsufficientGroups) {
		t.Errorf("CrossValidate() error = %v, want ErrInsufficientGroups", err)
	}
}

func TestNearestCentroid_TieGoesToSmallerLabel(t *testing.T) {
	t.Parallel()

	var nc features.NearestCentroid
	if err := nc.Fit([][]float64{{0}, {2}}, []string{"Z", "A"}); err != nil {
		t.Fatal(err)
	}
	got, err := nc.Predict([][]float64{{1}, {-5}, {9}})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"A", "Z", "A"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Predict() = %v, want %v", got, want)
	}
}

// ---------------------------------------------------------------------------
// Dataset sheet and extractor
// ---------------------------------------------------------------------------

func TestDataset_RoundTrip(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()

	m := separable()
	folds, _ := features.GroupKFold(m.Groups, 3)
	path := filepath.Join("/work", "features.csv")
	if err := features.WriteDataset(fsys, path, m, folds); err != nil {
		t.Fatal(err)
	}
	back, err := features.ReadDataset(fsys, path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, m) {
		t.Errorf("round trip = %+v, want %+v", back, m)
	}
}

func TestParseVector(t *testing.T) {
	t.Parallel()

	got, err := features.ParseVector("1, 2.5\n-3e-2\t4\n")
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{1, 2.5, -0.03, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("ParseVector() = %v, want %v", got, want)
	}
	for _, bad := range []string{"", " \n", "1,x"} {
		if _, err := features.ParseVector(bad); err == nil {
			t.Errorf("ParseVector(%q) succeeded, want error", bad)
		}
	}
}

func TestCommandExtractor(t *testing.T) {
	t.Parallel()

	var gotName string
	var gotArgs []string
	ex := features.NewCommandExtractor("mfcc", []string{"--n", "13"}, features.WithRun(
		func(_ context.Context, name string, args []string) ([]byte, error) {
			gotName, gotArgs = name, args
			return []byte("0.5,1.5\n"), nil
		}))

	vec, err := ex.Extract(context.Background(), "/a.wav")
	if err != nil {
		t.Fatal(err)
	}
	if gotName != "mfcc" || !reflect.DeepEqual(gotArgs, []string{"--n", "13", "/a.wav"}) {
		t.Errorf("ran %s %v", gotName, gotArgs)
	}
	if !reflect.DeepEqual(vec, []float64{0.5, 1.5}) {
		t.Errorf("Extract() = %v", vec)
	}

	failing := features.NewCommandExtractor("mfcc", nil, features.WithRun(
		func(context.Context, string, []string) ([]byte, error) { return nil, errors.New("exit status 1") }))
	if _, err := failing.Extract(context.Background(), "/a.wav"); !errors.Is(err, features.ErrExtractFailed) {
		t.Errorf("Extract() error = %v, want ErrExtractFailed", err)
	}
}
