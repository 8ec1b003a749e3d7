package corpus_test

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/alnah/go-accent-corpus/internal/corpus"
	"github.com/alnah/go-accent-corpus/internal/table"
)

func rec(dataset, vid, idx, start, end string) corpus.Record {
	return corpus.Record{
		SegmentFile:  "/audio/" + vid + "_" + idx + ".wav",
		VideoID:      vid,
		SegmentIndex: idx,
		StartSec:     start,
		EndSec:       end,
		Dataset:      dataset,
	}
}

// ---------------------------------------------------------------------------
// Combine - concatenation and deduplication
// ---------------------------------------------------------------------------

func TestCombine_SelfIsIdempotent(t *testing.T) {
	t.Parallel()

	src := []corpus.Record{
		rec("NI", "AAAAAAAAAAA", "001", "0", "30"),
		rec("NI", "AAAAAAAAAAA", "002", "30", "60"),
		rec("NI", "BBBBBBBBBBB", "001", "10", "20"),
	}

	got, removed := corpus.Combine(src, src)
	if len(got) != len(src) {
		t.Errorf("len(Combine(src, src)) = %d, want %d", len(got), len(src))
	}
	if removed != len(src) {
		t.Errorf("removed = %d, want %d", removed, len(src))
	}
}

func TestCombine_IgnoresSegmentIndex(t *testing.T) {
	t.Parallel()

	first := rec("NI", "AAAAAAAAAAA", "001", "0", "30")
	first.Speaker = "first"
	second := rec("NI", "AAAAAAAAAAA", "007", "0", "30")
	second.Speaker = "second"

	got, removed := corpus.Combine([]corpus.Record{first, second})
	if removed != 1 || len(got) != 1 {
		t.Fatalf("Combine() = %d rows, %d removed; want 1, 1", len(got), removed)
	}
	if got[0].Speaker != "first" {
		t.Errorf("kept speaker = %q, want first occurrence", got[0].Speaker)
	}
}

func TestCombine_TrimsDatasetAndKeyParts(t *testing.T) {
	t.Parallel()

	a := rec(" DAIL ", "CCCCCCCCCCC", "001", "30", "60")
	b := rec("DAIL", " CCCCCCCCCCC", "001", " 30", "60 ")

	got, removed := corpus.Combine([]corpus.Record{a}, []corpus.Record{b})
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if got[0].Dataset != "DAIL" {
		t.Errorf("dataset = %q, want trimmed", got[0].Dataset)
	}
}

func TestCombine_DistinctDatasetsKept(t *testing.T) {
	t.Parallel()

	got, removed := corpus.Combine(
		[]corpus.Record{rec("NI", "AAAAAAAAAAA", "001", "0", "30")},
		[]corpus.Record{rec("DAIL", "AAAAAAAAAAA", "001", "0", "30")},
	)
	if removed != 0 || len(got) != 2 {
		t.Errorf("Combine() = %d rows, %d removed; want 2, 0", len(got), removed)
	}
}

func TestCombine_EndToEnd(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()

	dir := "/work"
	niPath := filepath.Join(dir, "ni.csv")
	dailPath := filepath.Join(dir, "dail.csv")
	outPath := filepath.Join(dir, "all.csv")

	ni := []corpus.Record{
		rec("NI", "AAAAAAAAAAA", "001", "0", "30"),
		rec("NI", "AAAAAAAAAAA", "002", "30", "60"),
		rec("NI", "BBBBBBBBBBB", "001", "5", "25"),
	}
	dail := []corpus.Record{
		rec("DAIL", "CCCCCCCCCCC", "001", "30", "60"),
		rec("NI", "BBBBBBBBBBB", "009", "5", "25"),
	}
	if err := corpus.WriteIndex(fsys, niPath, ni); err != nil {
		t.Fatal(err)
	}
	if err := corpus.WriteIndex(fsys, dailPath, dail); err != nil {
		t.Fatal(err)
	}

	a, err := corpus.ReadIndex(fsys, niPath)
	if err != nil {
		t.Fatal(err)
	}
	b, err := corpus.ReadIndex(fsys, dailPath)
	if err != nil {
		t.Fatal(err)
	}

	merged, removed := corpus.Combine(a, b)
	if err := corpus.WriteIndex(fsys, outPath, merged); err != nil {
		t.Fatal(err)
	}

	back, err := corpus.ReadIndex(fsys, outPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 4 {
		t.Errorf("master rows = %d, want 4", len(back))
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}

// ---------------------------------------------------------------------------
// Index I/O
// ---------------------------------------------------------------------------

func TestReadIndex_FillsMissingColumns(t *testing.T) {
	t.Parallel()

	tbl, err := table.Read(strings.NewReader("segment_file,video_id,start_sec,end_sec\n/a.wav,AAAAAAAAAAA,0,30\n"))
	if err != nil {
		t.Fatal(err)
	}
	recs := corpus.Records(tbl)
	want := corpus.Record{SegmentFile: "/a.wav", VideoID: "AAAAAAAAAAA", StartSec: "0", EndSec: "30"}
	if !reflect.DeepEqual(recs, []corpus.Record{want}) {
		t.Errorf("Records() = %+v, want %+v", recs, want)
	}
}

func TestResolvedRoundTrip(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()

	path := filepath.Join("/work", "resolved.csv")
	in := []corpus.Resolved{
		{Record: rec("DAIL", "CCCCCCCCCCC", "001", "30", "60"), SegmentFileResolved: "/new/c.wav"},
		{Record: rec("NI", "AAAAAAAAAAA", "001", "0", "30")},
	}
	if err := corpus.WriteResolved(fsys, path, in); err != nil {
		t.Fatal(err)
	}
	out, err := corpus.ReadResolved(fsys, path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestReadResolved_RequiresColumn(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()

	path := filepath.Join("/work", "plain.csv")
	if err := corpus.WriteIndex(fsys, path, []corpus.Record{rec("NI", "AAAAAAAAAAA", "001", "0", "30")}); err != nil {
		t.Fatal(err)
	}
	if _, err := corpus.ReadResolved(fsys, path); err == nil {
		t.Error("ReadResolved() on index without resolver column succeeded, want error")
	}
}
