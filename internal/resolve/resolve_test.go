package resolve_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/alnah/go-accent-corpus/internal/corpus"
	"github.com/alnah/go-accent-corpus/internal/resolve"
)

const dir = "/data/processed"

func newFs(t *testing.T, files ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll(dir, 0o750); err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if err := afero.WriteFile(fs, f, []byte("RIFF"), 0o640); err != nil {
			t.Fatal(err)
		}
	}
	return fs
}

func opts() resolve.Options {
	return resolve.Options{StaleDatasets: []string{"dail"}, SearchDir: dir, Extension: ".wav"}
}

func dail(id, path string) corpus.Record {
	return corpus.Record{SegmentFile: path, VideoID: id, Dataset: " DAIL "}
}

// ---------------------------------------------------------------------------
// ResolveAll
// ---------------------------------------------------------------------------

func TestResolveAll_ShortestCandidateWins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{
			name: "longer name sorts first",
			files: []string{
				filepath.Join(dir, "AAAAAAAAAAA_Deputy_Name_Long_Topic.wav"),
				filepath.Join(dir, "x_AAAAAAAAAAA.wav"),
			},
			want: filepath.Join(dir, "x_AAAAAAAAAAA.wav"),
		},
		{
			name: "shorter name sorts first",
			files: []string{
				filepath.Join(dir, "z_AAAAAAAAAAA_with_a_suffix.wav"),
				filepath.Join(dir, "AAAAAAAAAAA.wav"),
			},
			want: filepath.Join(dir, "AAAAAAAAAAA.wav"),
		},
		{
			name: "equal length tie broken by name",
			files: []string{
				filepath.Join(dir, "b_AAAAAAAAAAA.wav"),
				filepath.Join(dir, "a_AAAAAAAAAAA.wav"),
			},
			want: filepath.Join(dir, "a_AAAAAAAAAAA.wav"),
		},
		{
			name: "other extensions ignored",
			files: []string{
				filepath.Join(dir, "AAAAAAAAAAA.mp3"),
				filepath.Join(dir, "AAAAAAAAAAA_full.WAV"),
			},
			want: filepath.Join(dir, "AAAAAAAAAAA_full.WAV"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := resolve.New(newFs(t, tt.files...), opts())
			got, st, err := r.ResolveAll(context.Background(), []corpus.Record{dail("AAAAAAAAAAA", "/old/gone.wav")})
			if err != nil {
				t.Fatal(err)
			}
			if got[0].SegmentFileResolved != tt.want {
				t.Errorf("resolved = %q, want %q", got[0].SegmentFileResolved, tt.want)
			}
			if st.Fixed != 1 || st.Missing != 0 {
				t.Errorf("stats = %+v, want 1 fixed", st)
			}
		})
	}
}

func TestResolveAll_NoCandidateIsMissing(t *testing.T) {
	t.Parallel()

	r := resolve.New(newFs(t, filepath.Join(dir, "BBBBBBBBBBB.wav")), opts())
	got, st, err := r.ResolveAll(context.Background(), []corpus.Record{
		dail("AAAAAAAAAAA", "/old/a.wav"),
		dail("CCCCCCCCCCC", "/old/c.wav"),
		dail("", "/old/blank.wav"),
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, g := range got {
		if g.SegmentFileResolved != "" {
			t.Errorf("row %d resolved = %q, want empty", i, g.SegmentFileResolved)
		}
	}
	if st.Missing != 3 || st.Stale != 3 || st.Total != 3 {
		t.Errorf("stats = %+v, want 3 missing of 3 stale", st)
	}
}

func TestResolveAll_ExtensionWithoutDot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ext  string
	}{
		{name: "bare", ext: "wav"},
		{name: "dotted", ext: ".wav"},
		{name: "upper case", ext: "WAV"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			want := filepath.Join(dir, "abcdefghijk.wav")
			o := opts()
			o.Extension = tt.ext
			r := resolve.New(newFs(t, want, filepath.Join(dir, "abcdefghijk.txt")), o)

			got, st, err := r.ResolveAll(context.Background(), []corpus.Record{dail("abcdefghijk", "/old/x.wav")})
			if err != nil {
				t.Fatal(err)
			}
			if got[0].SegmentFileResolved != want || st.Fixed != 1 {
				t.Errorf("resolved = %q, stats %+v; want %q fixed", got[0].SegmentFileResolved, st, want)
			}
		})
	}
}

func TestResolveAll_ExistingPathKept(t *testing.T) {
	t.Parallel()

	stored := "/data/ni/AAAAAAAAAAA_001.wav"
	fs := newFs(t, stored, filepath.Join(dir, "AAAAAAAAAAA.wav"))
	r := resolve.New(fs, opts())

	got, st, err := r.ResolveAll(context.Background(), []corpus.Record{dail("AAAAAAAAAAA", stored)})
	if err != nil {
		t.Fatal(err)
	}
	if got[0].SegmentFileResolved != stored || st.Kept != 1 || st.Fixed != 0 {
		t.Errorf("resolved = %q, stats %+v; want stored path kept", got[0].SegmentFileResolved, st)
	}
}

func TestResolveAll_NonStalePassesThrough(t *testing.T) {
	t.Parallel()

	r := resolve.New(newFs(t, filepath.Join(dir, "AAAAAAAAAAA.wav")), opts())
	rec := corpus.Record{SegmentFile: "/nowhere/a.wav", VideoID: "AAAAAAAAAAA", Dataset: "NI"}

	got, st, err := r.ResolveAll(context.Background(), []corpus.Record{rec})
	if err != nil {
		t.Fatal(err)
	}
	if got[0].SegmentFileResolved != rec.SegmentFile {
		t.Errorf("resolved = %q, want pass-through %q", got[0].SegmentFileResolved, rec.SegmentFile)
	}
	if st.Missing != 0 || st.Stale != 0 {
		t.Errorf("stats = %+v, want no stale accounting", st)
	}
}

func TestResolveAll_SearchDirMissing(t *testing.T) {
	t.Parallel()

	r := resolve.New(afero.NewMemMapFs(), opts())
	_, _, err := r.ResolveAll(context.Background(), []corpus.Record{dail("AAAAAAAAAAA", "")})
	if err == nil {
		t.Fatal("ResolveAll() with absent search directory succeeded, want error")
	}
}

func TestResolveAll_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := resolve.New(newFs(t), opts())
	_, _, err := r.ResolveAll(ctx, []corpus.Record{dail("AAAAAAAAAAA", "")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ResolveAll() error = %v, want context.Canceled", err)
	}
}

// ---------------------------------------------------------------------------
// Audit
// ---------------------------------------------------------------------------

func TestAudit(t *testing.T) {
	t.Parallel()

	fs := newFs(t, "/a.wav")
	recs := []corpus.Resolved{
		{Record: corpus.Record{VideoID: "A", Dataset: "NI"}, SegmentFileResolved: "/a.wav"},
		{Record: corpus.Record{VideoID: "B", Dataset: "DAIL"}, SegmentFileResolved: "/b.wav"},
		{Record: corpus.Record{VideoID: "C", Dataset: "DAIL"}},
	}

	got := resolve.Audit(fs, recs)
	if got.Unresolved != 1 {
		t.Errorf("Unresolved = %d, want 1", got.Unresolved)
	}
	want := resolve.Issue{Line: 3, Path: "/b.wav", Dataset: "DAIL", VideoID: "B"}
	if len(got.Absent) != 1 || got.Absent[0] != want {
		t.Errorf("Absent = %+v, want [%+v]", got.Absent, want)
	}
}
