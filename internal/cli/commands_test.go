package cli

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/alnah/go-accent-corpus/internal/config"
	"github.com/alnah/go-accent-corpus/internal/corpus"
	"github.com/alnah/go-accent-corpus/internal/ffmpeg"
)

// ---------------------------------------------------------------------------
// Source selection
// ---------------------------------------------------------------------------

func TestSelectSources(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Sources = []config.Source{{Name: "NI"}, {Name: "Dail"}}

	tests := []struct {
		name    string
		cfg     config.Config
		arg     string
		want    []string
		wantErr error
	}{
		{name: "all", cfg: cfg, want: []string{"NI", "Dail"}},
		{name: "case-insensitive", cfg: cfg, arg: "dail", want: []string{"Dail"}},
		{name: "unknown", cfg: cfg, arg: "uk", wantErr: ErrUnknownSource},
		{name: "none configured", cfg: config.Default(), wantErr: ErrSettingMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := selectSources(tt.cfg, tt.arg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("selectSources() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("selectSources() error = %v", err)
			}
			var names []string
			for _, s := range got {
				names = append(names, s.Name)
			}
			if strings.Join(names, ",") != strings.Join(tt.want, ",") {
				t.Errorf("selectSources() = %v, want %v", names, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Stage errors
// ---------------------------------------------------------------------------

func TestTrim_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unknown source", func(t *testing.T) {
		t.Parallel()
		te := newTestEnv(niFixture(t))
		if err := te.run("trim", "--source", "uk"); !errors.Is(err, ErrUnknownSource) {
			t.Errorf("trim error = %v, want ErrUnknownSource", err)
		}
	})

	t.Run("ffmpeg not found", func(t *testing.T) {
		t.Parallel()
		te := newTestEnv(niFixture(t))
		te.ffmpeg.err = ffmpeg.ErrNotFound
		if err := te.run("trim"); !errors.Is(err, ffmpeg.ErrNotFound) {
			t.Errorf("trim error = %v, want ffmpeg.ErrNotFound", err)
		}
		if len(te.audio.cuts) != 0 {
			t.Errorf("cuts = %d, want 0", len(te.audio.cuts))
		}
	})

	t.Run("missing sheet", func(t *testing.T) {
		t.Parallel()
		cfg := niFixture(t)
		cfg.Sources[0].Sheet = filepath.Join(t.TempDir(), "absent.csv")
		te := newTestEnv(cfg)
		if err := te.run("trim"); !errors.Is(err, ErrFileNotFound) {
			t.Errorf("trim error = %v, want ErrFileNotFound", err)
		}
	})

	t.Run("extra argument", func(t *testing.T) {
		t.Parallel()
		te := newTestEnv(niFixture(t))
		err := te.run("trim", "NI")
		if err == nil || !strings.Contains(err.Error(), "unknown command") {
			t.Errorf("trim error = %v, want unknown command", err)
		}
	})
}

func TestIndex_MissingTrimLog(t *testing.T) {
	t.Parallel()

	te := newTestEnv(niFixture(t))
	if err := te.run("index", "-s", "NI"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("index error = %v, want ErrFileNotFound", err)
	}
}

func TestCombine_DropsDuplicates(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	dir := "/work"
	rec := corpus.Record{SegmentFile: "/a_001.wav", VideoID: "AAAAAAAAAAA", SegmentIndex: "1", StartSec: "0", EndSec: "30", Dataset: corpus.DatasetNI}
	first := filepath.Join(dir, "ni.csv")
	second := filepath.Join(dir, "again.csv")
	for _, p := range []string{first, second} {
		if err := corpus.WriteIndex(fsys, p, []corpus.Record{rec}); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default()
	cfg.Combine.Inputs = []string{first, second}
	cfg.Combine.Output = filepath.Join(dir, "master.csv")
	te := newTestEnv(cfg)
	te.Fs = fsys

	if err := te.run("combine"); err != nil {
		t.Fatalf("combine error = %v", err)
	}
	got, err := corpus.ReadIndex(fsys, cfg.Combine.Output)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("master rows = %d, want 1", len(got))
	}
	if !strings.Contains(te.stderr.String(), "1 duplicate removed") {
		t.Errorf("stderr = %q", te.stderr)
	}
}

func TestCombine_NoInputs(t *testing.T) {
	t.Parallel()

	te := newTestEnv(config.Default())
	if err := te.run("combine"); !errors.Is(err, ErrSettingMissing) {
		t.Errorf("combine error = %v, want ErrSettingMissing", err)
	}
}

func TestAudit_ListsAbsentRows(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	dir := "/work"
	present := filepath.Join(dir, "seg_001.wav")
	if err := afero.WriteFile(fsys, present, []byte("RIFF"), 0o640); err != nil {
		t.Fatal(err)
	}
	absent := filepath.Join(dir, "seg_002.wav")
	input := filepath.Join(dir, "resolved.csv")
	recs := []corpus.Resolved{
		{Record: corpus.Record{SegmentFile: present, VideoID: "AAAAAAAAAAA", Dataset: "NI"}, SegmentFileResolved: present},
		{Record: corpus.Record{SegmentFile: absent, VideoID: "BBBBBBBBBBB", Dataset: "NI"}, SegmentFileResolved: absent},
	}
	if err := corpus.WriteResolved(fsys, input, recs); err != nil {
		t.Fatal(err)
	}
	te := newTestEnv(config.Default())
	te.Fs = fsys

	if err := te.run("audit", "--input", input); err != nil {
		t.Fatalf("audit error = %v", err)
	}
	want := "3\tNI\tBBBBBBBBBBB\t" + absent + "\n"
	if te.stdout.String() != want {
		t.Errorf("audit stdout = %q, want %q", te.stdout, want)
	}

	te.stdout.Reset()
	if err := te.run("audit", "--input", input, "--strict"); !errors.Is(err, ErrAuditFailed) {
		t.Errorf("audit --strict error = %v, want ErrAuditFailed", err)
	}
}

func TestFeatures_ExtractorMissing(t *testing.T) {
	t.Parallel()

	cfg := niFixture(t)
	cfg.Features.Input = cfg.Sources[0].Sheet
	cfg.Features.Extractor = nil
	te := newTestEnv(cfg)
	te.ExtractorFactory = defaultExtractorFactory{}

	if err := te.run("features"); !errors.Is(err, ErrExtractorMissing) {
		t.Errorf("features error = %v, want ErrExtractorMissing", err)
	}
}

func TestStage_ConfigError(t *testing.T) {
	t.Parallel()

	te := newTestEnv(config.Default())
	te.ConfigLoader = &mockConfigLoader{err: config.ErrInvalid}
	for _, stage := range []string{"trim", "index", "speakers", "metadata", "combine", "resolve", "audit", "features", "evaluate"} {
		if err := te.run(stage); !errors.Is(err, config.ErrInvalid) {
			t.Errorf("%s error = %v, want config.ErrInvalid", stage, err)
		}
	}
}

// ---------------------------------------------------------------------------
// config
// ---------------------------------------------------------------------------

func TestConfigShow(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.LogLevel = "debug"
	te := newTestEnv(cfg)

	if err := te.run("config", "show"); err != nil {
		t.Fatalf("config show error = %v", err)
	}
	got, err := config.Parse(te.stdout.Bytes())
	if err != nil {
		t.Fatalf("config show output does not parse: %v\n%s", err, te.stdout)
	}
	if got.LogLevel != "debug" || got.Features.Folds != 5 {
		t.Errorf("parsed config = %+v", got)
	}
}

func TestConfigPath(t *testing.T) {
	t.Parallel()

	te := newTestEnv(config.Default())
	if err := te.run("config", "path", "--config", "/etc/corpus/config.yaml"); err != nil {
		t.Fatalf("config path error = %v", err)
	}
	if got := te.stdout.String(); got != "/etc/corpus/config.yaml\n" {
		t.Errorf("config path = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Env
// ---------------------------------------------------------------------------

func TestDefaultExtractorFactory(t *testing.T) {
	t.Parallel()

	f := defaultExtractorFactory{}
	for _, cmd := range [][]string{nil, {""}} {
		if _, err := f.NewExtractor(cmd); !errors.Is(err, ErrExtractorMissing) {
			t.Errorf("NewExtractor(%q) error = %v, want ErrExtractorMissing", cmd, err)
		}
	}
	if ex, err := f.NewExtractor([]string{"python3", "mfcc.py"}); err != nil || ex == nil {
		t.Errorf("NewExtractor() = %v, %v", ex, err)
	}
}

func TestNewEnv_AppliesOptions(t *testing.T) {
	t.Parallel()

	loader := &mockConfigLoader{}
	env := NewEnv(WithConfigLoader(loader))
	if env.ConfigLoader != loader {
		t.Error("WithConfigLoader not applied")
	}
	if env.FFmpegResolver == nil || env.AudioFactory == nil || env.Fs == nil || env.Now == nil {
		t.Error("defaults missing")
	}
}
