package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/alnah/go-accent-corpus/internal/config"
	"github.com/alnah/go-accent-corpus/internal/features"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockFFmpegResolver struct {
	path string
	err  error

	mu      sync.Mutex
	checked []string
}

func (m *mockFFmpegResolver) Resolve(_ context.Context, _ string) (string, error) {
	return m.path, m.err
}

func (m *mockFFmpegResolver) CheckVersion(_ context.Context, ffmpegPath string, _ zerolog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checked = append(m.checked, ffmpegPath)
}

type mockConfigLoader struct {
	cfg config.Config
	err error
}

func (m *mockConfigLoader) Load(string) (config.Config, string, error) {
	return m.cfg, "/test/config.yaml", m.err
}

// fakeAudio reports a fixed duration and writes a small file per cut.
type fakeAudio struct {
	duration time.Duration

	mu   sync.Mutex
	cuts []string
}

func (f *fakeAudio) Duration(context.Context, string) (time.Duration, error) {
	return f.duration, nil
}

func (f *fakeAudio) Trim(_ context.Context, _, dst string, _, _ time.Duration) error {
	f.mu.Lock()
	f.cuts = append(f.cuts, dst)
	f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	return os.WriteFile(dst, []byte("RIFF"), 0o600)
}

type mockAudioFactory struct {
	audio *fakeAudio
	err   error
}

func (m *mockAudioFactory) NewAudio(string, int, int) (Audio, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.audio, nil
}

type mockExtractorFactory struct {
	ex  features.Extractor
	err error
}

func (m *mockExtractorFactory) NewExtractor([]string) (features.Extractor, error) {
	return m.ex, m.err
}

// provinceExtractor maps paths naming a Leinster speaker near the origin and
// every other path far from it.
var provinceExtractor = features.ExtractorFunc(func(_ context.Context, path string) ([]float64, error) {
	if strings.Contains(filepath.Base(path), "leinster") {
		return []float64{0, 0}, nil
	}
	return []float64{10, 10}, nil
})

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// testEnv bundles an Env with its captured output.
type testEnv struct {
	*Env
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	audio  *fakeAudio
	ffmpeg *mockFFmpegResolver
}

func newTestEnv(cfg config.Config) *testEnv {
	te := &testEnv{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		audio:  &fakeAudio{duration: time.Minute},
		ffmpeg: &mockFFmpegResolver{path: "/usr/bin/ffmpeg"},
	}
	te.Env = NewEnv(
		WithStdout(te.stdout),
		WithStderr(te.stderr),
		WithNow(func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }),
		WithFs(afero.NewOsFs()),
		WithFFmpegResolver(te.ffmpeg),
		WithConfigLoader(&mockConfigLoader{cfg: cfg}),
		WithAudioFactory(&mockAudioFactory{audio: te.audio}),
		WithExtractorFactory(&mockExtractorFactory{ex: provinceExtractor}),
	)
	return te
}

// run executes the root command with args.
func (te *testEnv) run(args ...string) error {
	root := RootCmd(te.Env, "test")
	root.SetArgs(args)
	root.SetOut(te.stdout)
	root.SetErr(te.stderr)
	return root.ExecuteContext(context.Background())
}

// writeFile writes content under dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

// readFile returns the content of path.
func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
