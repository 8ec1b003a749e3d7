package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/alnah/go-accent-corpus/internal/audio"
	"github.com/alnah/go-accent-corpus/internal/config"
	"github.com/alnah/go-accent-corpus/internal/features"
	"github.com/alnah/go-accent-corpus/internal/ffmpeg"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have defaults via DefaultEnv(). Tests can override specific
// fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Now    func() time.Time
	Fs     afero.Fs // audio existence checks and directory scans

	// Factories for domain objects
	FFmpegResolver   FFmpegResolver
	ConfigLoader     ConfigLoader
	AudioFactory     AudioFactory
	ExtractorFactory ExtractorFactory
}

// FFmpegResolver resolves the path to the FFmpeg binary.
type FFmpegResolver interface {
	Resolve(ctx context.Context, configured string) (string, error)
	CheckVersion(ctx context.Context, ffmpegPath string, logger zerolog.Logger)
}

// ConfigLoader loads the pipeline configuration. path is the --config flag
// value and may be empty.
type ConfigLoader interface {
	Load(path string) (cfg config.Config, file string, err error)
}

// Audio probes and cuts source clips.
type Audio interface {
	audio.Prober
	audio.Trimmer
}

// AudioFactory creates the audio backend used by the trimmer.
type AudioFactory interface {
	NewAudio(ffmpegPath string, sampleRate, channels int) (Audio, error)
}

// ExtractorFactory creates the feature extractor from the configured command line.
type ExtractorFactory interface {
	NewExtractor(command []string) (features.Extractor, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithFs sets the filesystem.
func WithFs(fs afero.Fs) EnvOption {
	return func(e *Env) {
		e.Fs = fs
	}
}

// WithFFmpegResolver sets the FFmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption {
	return func(e *Env) {
		e.FFmpegResolver = r
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithAudioFactory sets the audio factory.
func WithAudioFactory(f AudioFactory) EnvOption {
	return func(e *Env) {
		e.AudioFactory = f
	}
}

// WithExtractorFactory sets the extractor factory.
func WithExtractorFactory(f ExtractorFactory) EnvOption {
	return func(e *Env) {
		e.ExtractorFactory = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		Now:              time.Now,
		Fs:               afero.NewOsFs(),
		FFmpegResolver:   &defaultFFmpegResolver{},
		ConfigLoader:     &defaultConfigLoader{},
		AudioFactory:     &defaultAudioFactory{},
		ExtractorFactory: &defaultExtractorFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultFFmpegResolver implements FFmpegResolver using the ffmpeg package.
type defaultFFmpegResolver struct{}

func (defaultFFmpegResolver) Resolve(ctx context.Context, configured string) (string, error) {
	return ffmpeg.NewResolver(ffmpeg.WithConfiguredPath(configured)).Resolve(ctx)
}

func (defaultFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string, logger zerolog.Logger) {
	ffmpeg.NewVersionChecker(ffmpeg.WithVersionLogger(logger)).Check(ctx, ffmpegPath)
}

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load(path string) (config.Config, string, error) {
	return config.Load(path)
}

// defaultAudioFactory implements AudioFactory with the ffmpeg binary.
type defaultAudioFactory struct{}

func (defaultAudioFactory) NewAudio(ffmpegPath string, sampleRate, channels int) (Audio, error) {
	f, err := audio.New(ffmpegPath, audio.WithEncoding(sampleRate, channels))
	if err != nil {
		return nil, err
	}
	return f, nil
}

// defaultExtractorFactory implements ExtractorFactory with an external program.
type defaultExtractorFactory struct{}

func (defaultExtractorFactory) NewExtractor(command []string) (features.Extractor, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, ErrExtractorMissing
	}
	return features.NewCommandExtractor(command[0], command[1:]), nil
}

// Compile-time interface verification.
var (
	_ FFmpegResolver   = (*defaultFFmpegResolver)(nil)
	_ ConfigLoader     = (*defaultConfigLoader)(nil)
	_ AudioFactory     = (*defaultAudioFactory)(nil)
	_ ExtractorFactory = (*defaultExtractorFactory)(nil)
)
