// Package config loads the YAML pipeline configuration: one entry per
// annotated source plus the settings of every later stage.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/alnah/go-accent-corpus/internal/corpus"
	"github.com/alnah/go-accent-corpus/internal/features"
	"github.com/alnah/go-accent-corpus/internal/segment"
)

// Environment variables.
const (
	EnvConfig      = "CORPUS_CONFIG"
	EnvLogLevel    = "CORPUS_LOG_LEVEL"
	EnvLogFormat   = "CORPUS_LOG_FORMAT"
	EnvMetricsFile = "CORPUS_METRICS_FILE"
	EnvFFmpegPath  = "FFMPEG_PATH"
)

const (
	appDir   = "go-accent-corpus"
	fileName = "config.yaml"
)

// Config is the whole pipeline configuration.
type Config struct {
	LogLevel    string `yaml:"log_level"    validate:"omitempty,oneof=debug info warn error"`
	LogFormat   string `yaml:"log_format"   validate:"omitempty,oneof=console json"`
	MetricsFile string `yaml:"metrics_file"`
	FFmpegPath  string `yaml:"ffmpeg_path"`

	Sources  []Source `yaml:"sources"  validate:"dive"`
	Speakers Speakers `yaml:"speakers"`
	Metadata Metadata `yaml:"metadata"`
	Combine  Combine  `yaml:"combine"`
	Resolve  Resolve  `yaml:"resolve"`
	Features Features `yaml:"features"`
}

// Source configures trimming and indexing of one annotated dataset.
type Source struct {
	Name        string  `yaml:"name"         validate:"required"`
	Dataset     string  `yaml:"dataset"`
	Sheet       string  `yaml:"sheet"        validate:"required"`
	NativeSheet string  `yaml:"native_sheet"`
	Columns     Columns `yaml:"columns"`
	AudioDir    string  `yaml:"audio_dir"    validate:"required"`
	AudioExt    string  `yaml:"audio_ext"`
	OutDir      string  `yaml:"out_dir"      validate:"required"`
	TrimLog     string  `yaml:"trim_log"     validate:"required"`
	Index       string  `yaml:"index"        validate:"required"`
	MaxChunk    int     `yaml:"max_chunk"    validate:"gte=0"`
	Gap         int     `yaml:"gap"          validate:"gte=0"`
	SampleRate  int     `yaml:"sample_rate"  validate:"gte=0"`
	Channels    int     `yaml:"channels"     validate:"gte=0"`
}

// Columns maps annotation sheet headers. Blank entries use the defaults.
type Columns struct {
	URL          string `yaml:"url"`
	ValidTimes   string `yaml:"valid_times"`
	Speaker      string `yaml:"speaker"`
	Party        string `yaml:"party"`
	Constituency string `yaml:"constituency"`
	ClipName     string `yaml:"clip_name"`
	ClipType     string `yaml:"clip_type"`
	ExtraInfo    string `yaml:"extra_info"`
}

// Speakers configures the speaker-key scan of processed audio file names.
type Speakers struct {
	AudioDir string `yaml:"audio_dir"`
	Ext      string `yaml:"ext"`
	Output   string `yaml:"output"`
	Failures string `yaml:"failures"`
}

// Metadata configures the files/speakers/coordinates merge.
type Metadata struct {
	Dataset     string `yaml:"dataset"`
	Files       string `yaml:"files"`
	Speakers    string `yaml:"speakers"`
	Coordinates string `yaml:"coordinates"`
	AudioDir    string `yaml:"audio_dir"`
	All         string `yaml:"all"`
	Model       string `yaml:"model"`
	Index       string `yaml:"index"`
	WindowStart int    `yaml:"window_start" validate:"gte=0"`
	WindowEnd   int    `yaml:"window_end"   validate:"gtfield=WindowStart"`
}

// Combine configures the master index. Empty Inputs means every source
// index in config order followed by the metadata index.
type Combine struct {
	Inputs []string `yaml:"inputs"`
	Output string   `yaml:"output"`
}

// Resolve configures path resolution of the master index.
type Resolve struct {
	Input         string   `yaml:"input"`
	Output        string   `yaml:"output"`
	StaleDatasets []string `yaml:"stale_datasets"`
	SearchDir     string   `yaml:"search_dir"`
	Extension     string   `yaml:"extension"`
}

// Features configures the feature matrix and cross-validation.
type Features struct {
	Input       string   `yaml:"input"`
	Output      string   `yaml:"output"`
	Extractor   []string `yaml:"extractor"`
	LabelColumn string   `yaml:"label_column"`
	Labels      []string `yaml:"labels"`
	MaxPerGroup int      `yaml:"max_per_group" validate:"gte=0"`
	Seed        uint64   `yaml:"seed"`
	MinGroups   int      `yaml:"min_groups"    validate:"gte=1"`
	Workers     int      `yaml:"workers"       validate:"gte=1"`
	Folds       int      `yaml:"folds"         validate:"gte=2"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "console",
		Metadata: Metadata{
			Dataset:     corpus.DatasetDail,
			WindowStart: 30,
			WindowEnd:   60,
		},
		Resolve: Resolve{
			StaleDatasets: []string{corpus.DatasetDail},
			Extension:     segment.DefaultAudioExt,
		},
		Speakers: Speakers{
			Ext: segment.DefaultAudioExt,
		},
		Features: Features{
			LabelColumn: features.DefaultLabelColumn,
			MaxPerGroup: features.DefaultMaxPerGroup,
			Seed:        features.DefaultSeed,
			MinGroups:   features.DefaultMinGroups,
			Workers:     features.DefaultWorkers,
			Folds:       5,
		},
	}
}

// UnmarshalYAML decodes a source over its defaults.
func (s *Source) UnmarshalYAML(node *yaml.Node) error {
	type plain Source
	p := plain{MaxChunk: segment.DefaultMaxChunk}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = Source(p)
	return nil
}

// DatasetTag returns the dataset tag written into indexed records.
func (s Source) DatasetTag() string {
	if s.Dataset != "" {
		return s.Dataset
	}
	return s.Name
}

// Segment converts the entry to the trimmer's source definition.
func (s Source) Segment() segment.Source {
	return segment.Source{
		Dataset:  s.DatasetTag(),
		Columns:  segment.Columns(s.Columns),
		AudioDir: s.AudioDir,
		AudioExt: s.AudioExt,
		OutDir:   s.OutDir,
		MaxChunk: s.MaxChunk,
		Gap:      s.Gap,
	}
}

// Source returns the source named name, compared case-insensitively.
func (c Config) Source(name string) (Source, bool) {
	for _, s := range c.Sources {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Source{}, false
}

// SourceNames returns the configured source names in order.
func (c Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for _, s := range c.Sources {
		names = append(names, s.Name)
	}
	return names
}

// CombineInputs returns the index files to combine, in precedence order.
func (c Config) CombineInputs() []string {
	if len(c.Combine.Inputs) > 0 {
		return c.Combine.Inputs
	}
	var in []string
	for _, s := range c.Sources {
		in = append(in, s.Index)
	}
	if c.Metadata.Index != "" {
		in = append(in, c.Metadata.Index)
	}
	return in
}

// ResolveInput returns the master index read by the resolver.
func (c Config) ResolveInput() string {
	if c.Resolve.Input != "" {
		return c.Resolve.Input
	}
	return c.Combine.Output
}

// FeaturesInput returns the resolved master index read by the feature builder.
func (c Config) FeaturesInput() string {
	if c.Features.Input != "" {
		return c.Features.Input
	}
	return c.Resolve.Output
}

// FeatureOptions converts the features section to builder options.
func (c Config) FeatureOptions() features.Options {
	f := c.Features
	return features.Options{
		LabelColumn: f.LabelColumn,
		Labels:      f.Labels,
		MaxPerGroup: f.MaxPerGroup,
		Seed:        f.Seed,
		MinGroups:   f.MinGroups,
		Workers:     f.Workers,
	}
}

// ---------------------------------------------------------------------------
// Locating and loading
// ---------------------------------------------------------------------------

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/go-accent-corpus.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appDir), nil
}

// Locate returns the config file to read using the following precedence:
//  1. flagPath (from --config)
//  2. CORPUS_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/go-accent-corpus/config.yaml
//
// explicit reports whether the path came from 1 or 2, in which case a missing
// file is an error.
func Locate(flagPath string) (path string, explicit bool, err error) {
	if flagPath != "" {
		return ExpandPath(flagPath), true, nil
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return ExpandPath(env), true, nil
	}
	d, err := dir()
	if err != nil {
		return "", false, err
	}
	return filepath.Join(d, fileName), false, nil
}

// Load reads the configuration file chosen by Locate, applies environment
// overrides and validates the result. A missing default file yields the
// defaults. Relative paths in the file are resolved against its directory.
func Load(flagPath string) (Config, string, error) {
	p, explicit, err := Locate(flagPath)
	if err != nil {
		return Config{}, "", err
	}

	cfg := Default()
	data, err := os.ReadFile(p) // #nosec G304 -- user-selected config path
	switch {
	case err == nil:
		if cfg, err = Parse(data); err != nil {
			return Config{}, p, fmt.Errorf("%s: %w", p, err)
		}
		cfg.resolvePaths(filepath.Dir(p))
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// Defaults only.
	case errors.Is(err, os.ErrNotExist):
		return Config{}, p, fmt.Errorf("%w: %s", ErrNotFound, p)
	default:
		return Config{}, p, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, p, err
	}
	return cfg, p, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return cfg, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// applyEnv lets environment variables override file values.
func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.LogLevel, EnvLogLevel)
	set(&c.LogFormat, EnvLogFormat)
	set(&c.MetricsFile, EnvMetricsFile)
	set(&c.FFmpegPath, EnvFFmpegPath)
	c.MetricsFile = ExpandPath(c.MetricsFile)
	c.FFmpegPath = ExpandPath(c.FFmpegPath)
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and that source names are unique.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}

	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		key := strings.ToLower(s.Name)
		if seen[key] {
			return fmt.Errorf("%w: duplicate source name %q", ErrInvalid, s.Name)
		}
		seen[key] = true
	}
	return nil
}

// fieldMessage renders one validation failure with its YAML path.
func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// ---------------------------------------------------------------------------
// Paths
// ---------------------------------------------------------------------------

// resolvePaths expands ~ and makes relative paths absolute against base.
func (c *Config) resolvePaths(base string) {
	fix := func(p *string) { *p = ResolvePath(*p, base) }
	fixAll := func(ps []string) {
		for i := range ps {
			fix(&ps[i])
		}
	}

	fix(&c.MetricsFile)
	for i := range c.Sources {
		s := &c.Sources[i]
		for _, p := range []*string{&s.Sheet, &s.NativeSheet, &s.AudioDir, &s.OutDir, &s.TrimLog, &s.Index} {
			fix(p)
		}
	}
	for _, p := range []*string{&c.Speakers.AudioDir, &c.Speakers.Output, &c.Speakers.Failures} {
		fix(p)
	}
	m := &c.Metadata
	for _, p := range []*string{&m.Files, &m.Speakers, &m.Coordinates, &m.AudioDir, &m.All, &m.Model, &m.Index} {
		fix(p)
	}
	fixAll(c.Combine.Inputs)
	for _, p := range []*string{&c.Combine.Output, &c.Resolve.Input, &c.Resolve.Output, &c.Resolve.SearchDir} {
		fix(p)
	}
	fix(&c.Features.Input)
	fix(&c.Features.Output)
}

// ResolvePath expands ~ in p and joins relative results to base.
// Empty paths stay empty.
func ResolvePath(p, base string) string {
	if p == "" {
		return ""
	}
	p = ExpandPath(p)
	if filepath.IsAbs(p) || base == "" {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(base, p))
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}

// Dir returns the configuration directory path.
func Dir() (string, error) {
	return dir()
}
