// Package audio probes and cuts audio files with FFmpeg.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// Prober reports the duration of an audio file.
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Trimmer cuts [start, end) of src into dst.
type Trimmer interface {
	Trim(ctx context.Context, src, dst string, start, end time.Duration) error
}

// Compile-time interface implementation checks.
var (
	_ Prober  = (*FFmpeg)(nil)
	_ Trimmer = (*FFmpeg)(nil)
)

// Default output encoding for segments.
const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1

	outputDirPerm = 0o750
)

var (
	durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)
	timeRe     = regexp.MustCompile(`time=(\d+):(\d+):(\d+)\.(\d+)`)
)

// FFmpeg implements Prober and Trimmer by running the ffmpeg binary.
type FFmpeg struct {
	ffmpegPath string
	sampleRate int
	channels   int

	// Injectable dependencies (defaults to OS implementations).
	cmd   commandRunner
	files fileStatter
	dirs  dirMaker
}

// Option configures an FFmpeg.
type Option func(*FFmpeg)

// WithCommandRunner sets the command runner.
func WithCommandRunner(r commandRunner) Option {
	return func(f *FFmpeg) { f.cmd = r }
}

// WithFileStatter sets the file statter.
func WithFileStatter(s fileStatter) Option {
	return func(f *FFmpeg) { f.files = s }
}

// WithDirMaker sets the directory creator.
func WithDirMaker(d dirMaker) Option {
	return func(f *FFmpeg) { f.dirs = d }
}

// WithEncoding sets the output sample rate and channel count.
// Non-positive values keep the defaults.
func WithEncoding(sampleRate, channels int) Option {
	return func(f *FFmpeg) {
		if sampleRate > 0 {
			f.sampleRate = sampleRate
		}
		if channels > 0 {
			f.channels = channels
		}
	}
}

// New creates an FFmpeg runner for the binary at ffmpegPath.
func New(ffmpegPath string, opts ...Option) (*FFmpeg, error) {
	if ffmpegPath == "" {
		return nil, errors.New("ffmpegPath cannot be empty")
	}
	f := &FFmpeg{
		ffmpegPath: ffmpegPath,
		sampleRate: DefaultSampleRate,
		channels:   DefaultChannels,
		cmd:        osCommandRunner{},
		files:      osFileStatter{},
		dirs:       osDirMaker{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Duration returns the duration of the file at path.
func (f *FFmpeg) Duration(ctx context.Context, path string) (time.Duration, error) {
	if _, err := f.files.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return 0, fmt.Errorf("%w: %s: %v", ErrProbeFailed, path, err)
	}

	// With no output file ffmpeg prints the input header and exits
	// non-zero, so the output is parsed regardless of the exit status.
	output, err := f.cmd.CombinedOutput(ctx, f.ffmpegPath, []string{"-hide_banner", "-i", path})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}
	if err != nil && len(output) == 0 {
		return 0, fmt.Errorf("%w: %s: %v", ErrProbeFailed, path, err)
	}

	d, perr := parseDurationFromFFmpegOutput(string(output))
	if perr != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrProbeFailed, path, perr)
	}
	return d, nil
}

// Trim cuts [start, end) of src into dst, re-encoded to the configured
// sample rate and channel count. An existing dst is overwritten.
func (f *FFmpeg) Trim(ctx context.Context, src, dst string, start, end time.Duration) error {
	if end <= start {
		return fmt.Errorf("%w: empty range %s-%s", ErrTrimFailed, formatFFmpegTime(start), formatFFmpegTime(end))
	}
	if _, err := f.files.Stat(src); err != nil {
		return fmt.Errorf("%w: %s", ErrFileNotFound, src)
	}
	if err := f.dirs.MkdirAll(filepath.Dir(dst), outputDirPerm); err != nil {
		return fmt.Errorf("%w: create output directory: %v", ErrTrimFailed, err)
	}

	output, err := f.cmd.CombinedOutput(ctx, f.ffmpegPath, f.trimArgs(src, dst, start, end))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s: %v\nOutput: %s", ErrTrimFailed, dst, err, string(output))
	}
	return nil
}

// trimArgs seeks before -i for speed and bounds the cut with -t.
func (f *FFmpeg) trimArgs(src, dst string, start, end time.Duration) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatFFmpegTime(start),
		"-i", src,
		"-t", formatFFmpegTime(end - start),
		"-ar", strconv.Itoa(f.sampleRate),
		"-ac", strconv.Itoa(f.channels),
		dst,
	}
}

// parseDurationFromFFmpegOutput extracts duration from FFmpeg stderr.
// Looks for: "Duration: HH:MM:SS.ms" or "time=HH:MM:SS.ms"
func parseDurationFromFFmpegOutput(output string) (time.Duration, error) {
	if matches := durationRe.FindStringSubmatch(output); matches != nil {
		return parseTimeComponents(matches[1], matches[2], matches[3], matches[4])
	}

	// Progress output: the last time= is the final position.
	allMatches := timeRe.FindAllStringSubmatch(output, -1)
	if len(allMatches) > 0 {
		matches := allMatches[len(allMatches)-1]
		return parseTimeComponents(matches[1], matches[2], matches[3], matches[4])
	}

	return 0, fmt.Errorf("could not parse duration from ffmpeg output")
}

// parseTimeComponents converts HH:MM:SS.frac strings to Duration.
func parseTimeComponents(hours, minutes, seconds, fractional string) (time.Duration, error) {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)

	// Normalize the fractional part (1 to 6+ digits) to milliseconds.
	frac, _ := strconv.Atoi(fractional)
	ms := frac
	switch n := len(fractional); {
	case n == 1:
		ms = frac * 100
	case n == 2:
		ms = frac * 10
	case n > 3:
		for i := n; i > 3; i-- {
			ms /= 10
		}
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// formatFFmpegTime formats a duration for FFmpeg -ss/-t arguments.
func formatFFmpegTime(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := d.Seconds() - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}
