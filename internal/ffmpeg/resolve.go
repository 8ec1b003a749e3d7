// Package ffmpeg locates the ffmpeg binary and runs it.
package ffmpeg

import (
	"context"
	"fmt"
	"runtime"
)

const (
	// binaryName is the base name of the ffmpeg binary.
	binaryName = "ffmpeg"

	// EnvPath names the environment variable holding an explicit ffmpeg path.
	EnvPath = "FFMPEG_PATH"

	// minFFmpegMajorVersion is the minimum supported ffmpeg version.
	minFFmpegMajorVersion = 4
)

// ---------------------------------------------------------------------------
// Resolver - testable FFmpeg resolution with dependency injection
// ---------------------------------------------------------------------------

// Resolver finds ffmpeg.
type Resolver struct {
	configured string
	files      fileStatter
	env        envProvider
	goos       string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithConfiguredPath sets a path from the configuration file. It takes
// precedence over FFMPEG_PATH and PATH.
func WithConfiguredPath(path string) ResolverOption {
	return func(r *Resolver) { r.configured = path }
}

// WithFileStatter sets the file statter implementation.
func WithFileStatter(s fileStatter) ResolverOption {
	return func(r *Resolver) { r.files = s }
}

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(r *Resolver) { r.env = e }
}

// WithPlatform sets the target OS used for install instructions.
func WithPlatform(goos string) ResolverOption {
	return func(r *Resolver) { r.goos = goos }
}

// NewResolver creates a Resolver with the given options.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		files: osFileStatter{},
		env:   osEnvProvider{},
		goos:  runtime.GOOS,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds ffmpeg using the following precedence:
//  1. the configured path (error if set but missing)
//  2. FFMPEG_PATH environment variable (error if set but missing)
//  3. System PATH
func (r *Resolver) Resolve(_ context.Context) (string, error) {
	if r.configured != "" {
		if _, err := r.files.Stat(r.configured); err != nil {
			return "", fmt.Errorf("%w: ffmpeg_path is set to %q but binary not found", ErrNotFound, r.configured)
		}
		return r.configured, nil
	}

	if envPath := r.env.Getenv(EnvPath); envPath != "" {
		if _, err := r.files.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but binary not found", ErrNotFound, EnvPath, envPath)
		}
		return envPath, nil
	}

	if path, err := r.env.LookPath(binaryName); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w\n\n%s", ErrNotFound, r.manualInstallInstructions())
}

// manualInstallInstructions returns platform-specific instructions.
func (r *Resolver) manualInstallInstructions() string {
	switch r.goos {
	case "darwin":
		return `To install FFmpeg:
  brew install ffmpeg

Or set FFMPEG_PATH environment variable to your ffmpeg binary.`
	case "linux":
		return `To install FFmpeg:
  Ubuntu/Debian: sudo apt install ffmpeg
  Fedora:        sudo dnf install ffmpeg
  Arch:          sudo pacman -S ffmpeg

Or set FFMPEG_PATH environment variable to your ffmpeg binary.`
	case "windows":
		return `To install FFmpeg:
  winget install ffmpeg

Or set FFMPEG_PATH environment variable to your ffmpeg.exe.`
	default:
		return `To install FFmpeg, download from https://ffmpeg.org/download.html
Or set FFMPEG_PATH environment variable to your ffmpeg binary.`
	}
}
