package features

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"unicode"
)

// Extractor turns one audio file into a fixed-length feature vector.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]float64, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, path string) ([]float64, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, path string) ([]float64, error) {
	return f(ctx, path)
}

// Compile-time interface checks.
var (
	_ Extractor = ExtractorFunc(nil)
	_ Extractor = (*CommandExtractor)(nil)
)

// runFn runs a program and returns its stdout.
type runFn func(ctx context.Context, name string, args []string) ([]byte, error)

// CommandExtractor runs an external program once per file. The audio path is
// appended to Args and the program prints the vector on stdout, separated by
// commas or whitespace.
type CommandExtractor struct {
	program string
	args    []string
	run     runFn
}

// CommandOption configures a CommandExtractor.
type CommandOption func(*CommandExtractor)

// WithRun sets a custom process runner (for testing).
func WithRun(fn runFn) CommandOption {
	return func(c *CommandExtractor) { c.run = fn }
}

// NewCommandExtractor creates an extractor invoking program with args.
func NewCommandExtractor(program string, args []string, opts ...CommandOption) *CommandExtractor {
	c := &CommandExtractor{
		program: program,
		args:    args,
		run:     defaultRun,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extract runs the program on path and parses its output.
func (c *CommandExtractor) Extract(ctx context.Context, path string) ([]float64, error) {
	args := append(append([]string(nil), c.args...), path)
	out, err := c.run(ctx, c.program, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExtractFailed, path, err)
	}
	vec, err := ParseVector(string(out))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExtractFailed, path, err)
	}
	return vec, nil
}

// ParseVector parses numbers separated by commas or whitespace.
func ParseVector(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("no values in output")
	}
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("parse value %q: %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func defaultRun(ctx context.Context, name string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w\nOutput: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
