package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alnah/go-accent-corpus/internal/config"
	"github.com/alnah/go-accent-corpus/internal/format"
	"github.com/alnah/go-accent-corpus/internal/logging"
	"github.com/alnah/go-accent-corpus/internal/metrics"
	"github.com/alnah/go-accent-corpus/internal/report"
)

// configFlag is the persistent flag selecting the config file.
const configFlag = "config"

// stage carries what every pipeline command needs: the loaded config, a
// logger, and the run metrics flushed when the command returns.
type stage struct {
	ctx     context.Context
	name    string
	env     *Env
	cfg     config.Config
	cfgPath string
	logger  zerolog.Logger
	metrics *metrics.Metrics
	start   time.Time
}

// startStage loads the configuration and prepares logging and metrics.
func startStage(cmd *cobra.Command, env *Env, name string) (*stage, error) {
	flagPath, _ := cmd.Flags().GetString(configFlag)
	cfg, path, err := env.ConfigLoader.Load(flagPath)
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}, env.Stderr)
	logger = logging.WithComponent(logger, name)
	logger.Debug().Str("config", path).Msg("configuration loaded")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return &stage{
		ctx:     ctx,
		name:    name,
		env:     env,
		cfg:     cfg,
		cfgPath: path,
		logger:  logger,
		metrics: metrics.New(),
		start:   env.Now(),
	}, nil
}

// finish records the stage duration and writes the metrics textfile when
// one is configured. A metrics write failure never masks err.
func (s *stage) finish(err error) error {
	elapsed := s.env.Now().Sub(s.start)
	s.metrics.ObserveStage(s.name, elapsed)
	if err == nil {
		s.logger.Info().Str("elapsed", format.Duration(elapsed)).Msg("stage finished")
	}
	if s.cfg.MetricsFile == "" {
		return err
	}
	if werr := s.metrics.WriteTextfile(s.cfg.MetricsFile); werr != nil {
		if err != nil {
			s.logger.Warn().Err(werr).Msg("failed to write metrics")
			return err
		}
		return fmt.Errorf("failed to write metrics: %w", werr)
	}
	return err
}

// observe adds rep to the run metrics and prints its skip summary.
func (s *stage) observe(rep *report.Report, processed int) {
	s.metrics.ObserveReport(rep, processed)
	if rep.Total() > 0 {
		_, _ = rep.WriteTo(s.env.Stderr)
	}
}

// printf writes a progress line to stderr.
func (s *stage) printf(layout string, args ...any) {
	_, _ = fmt.Fprintf(s.env.Stderr, layout, args...)
}

// requireFile checks that path names an existing file on the stage filesystem.
func (s *stage) requireFile(setting, path string) error {
	if err := requireSetting(setting, path); err != nil {
		return err
	}
	if _, err := s.env.Fs.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s (%s)", ErrFileNotFound, path, setting)
		}
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	return nil
}

// requireSetting checks that a path setting is non-empty.
func requireSetting(setting, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s", ErrSettingMissing, setting)
	}
	return nil
}

// writeLine writes one line to w, ignoring write errors.
func writeLine(w io.Writer, layout string, args ...any) {
	_, _ = fmt.Fprintf(w, layout+"\n", args...)
}
