package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-accent-corpus/internal/config"
	"github.com/alnah/go-accent-corpus/internal/corpus"
	"github.com/alnah/go-accent-corpus/internal/format"
	"github.com/alnah/go-accent-corpus/internal/logging"
	"github.com/alnah/go-accent-corpus/internal/report"
	"github.com/alnah/go-accent-corpus/internal/segment"
	"github.com/alnah/go-accent-corpus/internal/table"
)

// reportLimit bounds the examples kept per skip reason.
const reportLimit = 5

// TrimCmd creates the trim command.
// The env parameter provides injectable dependencies for testing.
func TrimCmd(env *Env) *cobra.Command {
	var sourceName string

	cmd := &cobra.Command{
		Use:   "trim",
		Short: "Cut annotated clips into numbered segments",
		Long: `Cut every annotated clip of a source into segments of at most max_chunk
seconds and write the trim log.

Each sheet row names a video by URL and lists valid_times intervals. Rows
with blank valid_times use the whole clip. Existing segments are kept and
logged as "exists", so an interrupted run can be resumed.

Without --source every configured source is trimmed in order.`,
		Example: `  corpus trim --source NI
  corpus trim --config corpus.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := startStage(cmd, env, "trim")
			if err != nil {
				return err
			}
			return s.finish(runTrim(s, sourceName))
		},
	}

	cmd.Flags().StringVarP(&sourceName, "source", "s", "", "Source to trim (default: all)")

	return cmd
}

// IndexCmd creates the index command.
func IndexCmd(env *Env) *cobra.Command {
	var sourceName string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build a canonical index from a trim log",
		Long: `Join the trim log of a source with its annotation sheet and write the
canonical segment index. Only segments on disk (status ok or exists) are
indexed. Native region columns come from native_sheet when configured.`,
		Example: `  corpus index --source NI`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := startStage(cmd, env, "index")
			if err != nil {
				return err
			}
			return s.finish(runIndex(s, sourceName))
		},
	}

	cmd.Flags().StringVarP(&sourceName, "source", "s", "", "Source to index (default: all)")

	return cmd
}

// selectSources returns the named source, or every source when name is empty.
func selectSources(cfg config.Config, name string) ([]config.Source, error) {
	if name == "" {
		if len(cfg.Sources) == 0 {
			return nil, fmt.Errorf("%w: sources", ErrSettingMissing)
		}
		return cfg.Sources, nil
	}
	src, ok := cfg.Source(name)
	if !ok {
		known := strings.Join(cfg.SourceNames(), ", ")
		if known == "" {
			known = "none configured"
		}
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownSource, name, known)
	}
	return []config.Source{src}, nil
}

func runTrim(s *stage, name string) error {
	ctx := s.ctx
	sources, err := selectSources(s.cfg, name)
	if err != nil {
		return err
	}
	for _, src := range sources {
		if err := s.requireFile("sources."+src.Name+".sheet", src.Sheet); err != nil {
			return err
		}
	}

	ffmpegPath, err := s.env.FFmpegResolver.Resolve(ctx, s.cfg.FFmpegPath)
	if err != nil {
		return err
	}
	s.env.FFmpegResolver.CheckVersion(ctx, ffmpegPath, s.logger)

	for _, src := range sources {
		if err := trimSource(ctx, s, src, ffmpegPath); err != nil {
			return err
		}
	}
	return nil
}

func trimSource(ctx context.Context, s *stage, src config.Source, ffmpegPath string) error {
	logger := logging.WithSource(s.logger, "trim", src.DatasetTag())

	sheet, err := table.ReadFile(s.env.Fs, src.Sheet)
	if err != nil {
		return err
	}
	au, err := s.env.AudioFactory.NewAudio(ffmpegPath, src.SampleRate, src.Channels)
	if err != nil {
		return err
	}
	trimmer, err := segment.NewTrimmer(src.Segment(), au, au,
		segment.WithFs(s.env.Fs),
		segment.WithClock(s.env.Now),
		segment.WithLogger(logger))
	if err != nil {
		return err
	}

	s.printf("Trimming %s (%s)...\n", src.Name, format.Count(len(sheet.Rows), "row"))
	rep := report.New("trim", reportLimit)
	entries, sum, runErr := trimmer.Run(ctx, sheet, rep)

	// The log is written even after an interrupt so completed segments
	// are indexable and a rerun resumes where this one stopped.
	if len(entries) > 0 || runErr == nil {
		if err := segment.WriteLog(s.env.Fs, src.TrimLog, entries); err != nil {
			return errors.Join(runErr, err)
		}
	}
	if runErr != nil {
		return runErr
	}

	s.observe(rep, sum.Rows)
	dataset := src.DatasetTag()
	s.metrics.Segments.WithLabelValues(dataset, segment.StatusOK).Add(float64(sum.Written))
	s.metrics.Segments.WithLabelValues(dataset, segment.StatusExists).Add(float64(sum.Existing))
	s.metrics.Segments.WithLabelValues(dataset, segment.StatusFail).Add(float64(sum.Failed))
	s.metrics.AudioSeconds.WithLabelValues(dataset).Add(sum.Audio.Seconds())

	s.printf("%s: %s, %s written, %s existing, %s failed (%s of audio)\n",
		src.Name,
		format.Count(sum.Clips, "clip"),
		format.Count(sum.Written, "segment"),
		format.Count(sum.Existing, "segment"),
		format.Count(sum.Failed, "segment"),
		format.DurationHuman(sum.Audio))
	s.printf("Trim log: %s\n", src.TrimLog)
	return nil
}

func runIndex(s *stage, name string) error {
	sources, err := selectSources(s.cfg, name)
	if err != nil {
		return err
	}
	for _, src := range sources {
		if err := indexSource(s, src); err != nil {
			return err
		}
	}
	return nil
}

func indexSource(s *stage, src config.Source) error {
	if err := s.requireFile("sources."+src.Name+".trim_log", src.TrimLog); err != nil {
		return err
	}
	if err := s.requireFile("sources."+src.Name+".sheet", src.Sheet); err != nil {
		return err
	}

	entries, err := segment.ReadLog(s.env.Fs, src.TrimLog)
	if err != nil {
		return err
	}
	sheet, err := table.ReadFile(s.env.Fs, src.Sheet)
	if err != nil {
		return err
	}
	var native *table.Table
	if src.NativeSheet != "" {
		if native, err = table.ReadFile(s.env.Fs, src.NativeSheet); err != nil {
			return err
		}
	}

	rep := report.New("index", reportLimit)
	recs, stats, err := segment.Index(src.Segment(), entries, sheet, native, rep)
	if err != nil {
		return err
	}
	if err := corpus.WriteIndex(s.env.Fs, src.Index, recs); err != nil {
		return err
	}

	s.observe(rep, stats.Entries)
	if stats.NoNative > 0 {
		logging.WithSource(s.logger, "index", src.DatasetTag()).Warn().
			Int("rows", stats.NoNative).
			Msg("indexed rows without native region")
	}
	s.printf("%s: indexed %s of %s (%s without annotation) -> %s\n",
		src.Name,
		format.Count(stats.Indexed, "segment"),
		format.Count(stats.Entries, "log row"),
		format.Count(stats.NoAnnotation, "segment"),
		src.Index)
	return nil
}
