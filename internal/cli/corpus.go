package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-accent-corpus/internal/corpus"
	"github.com/alnah/go-accent-corpus/internal/format"
	"github.com/alnah/go-accent-corpus/internal/resolve"
)

// CombineCmd creates the combine command.
// The env parameter provides injectable dependencies for testing.
func CombineCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Merge canonical indexes into the master index",
		Long: `Concatenate canonical indexes and drop duplicate segments. A segment is
identified by dataset, video id and time window; the first
occurrence wins.

Inputs default to every source index in config order followed by the
metadata index. Set combine.inputs to choose them explicitly.`,
		Example: `  corpus combine`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := startStage(cmd, env, "combine")
			if err != nil {
				return err
			}
			return s.finish(runCombine(s))
		},
	}
	return cmd
}

// ResolveCmd creates the resolve command.
func ResolveCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve segment paths of the master index",
		Long: `Add segment_file_resolved to every master index row.

Rows of a dataset listed in resolve.stale_datasets keep their stored path
when it exists; otherwise the file is looked up by video id in
resolve.search_dir. Rows of other datasets are copied through unchanged.`,
		Example: `  corpus resolve`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := startStage(cmd, env, "resolve")
			if err != nil {
				return err
			}
			return s.finish(runResolve(s))
		},
	}
	return cmd
}

// AuditCmd creates the audit command.
func AuditCmd(env *Env) *cobra.Command {
	var (
		input  string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List resolved paths missing on disk",
		Long: `Check every segment_file_resolved of the resolved master index and list
the rows whose file does not exist, one per line:

  <line>	<dataset>	<video_id>	<path>

With --strict the command fails when any row is listed.`,
		Example: `  corpus audit
  corpus audit --strict --input master_resolved.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := startStage(cmd, env, "audit")
			if err != nil {
				return err
			}
			return s.finish(runAudit(s, input, strict))
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Resolved index to audit (default: resolve.output)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when any resolved path is missing")

	return cmd
}

func runCombine(s *stage) error {
	inputs := s.cfg.CombineInputs()
	if len(inputs) == 0 {
		return fmt.Errorf("%w: combine.inputs", ErrSettingMissing)
	}
	if err := requireSetting("combine.output", s.cfg.Combine.Output); err != nil {
		return err
	}

	sources := make([][]corpus.Record, 0, len(inputs))
	total := 0
	for _, p := range inputs {
		if err := s.requireFile("combine input", p); err != nil {
			return err
		}
		recs, err := corpus.ReadIndex(s.env.Fs, p)
		if err != nil {
			return err
		}
		s.logger.Debug().Str("input", p).Int("rows", len(recs)).Msg("index read")
		sources = append(sources, recs)
		total += len(recs)
	}

	master, removed := corpus.Combine(sources...)
	if err := corpus.WriteIndex(s.env.Fs, s.cfg.Combine.Output, master); err != nil {
		return err
	}

	s.metrics.RowsProcessed.WithLabelValues("combine").Add(float64(total))
	s.metrics.RowsSkipped.WithLabelValues("combine", "duplicate_segment").Add(float64(removed))
	s.printf("Combined %s from %s, %s removed -> %s\n",
		format.Count(len(master), "row"),
		format.Count(len(inputs), "input"),
		format.Count(removed, "duplicate"),
		s.cfg.Combine.Output)
	return nil
}

func runResolve(s *stage) error {
	c := s.cfg.Resolve
	input := s.cfg.ResolveInput()
	if err := s.requireFile("resolve.input", input); err != nil {
		return err
	}
	if err := requireSetting("resolve.output", c.Output); err != nil {
		return err
	}

	recs, err := corpus.ReadIndex(s.env.Fs, input)
	if err != nil {
		return err
	}
	r := resolve.New(s.env.Fs, resolve.Options{
		StaleDatasets: c.StaleDatasets,
		SearchDir:     c.SearchDir,
		Extension:     c.Extension,
	})
	out, st, err := r.ResolveAll(s.ctx, recs)
	if err != nil {
		return err
	}
	if err := corpus.WriteResolved(s.env.Fs, c.Output, out); err != nil {
		return err
	}

	s.metrics.RowsProcessed.WithLabelValues("resolve").Add(float64(st.Total))
	for outcome, n := range map[string]int{
		"passthrough": st.Total - st.Stale,
		"kept":        st.Kept,
		"fixed":       st.Fixed,
		"missing":     st.Missing,
	} {
		s.metrics.Paths.WithLabelValues(outcome).Add(float64(n))
	}
	if st.Missing > 0 {
		s.logger.Warn().Int("rows", st.Missing).Msg("stale rows without a matching file")
	}
	s.printf("Resolved %s: %d stale, %d kept, %d fixed, %d missing -> %s\n",
		format.Count(st.Total, "row"), st.Stale, st.Kept, st.Fixed, st.Missing, c.Output)
	return nil
}

func runAudit(s *stage, input string, strict bool) error {
	if input == "" {
		input = s.cfg.Resolve.Output
	}
	if err := s.requireFile("resolve.output", input); err != nil {
		return err
	}

	recs, err := corpus.ReadResolved(s.env.Fs, input)
	if err != nil {
		return err
	}
	res := resolve.Audit(s.env.Fs, recs)
	for _, is := range res.Absent {
		writeLine(s.env.Stdout, "%d\t%s\t%s\t%s", is.Line, is.Dataset, is.VideoID, is.Path)
	}

	s.metrics.RowsProcessed.WithLabelValues("audit").Add(float64(len(recs)))
	s.metrics.Paths.WithLabelValues("absent").Add(float64(len(res.Absent)))
	s.metrics.Paths.WithLabelValues("unresolved").Add(float64(res.Unresolved))
	s.printf("Audited %s: %d absent, %d unresolved\n",
		format.Count(len(recs), "row"), len(res.Absent), res.Unresolved)

	if strict && len(res.Absent) > 0 {
		return fmt.Errorf("%w: %s", ErrAuditFailed, format.Count(len(res.Absent), "row"))
	}
	return nil
}
