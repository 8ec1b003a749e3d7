package cli

import (
	"github.com/spf13/cobra"

	"github.com/alnah/go-accent-corpus/internal/features"
	"github.com/alnah/go-accent-corpus/internal/format"
	"github.com/alnah/go-accent-corpus/internal/logging"
	"github.com/alnah/go-accent-corpus/internal/report"
	"github.com/alnah/go-accent-corpus/internal/table"
)

// FeaturesCmd creates the features command.
// The env parameter provides injectable dependencies for testing.
func FeaturesCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "features",
		Short: "Extract a feature matrix from the resolved master index",
		Long: `Run the configured extractor on every labelled segment of the resolved
master index and write the feature dataset with grouped folds.

Segments are grouped by speaker; at most features.max_per_group segments
are sampled per speaker with features.seed. Every segment of a speaker
lands in the same fold.

The extractor is an external program that receives the segment path as its
last argument and prints one vector of numbers:

  features:
    extractor: [python3, mfcc.py]`,
		Example: `  corpus features`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := startStage(cmd, env, "features")
			if err != nil {
				return err
			}
			return s.finish(runFeatures(s))
		},
	}
	return cmd
}

// EvaluateCmd creates the evaluate command.
func EvaluateCmd(env *Env) *cobra.Command {
	var (
		input string
		folds int
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Cross-validate a baseline classifier on the feature dataset",
		Long: `Run speaker-grouped k-fold cross-validation of a nearest-centroid
classifier over the feature dataset and print per-fold accuracy, per-label
scores and the confusion matrix.`,
		Example: `  corpus evaluate
  corpus evaluate --folds 10 --input features.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := startStage(cmd, env, "evaluate")
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("folds") {
				folds = s.cfg.Features.Folds
			}
			return s.finish(runEvaluate(s, input, folds))
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Feature dataset (default: features.output)")
	cmd.Flags().IntVarP(&folds, "folds", "k", 0, "Number of folds (default: features.folds)")

	return cmd
}

func runFeatures(s *stage) error {
	c := s.cfg.Features
	input := s.cfg.FeaturesInput()
	if err := s.requireFile("features.input", input); err != nil {
		return err
	}
	if err := requireSetting("features.output", c.Output); err != nil {
		return err
	}
	ex, err := s.env.ExtractorFactory.NewExtractor(c.Extractor)
	if err != nil {
		return err
	}

	t, err := table.ReadFile(s.env.Fs, input)
	if err != nil {
		return err
	}

	rep := report.New("features", reportLimit)
	b := features.NewBuilder(ex, s.cfg.FeatureOptions(),
		features.WithLogger(logging.WithComponent(s.logger, "extractor")),
		features.WithFs(s.env.Fs))
	s.printf("Extracting features from %s...\n", format.Count(len(t.Rows), "row"))
	m, err := b.Build(s.ctx, t, rep)
	if err != nil {
		return err
	}

	assign, k := features.GroupKFold(m.Groups, c.Folds)
	fold := make([]int, len(assign))
	for i, a := range assign {
		fold[i] = a + 1
	}
	if err := features.WriteDataset(s.env.Fs, c.Output, m, fold); err != nil {
		return err
	}

	groups := len(m.DistinctGroups())
	s.observe(rep, len(t.Rows))
	s.metrics.Samples.Set(float64(m.Len()))
	s.metrics.Groups.Set(float64(groups))
	s.printf("Wrote %s of dimension %d from %s in %d folds -> %s\n",
		format.Count(m.Len(), "sample"), m.Dim(), format.Count(groups, "speaker"), k, c.Output)
	return nil
}

func runEvaluate(s *stage, input string, folds int) error {
	if input == "" {
		input = s.cfg.Features.Output
	}
	if err := s.requireFile("features.output", input); err != nil {
		return err
	}

	m, err := features.ReadDataset(s.env.Fs, input)
	if err != nil {
		return err
	}
	ev, err := features.CrossValidate(m, folds, func() features.Classifier {
		return &features.NearestCentroid{}
	})
	if err != nil {
		return err
	}

	s.metrics.Samples.Set(float64(m.Len()))
	s.metrics.Groups.Set(float64(len(m.DistinctGroups())))
	_, err = ev.WriteTo(s.env.Stdout)
	return err
}
