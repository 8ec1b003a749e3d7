package cli

import (
	"github.com/spf13/cobra"
)

// RootCmd creates the corpus command with every pipeline stage registered.
// version is printed by --version.
func RootCmd(env *Env, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "corpus",
		Short: "Build an accent-labelled speech corpus",
		Long: `corpus turns annotated parliamentary video clips into a speaker-labelled
segment corpus and a feature matrix for accent classification.

Pipeline:
  trim → index → speakers → metadata → combine → resolve → features → evaluate

Every stage reads its inputs and outputs from the YAML config file.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringP(configFlag, "c", "", "Config file (env: CORPUS_CONFIG)")

	root.AddCommand(TrimCmd(env))
	root.AddCommand(IndexCmd(env))
	root.AddCommand(SpeakersCmd(env))
	root.AddCommand(MetadataCmd(env))
	root.AddCommand(CombineCmd(env))
	root.AddCommand(ResolveCmd(env))
	root.AddCommand(AuditCmd(env))
	root.AddCommand(FeaturesCmd(env))
	root.AddCommand(EvaluateCmd(env))
	root.AddCommand(ConfigCmd(env))

	return root
}
