package cli

import (
	"github.com/spf13/cobra"

	"github.com/alnah/go-accent-corpus/internal/config"
)

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the pipeline configuration",
		Long: `Inspect the pipeline configuration.

The file is read from --config, then CORPUS_CONFIG, then
~/.config/go-accent-corpus/config.yaml. Relative paths in the file are
resolved against its directory.

Environment overrides:
  CORPUS_LOG_LEVEL     log_level (debug, info, warn, error)
  CORPUS_LOG_FORMAT    log_format (console, json)
  CORPUS_METRICS_FILE  metrics_file
  FFMPEG_PATH          ffmpeg_path`,
		Example: `  corpus config show
  corpus config path --config corpus.yaml`,
	}

	cmd.AddCommand(configShowCmd(env))
	cmd.AddCommand(configPathCmd(env))

	return cmd
}

// configShowCmd prints the effective configuration as YAML.
func configShowCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flagPath, _ := cmd.Flags().GetString(configFlag)
			cfg, _, err := env.ConfigLoader.Load(flagPath)
			if err != nil {
				return err
			}
			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = env.Stdout.Write(data)
			return err
		},
	}
}

// configPathCmd prints the config file location, whether or not it exists.
func configPathCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flagPath, _ := cmd.Flags().GetString(configFlag)
			p, _, err := config.Locate(flagPath)
			if err != nil {
				return err
			}
			writeLine(env.Stdout, "%s", p)
			return nil
		},
	}
}
