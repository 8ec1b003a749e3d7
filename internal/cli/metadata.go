package cli

import (
	"cmp"
	"slices"

	"github.com/spf13/cobra"

	"github.com/alnah/go-accent-corpus/internal/corpus"
	"github.com/alnah/go-accent-corpus/internal/format"
	"github.com/alnah/go-accent-corpus/internal/metadata"
	"github.com/alnah/go-accent-corpus/internal/report"
	"github.com/alnah/go-accent-corpus/internal/validtimes"
)

// SpeakersCmd creates the speakers command.
// The env parameter provides injectable dependencies for testing.
func SpeakersCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "speakers",
		Short: "Extract speaker keys from processed audio file names",
		Long: `Scan speakers.audio_dir and write the files table (filename, speaker_raw,
speaker_key) used by the metadata merge.

Names that yield no speaker are listed as UNKNOWN and written to
speakers.failures when configured.`,
		Example: `  corpus speakers`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := startStage(cmd, env, "speakers")
			if err != nil {
				return err
			}
			return s.finish(runSpeakers(s))
		},
	}
	return cmd
}

// MetadataCmd creates the metadata command.
func MetadataCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Merge files, speakers and coordinates",
		Long: `Left-join the files table to the speaker master and the constituency
coordinates, derive provinces, and write:

  metadata.all     every file with its speaker metadata
  metadata.model   primary-role speakers with a constituency and province
  metadata.index   canonical records over a fixed window of every clip

Duplicate keys in the speaker master or coordinate table abort the merge.`,
		Example: `  corpus metadata`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := startStage(cmd, env, "metadata")
			if err != nil {
				return err
			}
			return s.finish(runMetadata(s))
		},
	}
	return cmd
}

func runSpeakers(s *stage) error {
	c := s.cfg.Speakers
	if err := requireSetting("speakers.audio_dir", c.AudioDir); err != nil {
		return err
	}
	if err := requireSetting("speakers.output", c.Output); err != nil {
		return err
	}

	files, failures, err := metadata.ScanFiles(s.env.Fs, c.AudioDir, c.Ext)
	if err != nil {
		return err
	}
	if err := metadata.WriteFiles(s.env.Fs, c.Output, files); err != nil {
		return err
	}

	rep := report.New("speakers", reportLimit)
	for _, f := range failures {
		rep.Skip("unknown_speaker", f.Filename)
	}
	if c.Failures != "" && len(failures) > 0 {
		if err := metadata.WriteScanFailures(s.env.Fs, c.Failures, failures); err != nil {
			return err
		}
	}

	s.observe(rep, len(files))
	s.printf("Scanned %s, %s without speaker -> %s\n",
		format.Count(len(files), "file"),
		format.Count(len(failures), "file"),
		c.Output)
	return nil
}

func runMetadata(s *stage) error {
	c := s.cfg.Metadata
	filesPath := c.Files
	if filesPath == "" {
		filesPath = s.cfg.Speakers.Output
	}
	if err := s.requireFile("metadata.files", filesPath); err != nil {
		return err
	}
	if err := s.requireFile("metadata.speakers", c.Speakers); err != nil {
		return err
	}
	if err := s.requireFile("metadata.coordinates", c.Coordinates); err != nil {
		return err
	}

	files, err := metadata.LoadFiles(s.env.Fs, filesPath)
	if err != nil {
		return err
	}
	speakers, err := metadata.LoadSpeakers(s.env.Fs, c.Speakers)
	if err != nil {
		return err
	}
	coords, err := metadata.LoadCoordinates(s.env.Fs, c.Coordinates)
	if err != nil {
		return err
	}

	for _, d := range metadata.Duplicates(speakers) {
		s.logger.Warn().Str("speaker_key", d.Key).Int("count", d.Count).Msg("duplicate speaker key")
	}

	rows, diag, err := metadata.Merge(files, speakers, coords)
	if err != nil {
		return err
	}
	_, _ = diag.WriteTo(s.env.Stderr)

	model := metadata.ModelView(rows)
	if c.All != "" {
		if err := metadata.WriteRows(s.env.Fs, c.All, rows); err != nil {
			return err
		}
	}
	if c.Model != "" {
		if err := metadata.WriteRows(s.env.Fs, c.Model, model); err != nil {
			return err
		}
	}
	printProvinces(s, model)

	if c.Index == "" {
		return nil
	}
	rep := report.New("metadata", reportLimit)
	recs := metadata.ToRecords(model, metadata.RecordOptions{
		Dataset:  c.Dataset,
		AudioDir: c.AudioDir,
		Window:   validtimes.Interval{Start: c.WindowStart, End: c.WindowEnd},
	}, rep)
	if err := corpus.WriteIndex(s.env.Fs, c.Index, recs); err != nil {
		return err
	}
	s.observe(rep, len(model))
	s.printf("Indexed %s of %s -> %s\n",
		format.Count(len(recs), "clip"),
		format.Count(len(rows), "file"),
		c.Index)
	return nil
}

// printProvinces lists model rows per province, largest first.
func printProvinces(s *stage, rows []metadata.Row) {
	counts := metadata.ProvinceCounts(rows)
	provinces := make([]string, 0, len(counts))
	for p := range counts {
		provinces = append(provinces, p)
	}
	slices.SortFunc(provinces, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	s.printf("Model rows: %d\n", len(rows))
	for _, p := range provinces {
		s.printf("  %-10s %5d  %s\n", p, counts[p], format.Percent(counts[p], len(rows)))
	}
}
