package metadata

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/alnah/go-accent-corpus/internal/table"
	"github.com/alnah/go-accent-corpus/internal/textnorm"
)

// UnknownSpeaker is written as speaker_raw when no name could be extracted.
const UnknownSpeaker = "UNKNOWN"

// ScanFailure is a file whose name yielded no speaker.
type ScanFailure struct {
	Filename string
	Reason   string
}

// ScanFiles builds the files table from the audio files in dir whose
// extension matches ext (case-insensitive; empty matches any). Files are
// returned in name order. Unparsable names are still listed, with
// UnknownSpeaker and textnorm.Unknown, and reported as failures.
func ScanFiles(fsys afero.Fs, dir, ext string) ([]File, []ScanFailure, error) {
	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot list audio directory: %w", err)
	}

	var (
		files    []File
		failures []ScanFailure
	)
	for _, fi := range infos {
		name := fi.Name()
		if fi.IsDir() || (ext != "" && !hasExt(name, ext)) {
			continue
		}
		raw, ok := textnorm.SpeakerFromFilename(name)
		if !ok {
			failures = append(failures, ScanFailure{
				Filename: name,
				Reason:   "could not extract speaker (underscore/dash pattern mismatch)",
			})
			files = append(files, File{Filename: name, FilenameRaw: name, SpeakerRaw: UnknownSpeaker, SpeakerKey: textnorm.Unknown})
			continue
		}
		files = append(files, File{
			Filename:    name,
			FilenameRaw: name,
			SpeakerRaw:  raw,
			SpeakerKey:  textnorm.Key(raw),
		})
	}
	return files, failures, nil
}

// WriteFiles replaces path with a files table.
func WriteFiles(fsys afero.Fs, path string, files []File) error {
	rows := make([]table.Row, 0, len(files))
	for _, f := range files {
		rows = append(rows, table.Row{
			ColFilename:   f.Filename,
			ColSpeakerRaw: f.SpeakerRaw,
			ColSpeakerKey: f.SpeakerKey,
		})
	}
	return table.WriteFile(fsys, path, FilesColumns, rows)
}

// WriteScanFailures replaces path with one row per failure.
func WriteScanFailures(fsys afero.Fs, path string, failures []ScanFailure) error {
	rows := make([]table.Row, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, table.Row{ColFilename: f.Filename, "reason": f.Reason})
	}
	return table.WriteFile(fsys, path, []string{ColFilename, "reason"}, rows)
}

func hasExt(name, ext string) bool {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return len(name) > len(ext) && strings.EqualFold(name[len(name)-len(ext):], ext)
}
