package segment

import (
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/alnah/go-accent-corpus/internal/table"
)

// Trim log statuses.
const (
	StatusOK     = "ok"     // segment written by this run
	StatusExists = "exists" // segment already on disk, not rewritten
	StatusSkip   = "skip"   // row skipped (duplicate video id)
	StatusFail   = "fail"
)

// Trim log columns.
const (
	LogColTimestamp = "timestamp"
	LogColVideoID   = "video_id"
	LogColSegment   = "segment"
	LogColStart     = "start"
	LogColEnd       = "end"
	LogColOutput    = "output"
	LogColStatus    = "status"
	LogColError     = "error"
)

// LogFields is the trim log column order.
var LogFields = []string{
	LogColTimestamp,
	LogColVideoID,
	LogColSegment,
	LogColStart,
	LogColEnd,
	LogColOutput,
	LogColStatus,
	LogColError,
}

// LogEntry is one trim log line. Segment, Start and End are zero on
// row-level entries that carry no chunk.
type LogEntry struct {
	Time    time.Time
	VideoID string
	Segment int
	Start   int
	End     int
	Output  string
	Status  string
	Error   string
}

// Indexable reports whether the entry names a segment present on disk.
func (e LogEntry) Indexable() bool {
	return e.Status == StatusOK || e.Status == StatusExists
}

func (e LogEntry) row() table.Row {
	row := table.Row{
		LogColTimestamp: e.Time.Format(time.RFC3339),
		LogColVideoID:   e.VideoID,
		LogColOutput:    e.Output,
		LogColStatus:    e.Status,
		LogColError:     e.Error,
	}
	if e.Segment > 0 {
		row[LogColSegment] = strconv.Itoa(e.Segment)
		row[LogColStart] = strconv.Itoa(e.Start)
		row[LogColEnd] = strconv.Itoa(e.End)
	}
	return row
}

// WriteLog replaces path with entries.
func WriteLog(fsys afero.Fs, path string, entries []LogEntry) error {
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, e.row())
	}
	return table.WriteFile(fsys, path, LogFields, rows)
}

// ReadLog loads a trim log. Unparsable numbers and timestamps load as zero.
func ReadLog(fsys afero.Fs, path string) ([]LogEntry, error) {
	t, err := table.ReadFileRequire(fsys, path, LogColVideoID, LogColSegment, LogColStart, LogColEnd, LogColOutput, LogColStatus)
	if err != nil {
		return nil, err
	}
	out := make([]LogEntry, 0, len(t.Rows))
	for _, row := range t.Rows {
		ts, _ := time.Parse(time.RFC3339, row.Get(LogColTimestamp))
		out = append(out, LogEntry{
			Time:    ts,
			VideoID: row.Get(LogColVideoID),
			Segment: atoi(row.Get(LogColSegment)),
			Start:   atoi(row.Get(LogColStart)),
			End:     atoi(row.Get(LogColEnd)),
			Output:  row.Get(LogColOutput),
			Status:  row.Get(LogColStatus),
			Error:   row.Get(LogColError),
		})
	}
	return out, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
