package resolve

import (
	"strings"

	"github.com/spf13/afero"

	"github.com/alnah/go-accent-corpus/internal/corpus"
)

// Issue is a resolved row whose file is absent. Line is the 1-based sheet
// line, counting the header as line 1.
type Issue struct {
	Line    int
	Path    string
	Dataset string
	VideoID string
}

// AuditResult lists rows that will not load at feature time.
type AuditResult struct {
	Absent     []Issue
	Unresolved int
}

// Audit checks every resolved path against fsys. Rows with an empty resolved
// path are counted as unresolved; rows whose resolved path does not exist are
// listed.
func Audit(fsys afero.Fs, recs []corpus.Resolved) AuditResult {
	var res AuditResult
	for i, r := range recs {
		p := strings.TrimSpace(r.SegmentFileResolved)
		if p == "" {
			res.Unresolved++
			continue
		}
		if ok, err := afero.Exists(fsys, p); err == nil && ok {
			continue
		}
		res.Absent = append(res.Absent, Issue{
			Line:    i + 2,
			Path:    p,
			Dataset: r.Dataset,
			VideoID: r.VideoID,
		})
	}
	return res
}
