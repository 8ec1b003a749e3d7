// Package report accumulates row-level skip events for a pipeline run so
// operators can judge data quality from counts and a few examples instead of
// one log line per row.
package report

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
)

// DefaultExamples is the number of examples kept per reason.
const DefaultExamples = 10

// Report counts skipped rows by reason and keeps the first few examples of each.
// It is safe for concurrent use.
type Report struct {
	stage string
	limit int

	mu       sync.Mutex
	counts   map[string]int
	examples map[string][]string
}

// New creates a Report for stage keeping up to limit examples per reason.
// A non-positive limit uses DefaultExamples.
func New(stage string, limit int) *Report {
	if limit <= 0 {
		limit = DefaultExamples
	}
	return &Report{
		stage:    stage,
		limit:    limit,
		counts:   make(map[string]int),
		examples: make(map[string][]string),
	}
}

// Stage returns the stage name given to New.
func (r *Report) Stage() string {
	return r.stage
}

// Skip records one skipped row.
func (r *Report) Skip(reason, example string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[reason]++
	if len(r.examples[reason]) < r.limit {
		r.examples[reason] = append(r.examples[reason], example)
	}
}

// Count returns the number of rows skipped for reason.
func (r *Report) Count(reason string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[reason]
}

// Total returns the number of rows skipped for any reason.
func (r *Report) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.counts {
		n += c
	}
	return n
}

// Reasons returns every recorded reason in sorted order.
func (r *Report) Reasons() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.counts))
	for k := range r.counts {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Examples returns the retained examples for reason.
func (r *Report) Examples(reason string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.examples[reason])
}

// String renders the report as indented text.
func (r *Report) String() string {
	var b strings.Builder
	_, _ = r.WriteTo(&b)
	return b.String()
}

// WriteTo writes a human-readable summary to w.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	total := r.Total()
	fmt.Fprintf(&b, "%s: %d row(s) skipped\n", r.stage, total)
	for _, reason := range r.Reasons() {
		fmt.Fprintf(&b, "  %s: %d\n", reason, r.Count(reason))
		for _, ex := range r.Examples(reason) {
			fmt.Fprintf(&b, "    - %s\n", ex)
		}
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
