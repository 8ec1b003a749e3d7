package report_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/alnah/go-accent-corpus/internal/report"
)

func TestReport_CountsAndLimitsExamples(t *testing.T) {
	t.Parallel()

	r := report.New("trim", 2)
	r.Skip("missing_audio", "a")
	r.Skip("missing_audio", "b")
	r.Skip("missing_audio", "c")
	r.Skip("bad_times", "x")

	if got := r.Total(); got != 4 {
		t.Errorf("Total() = %d, want 4", got)
	}
	if got := r.Count("missing_audio"); got != 3 {
		t.Errorf("Count(missing_audio) = %d, want 3", got)
	}
	if got := r.Examples("missing_audio"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Examples(missing_audio) = %v, want [a b]", got)
	}
	if got := r.Reasons(); len(got) != 2 || got[0] != "bad_times" {
		t.Errorf("Reasons() = %v, want sorted", got)
	}

	out := r.String()
	for _, want := range []string{"trim: 4 row(s) skipped", "missing_audio: 3", "- c"} {
		if want == "- c" {
			if strings.Contains(out, want) {
				t.Errorf("String() contains dropped example %q", want)
			}
			continue
		}
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q in:\n%s", want, out)
		}
	}
}

func TestReport_DefaultLimit(t *testing.T) {
	t.Parallel()

	r := report.New("x", 0)
	for range report.DefaultExamples + 5 {
		r.Skip("r", "e")
	}
	if got := len(r.Examples("r")); got != report.DefaultExamples {
		t.Errorf("examples kept = %d, want %d", got, report.DefaultExamples)
	}
}

func TestReport_ConcurrentSkip(t *testing.T) {
	t.Parallel()

	r := report.New("features", 3)
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Skip("mfcc_error", "row")
		}()
	}
	wg.Wait()
	if got := r.Count("mfcc_error"); got != 50 {
		t.Errorf("Count() = %d, want 50", got)
	}
}
