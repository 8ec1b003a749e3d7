// Package validtimes parses human-entered "valid time" annotations and splits
// the resulting intervals into bounded segment chunks.
package validtimes

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Interval is a half-open range of whole seconds within a source clip.
// End is always strictly greater than Start.
type Interval struct {
	Start int
	End   int
}

// Len returns the interval length in seconds.
func (iv Interval) Len() int {
	return iv.End - iv.Start
}

// String renders the interval in annotation form, e.g. "1.35-2.45".
func (iv Interval) String() string {
	return FormatInterval(iv)
}

var (
	// tokenRe matches one endpoint: unbounded minutes, a period, exactly two seconds digits.
	tokenRe = regexp.MustCompile(`^\d+\.\d{2}$`)

	// rangeSepRe splits a range on its hyphen, tolerating surrounding whitespace.
	rangeSepRe = regexp.MustCompile(`\s*-\s*`)
)

// Parse converts a valid-times cell such as "0.28-0.40, 1.35-2.45" into intervals.
//
// A blank cell yields no intervals; deciding what that means (usually "the whole
// clip is valid") is the caller's job. Parsing is all-or-nothing: the first bad
// token aborts the cell with ErrMalformedTimeToken and no intervals are returned.
func Parse(cell string) ([]Interval, error) {
	if strings.TrimSpace(cell) == "" {
		return nil, nil
	}

	var out []Interval
	for _, part := range strings.Split(cell, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		iv, err := parseRange(part)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, nil
}

// parseRange parses a single "mm.ss-mm.ss" range.
func parseRange(part string) (Interval, error) {
	ends := rangeSepRe.Split(part, -1)
	if len(ends) != 2 {
		return Interval{}, fmt.Errorf("%w: %q: expected start-end", ErrMalformedTimeToken, part)
	}

	start, err := parseSeconds(ends[0])
	if err != nil {
		return Interval{}, err
	}
	end, err := parseSeconds(ends[1])
	if err != nil {
		return Interval{}, err
	}

	if end <= start {
		return Interval{}, fmt.Errorf("%w: %q: end <= start", ErrMalformedTimeToken, part)
	}
	return Interval{Start: start, End: end}, nil
}

// parseSeconds converts one "mm.ss" endpoint to seconds.
func parseSeconds(token string) (int, error) {
	token = strings.TrimSpace(token)
	if !tokenRe.MatchString(token) {
		return 0, fmt.Errorf("%w: %q: want mm.ss", ErrMalformedTimeToken, token)
	}

	mm, ss, _ := strings.Cut(token, ".")
	sec, _ := strconv.Atoi(ss)
	if sec >= 60 {
		return 0, fmt.Errorf("%w: %q: seconds >= 60", ErrMalformedTimeToken, token)
	}

	minutes, err := strconv.Atoi(mm)
	if err != nil {
		// Only reachable on overflow; the regexp guarantees digits.
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedTimeToken, token, err)
	}
	if minutes > (math.MaxInt-59)/60 {
		return 0, fmt.Errorf("%w: %q: minutes out of range", ErrMalformedTimeToken, token)
	}
	return minutes*60 + sec, nil
}

// Format renders a second offset as an "m.ss" annotation token.
// Negative input is clamped to zero.
func Format(sec int) string {
	sec = max(sec, 0)
	return fmt.Sprintf("%d.%02d", sec/60, sec%60)
}

// FormatInterval renders an interval as "m.ss-m.ss".
func FormatInterval(iv Interval) string {
	return Format(iv.Start) + "-" + Format(iv.End)
}
