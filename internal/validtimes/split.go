package validtimes

// Span is a sub-range of an interval produced by Split.
type Span struct {
	Start int
	End   int
}

// Chunk is a numbered span. Index is 1-based and runs across every interval of
// one annotation row, in interval order.
type Chunk struct {
	Start int
	End   int
	Index int
}

// Len returns the chunk length in seconds.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Split subdivides iv into consecutive spans of at most maxLen seconds.
// Each span starts gap seconds after the previous one ended. The trailing
// remainder is kept whenever it has positive length.
//
// A non-positive maxLen disables splitting; a negative gap is treated as zero.
func Split(iv Interval, maxLen, gap int) []Span {
	if iv.End <= iv.Start {
		return nil
	}
	if maxLen <= 0 {
		return []Span{{Start: iv.Start, End: iv.End}}
	}
	gap = max(gap, 0)

	var spans []Span
	for cur := iv.Start; cur < iv.End; {
		next := min(cur+maxLen, iv.End)
		spans = append(spans, Span{Start: cur, End: next})
		cur = next + gap
	}
	return spans
}

// Plan splits every interval and numbers the resulting chunks from 1.
func Plan(ivs []Interval, maxLen, gap int) []Chunk {
	var chunks []Chunk
	idx := 1
	for _, iv := range ivs {
		for _, s := range Split(iv, maxLen, gap) {
			chunks = append(chunks, Chunk{Start: s.Start, End: s.End, Index: idx})
			idx++
		}
	}
	return chunks
}
