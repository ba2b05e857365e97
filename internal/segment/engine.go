package segment

// MinSegmentLength is the fixed threshold, in bytes, at or below which a
// segment is settled and is never split again.
const MinSegmentLength = 10

// Result is the outcome of one split round.
type Result struct {
	// Next is the segment sequence after the round, in original order.
	Next []string
	// SplitsMade counts segments that were split this round.
	SplitsMade int
	// AllDone reports whether every input segment was already settled.
	// When true, Next is the input unchanged and SplitsMade is zero.
	AllDone bool
}

// Split performs one round over segments: every segment longer than
// MinSegmentLength is cut into two contiguous halves at floor(len/2), with
// the first half taking the smaller share on odd lengths. Segments at or
// below the threshold pass through unchanged. Halves created during the
// round are not re-split until the next round.
//
// An empty input is vacuously done.
func Split(segments []string) Result {
	if allSettled(segments) {
		return Result{Next: segments, AllDone: true}
	}

	next := make([]string, 0, len(segments)*2)
	splits := 0
	for _, s := range segments {
		if len(s) > MinSegmentLength {
			mid := len(s) / 2
			next = append(next, s[:mid], s[mid:])
			splits++
			continue
		}
		next = append(next, s)
	}
	return Result{Next: next, SplitsMade: splits}
}

// MaxLength returns the length of the longest segment, or zero for an empty
// sequence.
func MaxLength(segments []string) int {
	max := 0
	for _, s := range segments {
		if len(s) > max {
			max = len(s)
		}
	}
	return max
}

// TotalLength returns the summed length of all segments.
func TotalLength(segments []string) int {
	total := 0
	for _, s := range segments {
		total += len(s)
	}
	return total
}

func allSettled(segments []string) bool {
	for _, s := range segments {
		if len(s) > MinSegmentLength {
			return false
		}
	}
	return true
}
