package segment

import (
	"strings"
	"testing"
)

func TestSplitEmpty(t *testing.T) {
	res := Split(nil)
	if !res.AllDone {
		t.Fatalf("empty input: AllDone = false, want true")
	}
	if res.SplitsMade != 0 {
		t.Fatalf("empty input: SplitsMade = %d, want 0", res.SplitsMade)
	}
	if len(res.Next) != 0 {
		t.Fatalf("empty input: Next has %d segments, want 0", len(res.Next))
	}
}

func TestSplitAllSettled(t *testing.T) {
	in := []string{"hello", strings.Repeat("x", 10), ""}
	res := Split(in)
	if !res.AllDone {
		t.Fatalf("settled input: AllDone = false, want true")
	}
	if res.SplitsMade != 0 {
		t.Fatalf("settled input: SplitsMade = %d, want 0", res.SplitsMade)
	}
	if len(res.Next) != len(in) {
		t.Fatalf("settled input: Next has %d segments, want %d", len(res.Next), len(in))
	}
	for i := range in {
		if res.Next[i] != in[i] {
			t.Errorf("segment %d changed: got %q, want %q", i, res.Next[i], in[i])
		}
	}
}

func TestSplitHalves(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		first   int
		second  int
		settled bool
	}{
		{name: "even", length: 12, first: 6, second: 6},
		{name: "odd small half first", length: 11, first: 5, second: 6},
		{name: "odd larger", length: 25, first: 12, second: 13},
		{name: "just above threshold", length: 21, first: 10, second: 11},
		{name: "at threshold", length: 10, settled: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := []string{strings.Repeat("a", tt.length)}
			res := Split(in)
			if tt.settled {
				if !res.AllDone {
					t.Fatalf("length %d: AllDone = false, want true", tt.length)
				}
				return
			}
			if res.AllDone {
				t.Fatalf("length %d: AllDone = true, want false", tt.length)
			}
			if res.SplitsMade != 1 {
				t.Fatalf("length %d: SplitsMade = %d, want 1", tt.length, res.SplitsMade)
			}
			if len(res.Next) != 2 {
				t.Fatalf("length %d: Next has %d segments, want 2", tt.length, len(res.Next))
			}
			if got := len(res.Next[0]); got != tt.first {
				t.Errorf("length %d: first half is %d bytes, want %d", tt.length, got, tt.first)
			}
			if got := len(res.Next[1]); got != tt.second {
				t.Errorf("length %d: second half is %d bytes, want %d", tt.length, got, tt.second)
			}
		})
	}
}

func TestSplitOneRoundOnly(t *testing.T) {
	// A single round halves once; the new halves wait for the next round
	// even when they are still above the threshold.
	res := Split([]string{strings.Repeat("z", 40)})
	if len(res.Next) != 2 {
		t.Fatalf("Next has %d segments, want 2", len(res.Next))
	}
	for i, s := range res.Next {
		if len(s) != 20 {
			t.Errorf("segment %d is %d bytes, want 20", i, len(s))
		}
	}
}

func TestSplitOrderAndPassThrough(t *testing.T) {
	in := []string{"short", strings.Repeat("m", 24), "tiny"}
	res := Split(in)
	if res.SplitsMade != 1 {
		t.Fatalf("SplitsMade = %d, want 1", res.SplitsMade)
	}
	want := []string{"short", strings.Repeat("m", 12), strings.Repeat("m", 12), "tiny"}
	if len(res.Next) != len(want) {
		t.Fatalf("Next has %d segments, want %d", len(res.Next), len(want))
	}
	for i := range want {
		if res.Next[i] != want[i] {
			t.Errorf("segment %d: got %q, want %q", i, res.Next[i], want[i])
		}
	}
}

func TestSplitPreservesContent(t *testing.T) {
	text := strings.Repeat("the quick brown fox ", 13) // 260 bytes
	segs := []string{text}
	for round := 0; ; round++ {
		if round > 10 {
			t.Fatalf("no fixed point after %d rounds", round)
		}
		res := Split(segs)
		if joined := strings.Join(res.Next, ""); joined != text {
			t.Fatalf("round %d: content changed", round)
		}
		segs = res.Next
		if res.AllDone {
			break
		}
	}
	for i, s := range segs {
		if len(s) > MinSegmentLength {
			t.Errorf("segment %d still %d bytes after fixed point", i, len(s))
		}
	}
}

func TestSplitConvergence(t *testing.T) {
	// 320 bytes halve cleanly: 320 -> 160 -> 80 -> 40 -> 20 -> 10.
	segs := []string{strings.Repeat("s", 320)}
	wantCounts := []int{2, 4, 8, 16, 32}
	for round, want := range wantCounts {
		res := Split(segs)
		if res.AllDone {
			t.Fatalf("round %d: done early with %d segments", round, len(segs))
		}
		if len(res.Next) != want {
			t.Fatalf("round %d: %d segments, want %d", round, len(res.Next), want)
		}
		segs = res.Next
	}
	final := Split(segs)
	if !final.AllDone {
		t.Fatalf("expected fixed point after %d rounds", len(wantCounts))
	}
	if final.SplitsMade != 0 {
		t.Fatalf("fixed point made %d splits, want 0", final.SplitsMade)
	}
}

func TestMaxAndTotalLength(t *testing.T) {
	if got := MaxLength(nil); got != 0 {
		t.Errorf("MaxLength(nil) = %d, want 0", got)
	}
	segs := []string{"ab", "abcdef", "a"}
	if got := MaxLength(segs); got != 6 {
		t.Errorf("MaxLength = %d, want 6", got)
	}
	if got := TotalLength(segs); got != 9 {
		t.Errorf("TotalLength = %d, want 9", got)
	}
}
