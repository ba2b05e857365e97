// Package segment implements the halving engine that drives record steps.
//
// The engine is pure: one call performs one round over a segment sequence
// and reports the next sequence, the number of splits made, and whether the
// sequence was already settled. It never touches storage, never loops to a
// fixed point, and keeps byte content intact, so concatenating the output
// always reproduces the input.
//
// Repeated rounds converge: a segment of length n settles after at most
// ceil(log2(n/MinSegmentLength)) rounds, since every round halves anything
// still above the threshold.
package segment
