// Package step coordinates single halving steps over stored records.
//
// A step is one self-contained invocation: load the record, derive its
// working segments, run one split round, and either report done (without
// writing) or persist the next sequence behind a freshly read version
// token. The coordinator keeps no state between invocations, so an
// external driver can re-invoke it until it reports done, supplying a
// recursion depth that is stamped into the record as audit metadata.
//
// Fetch errors, malformed state and version conflicts all fail the
// invocation; a failed step never writes.
package step
