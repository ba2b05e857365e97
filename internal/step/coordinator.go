package step

import (
	"context"
	"fmt"

	"github.com/rzbill/cleave/internal/record"
	"github.com/rzbill/cleave/internal/segment"
	logpkg "github.com/rzbill/cleave/pkg/log"
)

// Request identifies one step invocation. Depth is audit metadata supplied
// by the driver; it never influences splitting or termination.
type Request struct {
	Namespace string
	ID        string
	Depth     int64
}

// Result is the outcome of one completed step. EntityID and Done form the
// step result proper; the counters feed logs and the result feed.
type Result struct {
	EntityID       string
	Done           bool
	Splits         int
	SplitCount     int64
	SegmentsBefore int
	SegmentsAfter  int
}

// Store is the record access a step needs: a point read, a fresh version,
// and a conditional write.
type Store interface {
	Get(id string) (record.Props, record.Token, error)
	Version(id string) (record.Token, error)
	Update(ctx context.Context, id string, tok record.Token, props record.Props) (record.Token, error)
}

// Coordinator executes single halving steps against a record store. It is
// stateless between invocations; everything it needs is read back from the
// store each time.
type Coordinator struct {
	store Store
	log   logpkg.Logger
}

// NewCoordinator builds a Coordinator over the given store.
func NewCoordinator(store Store, logger logpkg.Logger) *Coordinator {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	return &Coordinator{store: store, log: logger.With(logpkg.F("component", "step"))}
}

// Run performs one halving step for the requested record.
//
// The step loads the record, derives the working segments, runs one split
// round, and either stops (already settled, nothing written) or persists
// the next segment sequence under a freshly read version token. Any fetch
// failure, decode failure, or rejected conditional write fails the whole
// step; a failed step never writes and never pretends it did.
func (c *Coordinator) Run(ctx context.Context, req Request) (Result, error) {
	log := c.log.With(
		logpkg.F("namespace", req.Namespace),
		logpkg.F("record", req.ID),
		logpkg.F("depth", req.Depth),
	)
	log.Info("step started")

	props, _, err := c.store.Get(req.ID)
	if err != nil {
		return Result{}, fmt.Errorf("fetch record %s: %w", req.ID, err)
	}
	segs := workingSegments(props)
	log.Debug("state loaded",
		logpkg.F("segments", len(segs)),
		logpkg.F("max_len", segment.MaxLength(segs)),
	)

	round := segment.Split(segs)
	if round.AllDone {
		log.Info("step settled",
			logpkg.F("segments", len(segs)),
			logpkg.F("split_count", props.SplitCount),
		)
		return Result{
			EntityID:       req.ID,
			Done:           true,
			SplitCount:     props.SplitCount,
			SegmentsBefore: len(segs),
			SegmentsAfter:  len(segs),
		}, nil
	}

	// Re-read the version right before the conditional write to shrink the
	// window between decision and commit.
	tok, err := c.store.Version(req.ID)
	if err != nil {
		return Result{}, fmt.Errorf("fetch version %s: %w", req.ID, err)
	}
	next := record.Props{
		Segments:       round.Next,
		SplitCount:     props.SplitCount + 1,
		LastSplitDepth: req.Depth,
	}
	if _, err := c.store.Update(ctx, req.ID, tok, next); err != nil {
		return Result{}, fmt.Errorf("write segments %s: %w", req.ID, err)
	}

	log.Info("step split",
		logpkg.F("segments_before", len(segs)),
		logpkg.F("segments_after", len(round.Next)),
		logpkg.F("splits", round.SplitsMade),
		logpkg.F("split_count", next.SplitCount),
	)
	return Result{
		EntityID:       req.ID,
		Done:           false,
		Splits:         round.SplitsMade,
		SplitCount:     next.SplitCount,
		SegmentsBefore: len(segs),
		SegmentsAfter:  len(round.Next),
	}, nil
}

// workingSegments derives the sequence a step operates on: persisted
// segments when present, otherwise the whole text as a single segment. A
// record with neither yields an empty sequence, which is vacuously done.
func workingSegments(p record.Props) []string {
	if len(p.Segments) > 0 {
		return p.Segments
	}
	if p.Text == "" {
		return nil
	}
	return []string{p.Text}
}
