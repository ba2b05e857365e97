package steps

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rzbill/cleave/internal/results"
	"github.com/rzbill/cleave/internal/runtime"
	"github.com/rzbill/cleave/internal/step"
	logpkg "github.com/rzbill/cleave/pkg/log"
)

// Service drives step invocations and exposes the results feed to the
// transports.
type Service struct {
	rt     *runtime.Runtime
	logger logpkg.Logger

	subBufLen  int
	triggerTTL time.Duration
	triggerWG  sync.WaitGroup
}

// New creates a Steps service with default settings.
func New(rt *runtime.Runtime) *Service {
	logger := logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	logger = logger.With(logpkg.F("component", "steps"))
	return NewWithLogger(rt, logger)
}

// NewWithLogger creates a Steps service with a custom logger.
func NewWithLogger(rt *runtime.Runtime, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
		logger = logger.With(logpkg.F("component", "steps"))
	}
	return &Service{
		rt:         rt,
		logger:     logger,
		subBufLen:  256,
		triggerTTL: 30 * time.Second,
	}
}

// Close waits for triggered background steps to finish.
func (s *Service) Close() { s.triggerWG.Wait() }

// Run executes one splitting round synchronously. The outcome is appended to
// the namespace's results feed whether the round succeeds or fails; a failed
// round carries the error message and writes nothing to the record.
func (s *Service) Run(ctx context.Context, req RunRequest) (step.Result, error) {
	ns := req.Namespace
	if ns == "" {
		ns = s.rt.Config().DefaultNamespaceName
	}
	if req.ID == "" {
		return step.Result{}, fmt.Errorf("id required")
	}
	if _, err := s.rt.EnsureNamespace(ns); err != nil {
		return step.Result{}, fmt.Errorf("ensure namespace: %w", err)
	}
	feed, err := s.rt.Results(ns)
	if err != nil {
		return step.Result{}, fmt.Errorf("open results feed: %w", err)
	}

	coord := step.NewCoordinator(s.rt.Records(ns), s.logger)
	res, runErr := coord.Run(ctx, step.Request{Namespace: ns, ID: req.ID, Depth: req.Depth})

	entry := results.Entry{EntityID: req.ID, Depth: req.Depth}
	if runErr == nil {
		entry.Done = res.Done
		entry.Splits = res.Splits
		entry.SplitCount = res.SplitCount
		entry.Segments = res.SegmentsAfter
	} else {
		entry.Error = runErr.Error()
	}
	if tok, err := feed.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to record step result",
			logpkg.F("namespace", ns),
			logpkg.F("record", req.ID),
			logpkg.Err(err),
		)
	} else {
		s.logger.Debug("step result recorded",
			logpkg.F("namespace", ns),
			logpkg.F("record", req.ID),
			logpkg.F("seq", tok.Seq()),
			logpkg.F("done", entry.Done),
		)
	}

	if runErr != nil {
		return step.Result{}, runErr
	}
	return res, nil
}

// Trigger validates the target record and schedules one splitting round in
// the background. The ack returns immediately; the outcome is observable
// only on the results feed.
func (s *Service) Trigger(_ context.Context, req RunRequest) (TriggerAck, error) {
	ns := req.Namespace
	if ns == "" {
		ns = s.rt.Config().DefaultNamespaceName
	}
	if req.ID == "" {
		return TriggerAck{}, fmt.Errorf("id required")
	}
	if _, err := s.rt.EnsureNamespace(ns); err != nil {
		return TriggerAck{}, fmt.Errorf("ensure namespace: %w", err)
	}
	if _, _, err := s.rt.Records(ns).Get(req.ID); err != nil {
		return TriggerAck{}, err
	}

	run := req
	run.Namespace = ns
	s.triggerWG.Add(1)
	go func() {
		defer s.triggerWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.triggerTTL)
		defer cancel()
		if _, err := s.Run(ctx, run); err != nil {
			s.logger.Warn("triggered step failed",
				logpkg.F("namespace", run.Namespace),
				logpkg.F("record", run.ID),
				logpkg.Err(err),
			)
		}
	}()

	s.logger.Debug("step triggered",
		logpkg.F("namespace", ns),
		logpkg.F("record", req.ID),
		logpkg.F("depth", req.Depth),
	)
	return TriggerAck{EntityID: req.ID, Accepted: true}, nil
}

// Results reads one batch from the results feed. For forward scans the
// returned token resumes after the batch; for reverse scans it addresses the
// next older entry and is zero once the scan is exhausted.
func (s *Service) Results(_ context.Context, req ResultsRequest) ([]ResultItem, results.Token, error) {
	ns := req.Namespace
	if ns == "" {
		ns = s.rt.Config().DefaultNamespaceName
	}
	feed, err := s.rt.Results(ns)
	if err != nil {
		return nil, results.Token{}, fmt.Errorf("open results feed: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	start := resolveStart(feed, req.Group, req.From, req.StartToken)
	items, next := feed.Read(results.ReadOptions{Start: start, Limit: limit, Reverse: req.Reverse})

	out := make([]ResultItem, 0, len(items))
	for _, it := range items {
		out = append(out, ResultItem{Token: results.TokenFromSeq(it.Seq), Entry: it.Entry})
	}
	if !req.Reverse {
		if len(items) > 0 {
			next = results.TokenFromSeq(items[len(items)-1].Seq + 1)
		} else {
			next = start
		}
	}
	return out, next, nil
}

// CommitCursor records a consumer group's progress through the feed.
func (s *Service) CommitCursor(_ context.Context, ns, group string, tok results.Token) error {
	if ns == "" {
		ns = s.rt.Config().DefaultNamespaceName
	}
	if group == "" {
		return fmt.Errorf("group required")
	}
	feed, err := s.rt.Results(ns)
	if err != nil {
		return fmt.Errorf("open results feed: %w", err)
	}
	return feed.CommitCursor(group, tok)
}

// Cursor returns a group's committed position; ok is false when the group
// never committed.
func (s *Service) Cursor(_ context.Context, ns, group string) (results.Token, bool, error) {
	if ns == "" {
		ns = s.rt.Config().DefaultNamespaceName
	}
	if group == "" {
		return results.Token{}, false, fmt.Errorf("group required")
	}
	feed, err := s.rt.Results(ns)
	if err != nil {
		return results.Token{}, false, fmt.Errorf("open results feed: %w", err)
	}
	tok, ok := feed.GetCursor(group)
	return tok, ok, nil
}

// Subscribe tails the results feed into sink until the sink's context ends
// or the delivery limit is reached. Filter compile errors reject the
// subscribe; per-entry evaluation errors skip the entry.
func (s *Service) Subscribe(_ context.Context, ns string, startToken []byte, opts SubscribeOptions, sink SubscribeSink) error {
	if ns == "" {
		ns = s.rt.Config().DefaultNamespaceName
	}
	if _, err := s.rt.EnsureNamespace(ns); err != nil {
		return fmt.Errorf("ensure namespace: %w", err)
	}
	feed, err := s.rt.Results(ns)
	if err != nil {
		return fmt.Errorf("open results feed: %w", err)
	}

	cfilter, err := newCELFilter(opts.Filter)
	if err != nil {
		return err
	}

	// Per-subscriber async writer to decouple slow transports.
	outCh := make(chan ResultItem, s.subBufLen)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case it, ok := <-outCh:
				if !ok {
					return
				}
				_ = sink.Send(it)
				_ = sink.Flush()
			case <-sink.Context().Done():
				return
			}
		}
	}()
	defer func() { close(outCh); wg.Wait() }()

	start := resolveStart(feed, opts.Group, opts.From, startToken)
	delivered := 0
	for {
		if err := sink.Context().Err(); err != nil {
			return err
		}
		if opts.Limit > 0 && delivered >= opts.Limit {
			return nil
		}
		items, _ := feed.Read(results.ReadOptions{Start: start, Limit: 128})
		if len(items) == 0 {
			if !feed.WaitForAppend(50 * time.Millisecond) {
				if err := sink.Context().Err(); err != nil {
					return err
				}
				continue
			}
			continue
		}
		batch := 0
		for _, it := range items {
			if !cfilter.Eval(it.Entry) {
				continue
			}
			if opts.Limit > 0 && delivered >= opts.Limit {
				return nil
			}
			select {
			case outCh <- ResultItem{Token: results.TokenFromSeq(it.Seq), Entry: it.Entry}:
			case <-sink.Context().Done():
				return sink.Context().Err()
			}
			delivered++
			batch++
		}
		start = results.TokenFromSeq(items[len(items)-1].Seq + 1)
		s.logger.With(
			logpkg.Str("namespace", ns),
			logpkg.Int("batch_n", batch),
			logpkg.Int("q_depth", len(outCh)),
			logpkg.Int("q_cap", cap(outCh)),
		).Debug("results.deliver")
	}
}

// resolveStart picks the starting position: an explicit token wins, then the
// group's committed cursor, then From.
func resolveStart(feed *results.Feed, group, from string, startToken []byte) results.Token {
	if len(startToken) == 8 {
		var t results.Token
		copy(t[:], startToken)
		return t
	}
	if group != "" {
		if cur, ok := feed.GetCursor(group); ok {
			return results.TokenFromSeq(cur.Seq() + 1)
		}
	}
	if from == FromEnd {
		return results.TokenFromSeq(feed.LastSeq() + 1)
	}
	return results.Token{}
}
