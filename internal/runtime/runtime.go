package runtime

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	cfgpkg "github.com/rzbill/cleave/internal/config"
	"github.com/rzbill/cleave/internal/namespace"
	"github.com/rzbill/cleave/internal/record"
	"github.com/rzbill/cleave/internal/results"
	pebblestore "github.com/rzbill/cleave/internal/storage/pebble"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

// Runtime wires storage, config, and facades for a single-node instance.
// Record stores and result feeds are shared per namespace so conditional
// writes serialize and feed waiters observe every append.
type Runtime struct {
	db     *pebblestore.DB
	config cfgpkg.Config

	mu      sync.Mutex
	records map[string]*record.Store
	results map[string]*results.Feed

	sweepStop chan struct{}
	sweepWG   sync.WaitGroup
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
	})
	if err != nil {
		return nil, err
	}
	rt := &Runtime{
		db:      db,
		config:  opts.Config,
		records: make(map[string]*record.Store),
		results: make(map[string]*results.Feed),
	}
	return rt, nil
}

// Close stops background work and closes underlying resources.
func (r *Runtime) Close() error {
	r.StopResultsSweeper()
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	it.Close()
	return nil
}

// EnsureNamespace creates a namespace record if absent, seeding limits
// from the runtime config.
func (r *Runtime) EnsureNamespace(name string) (namespace.Meta, error) {
	return namespace.EnsureNamespaceWith(r.db, name, namespace.Meta{
		TextMaxBytes:    r.config.RecordDefaults.TextMaxBytes,
		ResultsRetainMs: r.config.RecordDefaults.ResultsRetainMs,
	})
}

// Namespaces lists known namespace metas in name order.
func (r *Runtime) Namespaces() ([]namespace.Meta, error) {
	return namespace.List(r.db)
}

// Records returns the shared record store for a namespace.
func (r *Runtime) Records(ns string) *record.Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.records[ns]
	if !ok {
		s = record.OpenStore(r.db, ns)
		r.records[ns] = s
	}
	return s
}

// Results returns the shared result feed for a namespace.
func (r *Runtime) Results(ns string) (*results.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.results[ns]
	if !ok {
		var err error
		f, err = results.OpenFeed(r.db, ns)
		if err != nil {
			return nil, err
		}
		r.results[ns] = f
	}
	return f, nil
}

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// StartResultsSweeper runs a background loop that trims each namespace's
// result feed past its retention window.
func (r *Runtime) StartResultsSweeper(interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sweepStop != nil {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	stop := make(chan struct{})
	r.sweepStop = stop
	r.sweepWG.Add(1)
	go func() {
		defer r.sweepWG.Done()
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		for {
			select {
			case <-stop:
				return
			case <-time.After(interval + time.Duration(rng.Int63n(int64(interval/10+1)))):
				r.sweepResults()
			}
		}
	}()
}

// StopResultsSweeper stops the background sweeper and waits for it to exit.
func (r *Runtime) StopResultsSweeper() {
	r.mu.Lock()
	stop := r.sweepStop
	r.sweepStop = nil
	r.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	r.sweepWG.Wait()
}

func (r *Runtime) sweepResults() {
	metas, err := namespace.List(r.db)
	if err != nil {
		return
	}
	now := time.Now().UnixMilli()
	for _, m := range metas {
		retain := m.ResultsRetainMs
		if retain <= 0 {
			retain = namespace.Defaults().ResultsRetainMs
		}
		feed, err := r.Results(m.Name)
		if err != nil {
			continue
		}
		_, _ = feed.TrimOlderThan(context.Background(), now-retain, 1024, 0)
	}
}
