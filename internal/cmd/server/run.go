package serverrun

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	cfgpkg "github.com/rzbill/cleave/internal/config"
	"github.com/rzbill/cleave/internal/runtime"
	grpcserver "github.com/rzbill/cleave/internal/server/grpc"
	httpserver "github.com/rzbill/cleave/internal/server/http"
	recordsvc "github.com/rzbill/cleave/internal/services/records"
	stepsvc "github.com/rzbill/cleave/internal/services/steps"
	pebblestore "github.com/rzbill/cleave/internal/storage/pebble"
	logpkg "github.com/rzbill/cleave/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := func() string { return getenv(key) }(); v != "" {
		return v
	}
	return def
}

// small wrapper to allow testing; replaced by os.Getenv at build time
var getenv = func(key string) string { return os.Getenv(key) }

type Options struct {
	DataDir       string
	GRPCAddr      string
	HTTPAddr      string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

// Run starts gRPC and HTTP servers and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	// Be robust to callers that don't pass a signal-aware context
	// or if signal delivery needs to be observed here. We layer a
	// local signal context over the provided one.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	storeDir := filepath.Join(opts.DataDir, "store")
	rt, err := runtime.Open(runtime.Options{DataDir: storeDir, Fsync: opts.Fsync, FsyncInterval: opts.FsyncInterval, Config: opts.Config})
	if err != nil {
		return err
	}
	defer rt.Close()

	// Build process-wide logger using env/ApplyConfig; defaults: level=info, format=text
	cfg := &logpkg.Config{
		Level:  getenvDefault("CLEAVE_LOG_LEVEL", "info"),
		Format: getenvDefault("CLEAVE_LOG_FORMAT", "text"),
	}
	procLogger, err := logpkg.ApplyConfig(cfg)
	if err != nil {
		// Fallback to a sane default
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(cfg.Level); e == nil {
			lvl = l
		}
		procLogger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}

	// Redirect stdlib logs (e.g., Pebble) to our logger
	logpkg.RedirectStdLog(procLogger)

	sweepMs := getenvDefault("CLEAVE_SWEEP_MS", "60000")

	// Log startup with unified logger/format and feed tunables
	procLogger.Info("Starting cleave server",
		logpkg.Str("grpc", opts.GRPCAddr),
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("level", cfg.Level),
		logpkg.Str("format", cfg.Format),
		logpkg.Str("sweep_ms", sweepMs),
	)

	// Trim result feeds past their retention window in the background.
	if ms, err := strconv.Atoi(sweepMs); err == nil && ms > 0 {
		rt.StartResultsSweeper(time.Duration(ms) * time.Millisecond)
	}

	// Create shared service instances for both transports
	recordsSvc := recordsvc.NewWithLogger(rt, procLogger.With(logpkg.Component("records")))
	stepsSvc := stepsvc.NewWithLogger(rt, procLogger.With(logpkg.Component("steps")))
	gsrv := grpcserver.New(rt, procLogger)
	hsrv := httpserver.NewWithService(rt, recordsSvc, stepsSvc, procLogger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gsrv.ListenAndServe(sctx, opts.GRPCAddr); err != nil && sctx.Err() == nil {
			log.Printf("grpc error: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, opts.HTTPAddr); err != nil && sctx.Err() == nil {
			log.Printf("http error: %v", err)
		}
	}()

	<-sctx.Done()
	// Initiate graceful shutdown of servers before closing the runtime/DB to avoid races.
	gsrv.Close()
	hsrv.Close()
	wg.Wait()
	// Let in-flight trigger work drain before the store goes away.
	stepsSvc.Close()
	return nil
}
