package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rzbill/cleave/internal/runtime"
	"github.com/rzbill/cleave/internal/server/http/controllers"
	recordsvc "github.com/rzbill/cleave/internal/services/records"
	stepsvc "github.com/rzbill/cleave/internal/services/steps"
	logpkg "github.com/rzbill/cleave/pkg/log"
)

// Server owns the HTTP server instance and runtime.
type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	lis    net.Listener
	logger logpkg.Logger
}

// New constructs a server with fresh service instances.
func New(rt *runtime.Runtime, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	recordsSvc := recordsvc.NewWithLogger(rt, logger.With(logpkg.Component("records")))
	stepsSvc := stepsvc.NewWithLogger(rt, logger.With(logpkg.Component("steps")))
	return NewWithService(rt, recordsSvc, stepsSvc, logger)
}

// NewWithService constructs a server around shared service instances so the
// HTTP and gRPC transports observe the same state.
func NewWithService(rt *runtime.Runtime, recordsSvc *recordsvc.Service, stepsSvc *stepsvc.Service, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	mux := http.NewServeMux()
	registry := controllers.NewControllerRegistry(rt, recordsSvc, stepsSvc)
	registry.RegisterAllRoutes(mux)
	return &Server{rt: rt, srv: &http.Server{Handler: cors(mux)}, logger: logger.With(logpkg.Component("http"))}
}

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Close closes the listener; in-flight requests are abandoned.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
