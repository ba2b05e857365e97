package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rzbill/cleave/internal/namespace"
	"github.com/rzbill/cleave/internal/record"
	"github.com/rzbill/cleave/internal/runtime"
	logpkg "github.com/rzbill/cleave/pkg/log"
)

// ErrTextTooLarge rejects writes whose text exceeds the namespace limit.
var ErrTextTooLarge = errors.New("text exceeds namespace limit")

// Service provides record operations over the runtime's per-namespace stores.
type Service struct {
	rt     *runtime.Runtime
	logger logpkg.Logger
}

// New creates a Records service with default settings.
func New(rt *runtime.Runtime) *Service {
	logger := logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	logger = logger.With(logpkg.F("component", "records"))
	return NewWithLogger(rt, logger)
}

// NewWithLogger creates a Records service with a custom logger.
func NewWithLogger(rt *runtime.Runtime, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
		logger = logger.With(logpkg.F("component", "records"))
	}
	return &Service{rt: rt, logger: logger}
}

// EnsureNamespace creates the namespace metadata if missing and returns the
// effective meta.
func (s *Service) EnsureNamespace(_ context.Context, ns string) (namespace.Meta, error) {
	if ns == "" {
		ns = s.rt.Config().DefaultNamespaceName
	}
	return s.rt.EnsureNamespace(ns)
}

// ListNamespaces returns all namespaces known to the node.
func (s *Service) ListNamespaces(_ context.Context) ([]string, error) {
	metas, err := s.rt.Namespaces()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(metas))
	for _, m := range metas {
		names = append(names, m.Name)
	}
	return names, nil
}

// Create stores a new record holding the given text. When id is empty a
// random one is generated. Returns the effective id and the initial version
// token.
func (s *Service) Create(ctx context.Context, ns, id, text string) (string, record.Token, error) {
	if ns == "" {
		ns = s.rt.Config().DefaultNamespaceName
	}
	meta, err := s.rt.EnsureNamespace(ns)
	if err != nil {
		return "", record.Token{}, fmt.Errorf("ensure namespace: %w", err)
	}
	if len(text) > meta.TextMaxBytes {
		return "", record.Token{}, fmt.Errorf("%w: %d > %d bytes", ErrTextTooLarge, len(text), meta.TextMaxBytes)
	}
	if id == "" {
		id = uuid.NewString()
	}

	tok, err := s.rt.Records(ns).Create(ctx, id, record.Props{Text: text})
	if err != nil {
		return "", record.Token{}, err
	}

	s.logger.Debug("created record",
		logpkg.F("namespace", ns),
		logpkg.F("record", id),
		logpkg.F("text_bytes", len(text)),
	)
	return id, tok, nil
}

// Get returns the record's properties and its current version token.
func (s *Service) Get(_ context.Context, ns, id string) (record.Props, record.Token, error) {
	if ns == "" {
		ns = s.rt.Config().DefaultNamespaceName
	}
	return s.rt.Records(ns).Get(id)
}

// SetText replaces the record's state with fresh, unsplit text. Segments and
// split counters reset; a concurrent writer surfaces as record.ErrConflict.
func (s *Service) SetText(ctx context.Context, ns, id, text string) (record.Token, error) {
	if ns == "" {
		ns = s.rt.Config().DefaultNamespaceName
	}
	meta, err := s.rt.EnsureNamespace(ns)
	if err != nil {
		return record.Token{}, fmt.Errorf("ensure namespace: %w", err)
	}
	if len(text) > meta.TextMaxBytes {
		return record.Token{}, fmt.Errorf("%w: %d > %d bytes", ErrTextTooLarge, len(text), meta.TextMaxBytes)
	}

	store := s.rt.Records(ns)
	tok, err := store.Version(id)
	if err != nil {
		return record.Token{}, err
	}
	next, err := store.Update(ctx, id, tok, record.Props{Text: text})
	if err != nil {
		return record.Token{}, err
	}

	s.logger.Debug("reset record text",
		logpkg.F("namespace", ns),
		logpkg.F("record", id),
		logpkg.F("text_bytes", len(text)),
	)
	return next, nil
}

// List returns up to limit records in id order. limit <= 0 means no limit.
func (s *Service) List(_ context.Context, ns string, limit int) ([]record.Entry, error) {
	if ns == "" {
		ns = s.rt.Config().DefaultNamespaceName
	}
	if limit < 0 {
		limit = 0
	}
	return s.rt.Records(ns).List(record.ListOptions{Limit: limit})
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *Service) Delete(ctx context.Context, ns, id string) error {
	if ns == "" {
		ns = s.rt.Config().DefaultNamespaceName
	}
	if err := s.rt.Records(ns).Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Debug("deleted record",
		logpkg.F("namespace", ns),
		logpkg.F("record", id),
	)
	return nil
}
