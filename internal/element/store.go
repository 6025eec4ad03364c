// Package element holds the element definitions of a run and resolves the
// references between them.
//
// Definitions are registered once, then the whole store is resolved on the
// first lookup: every usage of another element inside a definition is
// replaced by that element's expansion, so resolved definitions contain
// only plain markup. A definition may wrap a plain HTML tag of its own
// name; that tag is left as is.
package element

import (
	"context"
	"sync"

	"github.com/conneroisu/htmt/internal/diagnostics"
	"github.com/conneroisu/htmt/internal/errors"
	"github.com/conneroisu/htmt/internal/logging"
	"github.com/conneroisu/htmt/internal/substitute"
	"github.com/conneroisu/htmt/internal/types"
)

// Definition is a named element and its markup.
type Definition = types.Element

// Store is the set of element definitions of one run. It is safe for
// concurrent use.
type Store struct {
	mutex sync.RWMutex

	raw   map[string]string
	order []string

	dirty      bool
	resolved   map[string]*Definition
	deps       map[string][]string
	resolveErr error

	subst  *substitute.Substitutor
	logger logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithSink sets the sink that receives diagnostics found while resolving
// definitions.
func WithSink(sink diagnostics.Sink) Option {
	return func(s *Store) {
		s.subst = substitute.New(sink)
	}
}

// WithLogger sets the store's logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) {
		s.logger = logger.WithComponent("element")
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		raw:    make(map[string]string),
		subst:  substitute.New(nil),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a definition. Names are compared case-insensitively; a
// second registration of the same name fails with DuplicateElementError.
// Registering invalidates any earlier resolution.
func (s *Store) Register(name, markup string) error {
	key := types.NormalizeName(name)
	if key == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidName, "element name must not be empty")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.raw[key]; exists {
		return &errors.DuplicateElementError{Name: key}
	}
	s.raw[key] = markup
	s.order = append(s.order, key)
	s.dirty = true
	s.resolved = nil
	s.deps = nil
	s.resolveErr = nil
	return nil
}

// KnownNames returns the registered names in registration order.
func (s *Store) KnownNames() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// Known reports whether name is registered.
func (s *Store) Known(name string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	_, ok := s.raw[types.NormalizeName(name)]
	return ok
}

// Len returns the number of registered definitions.
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.order)
}

// Resolve resolves every definition if the store changed since the last
// resolution. The outcome is cached: a failed resolution keeps failing
// with the same error until the next Register.
func (s *Store) Resolve() error {
	s.mutex.RLock()
	if !s.dirty && (s.resolved != nil || s.resolveErr != nil) {
		err := s.resolveErr
		s.mutex.RUnlock()
		return err
	}
	s.mutex.RUnlock()

	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.resolveLocked()
}

func (s *Store) resolveLocked() error {
	if !s.dirty && (s.resolved != nil || s.resolveErr != nil) {
		return s.resolveErr
	}

	ctx := context.Background()
	perf := logging.StartOperation(s.logger, "resolve_elements")

	r := newResolver(s.raw, s.order, s.subst)
	err := r.resolveAll()
	s.dirty = false
	if err != nil {
		s.resolved, s.deps, s.resolveErr = nil, nil, err
		perf.EndWithError(ctx, err)
		return err
	}

	s.resolved, s.deps, s.resolveErr = r.done, r.deps, nil
	perf.End(ctx, "elements", len(s.order))
	return nil
}

// Get returns the resolved definition of name. The first call after a
// Register resolves the whole store; a resolution failure is returned to
// every caller.
func (s *Store) Get(name string) (*Definition, bool, error) {
	if err := s.Resolve(); err != nil {
		return nil, false, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	def, ok := s.resolved[types.NormalizeName(name)]
	if !ok {
		return nil, false, nil
	}
	out := *def
	return &out, true, nil
}

// GetRequired is Get with UnknownElementError for a missing name.
func (s *Store) GetRequired(name string) (*Definition, error) {
	def, ok, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &errors.UnknownElementError{Name: types.NormalizeName(name)}
	}
	return def, nil
}

// Dependencies returns, for every definition, the elements it uses
// directly in first-use order.
func (s *Store) Dependencies() (map[string][]string, error) {
	if err := s.Resolve(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	graph := make(map[string][]string, len(s.deps))
	for name, deps := range s.deps {
		graph[name] = append(make([]string, 0, len(deps)), deps...)
	}
	return graph, nil
}
