package backend

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dshills/configsync/internal/config/registry"
	"github.com/dshills/configsync/internal/protocol"
)

// Messages carried in failed responses.
const (
	MsgRetrieveFailed = "Failed to retrieve launcher config"
	MsgUpdateRejected = "Failed to update launcher config"
	MsgSaveFailed     = "Failed to save launcher config"
	MsgRuntimesFailed = "Failed to retrieve Java list"
)

// Scanner discovers Java runtimes.
type Scanner interface {
	Scan(ctx context.Context) ([]protocol.RuntimeInfo, error)
}

// Service is the backend command surface.
type Service struct {
	store    *FileStore
	scanner  Scanner
	registry *registry.Registry
	logger   zerolog.Logger

	// writeMu orders persist+emit so listeners see events in write order.
	writeMu sync.Mutex

	mu        sync.Mutex
	listeners map[uuid.UUID]func(protocol.PartialUpdate)
	order     []uuid.UUID
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceRegistry sets the registry used to validate updates.
func WithServiceRegistry(r *registry.Registry) ServiceOption {
	return func(s *Service) {
		s.registry = r
	}
}

// WithServiceLogger sets the logger.
func WithServiceLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a service over store and scanner.
func NewService(store *FileStore, scanner Scanner, opts ...ServiceOption) *Service {
	s := &Service{
		store:     store,
		scanner:   scanner,
		logger:    zerolog.Nop(),
		listeners: make(map[uuid.UUID]func(protocol.PartialUpdate)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = registry.NewWithDefaults()
	}
	s.logger = s.logger.With().Str("component", "backend").Logger()
	return s
}

// Start begins announcing external edits of the settings file.
func (s *Service) Start() error {
	return s.store.Watch(func(updates []protocol.PartialUpdate) {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		for _, u := range updates {
			s.logger.Info().Str("path", u.Path).Msg("external settings change")
			s.emit(u)
		}
	})
}

// Close stops the file watcher and drops every listener.
func (s *Service) Close() error {
	s.mu.Lock()
	s.listeners = make(map[uuid.UUID]func(protocol.PartialUpdate))
	s.order = nil
	s.mu.Unlock()
	return s.store.Close()
}

// RetrieveConfig returns the full effective configuration.
func (s *Service) RetrieveConfig(ctx context.Context) protocol.Response[map[string]any] {
	if err := ctx.Err(); err != nil {
		return protocol.FailureFrom[map[string]any](MsgRetrieveFailed, err)
	}
	cfg, err := s.store.Load()
	if err != nil {
		s.logger.Error().Err(err).Msg("retrieve config")
		return protocol.FailureFrom[map[string]any](MsgRetrieveFailed, err)
	}
	return protocol.Success(cfg)
}

// UpdateConfig validates, persists, and announces one change. value is
// the JSON encoding of the new value. The event is emitted before the
// response returns.
func (s *Service) UpdateConfig(ctx context.Context, path, value string) protocol.Response[struct{}] {
	if err := ctx.Err(); err != nil {
		return protocol.FailureFrom[struct{}](MsgUpdateRejected, err)
	}

	update := protocol.PartialUpdate{Path: path, Value: value}
	decoded, err := update.Decode()
	if err != nil {
		return protocol.FailureFrom[struct{}](MsgUpdateRejected, err)
	}
	if err := s.registry.Validate(path, decoded); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("update rejected")
		return protocol.FailureFrom[struct{}](MsgUpdateRejected, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.Set(path, value); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("persist update")
		return protocol.FailureFrom[struct{}](MsgSaveFailed, err)
	}
	s.logger.Debug().Str("path", path).Msg("config updated")
	s.emit(update)
	return protocol.Success(struct{}{})
}

// RetrieveRuntimeList scans for Java runtimes.
func (s *Service) RetrieveRuntimeList(ctx context.Context) protocol.Response[[]protocol.RuntimeInfo] {
	list, err := s.scanner.Scan(ctx)
	if err != nil {
		return protocol.FailureFrom[[]protocol.RuntimeInfo](MsgRuntimesFailed, err)
	}
	return protocol.Success(list)
}

// OnPartialUpdate registers fn for change events. Listeners run
// synchronously in registration order and must not block.
func (s *Service) OnPartialUpdate(fn func(protocol.PartialUpdate)) (remove func()) {
	id := uuid.New()

	s.mu.Lock()
	s.listeners[id] = fn
	s.order = append(s.order, id)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.listeners[id]; !ok {
			return
		}
		delete(s.listeners, id)
		for i, o := range s.order {
			if o == id {
				s.order = append(s.order[:i:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// Listeners returns the number of registered listeners.
func (s *Service) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

func (s *Service) emit(u protocol.PartialUpdate) {
	s.mu.Lock()
	fns := make([]func(protocol.PartialUpdate), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(u)
	}
}
