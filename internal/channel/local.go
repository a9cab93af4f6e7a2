package channel

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dshills/configsync/internal/protocol"
)

// Local is a Channel backed by an in-process Backend.
type Local struct {
	backend Backend
	logger  zerolog.Logger

	mu     sync.Mutex
	subs   map[uuid.UUID]func()
	closed bool
}

// LocalOption configures a Local channel.
type LocalOption func(*Local)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) LocalOption {
	return func(l *Local) {
		l.logger = logger
	}
}

// NewLocal wraps backend.
func NewLocal(backend Backend, opts ...LocalOption) *Local {
	l := &Local{
		backend: backend,
		logger:  zerolog.Nop(),
		subs:    make(map[uuid.UUID]func()),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With().Str("component", "channel").Logger()
	return l
}

// FetchAll implements Channel.
func (l *Local) FetchAll(ctx context.Context) (map[string]any, error) {
	if err := l.ready(ctx); err != nil {
		return nil, err
	}
	resp := l.backend.RetrieveConfig(ctx)
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("retrieve config: %w", err)
	}
	if resp.Data == nil {
		return map[string]any{}, nil
	}
	return resp.Data, nil
}

// Push implements Channel.
func (l *Local) Push(ctx context.Context, path string, value any) error {
	if err := l.ready(ctx); err != nil {
		return err
	}
	update, err := protocol.EncodeUpdate(path, value)
	if err != nil {
		return err
	}
	resp := l.backend.UpdateConfig(ctx, update.Path, update.Value)
	if err := resp.Err(); err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	return nil
}

// FetchRuntimes implements Channel.
func (l *Local) FetchRuntimes(ctx context.Context) ([]protocol.RuntimeInfo, error) {
	if err := l.ready(ctx); err != nil {
		return nil, err
	}
	resp := l.backend.RetrieveRuntimeList(ctx)
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("retrieve runtime list: %w", err)
	}
	if resp.Data == nil {
		return []protocol.RuntimeInfo{}, nil
	}
	return resp.Data, nil
}

// Subscribe implements Channel.
func (l *Local) Subscribe(h Handler) (Unsubscribe, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}

	id := uuid.New()
	l.subs[id] = l.backend.OnPartialUpdate(h)
	l.logger.Debug().Str("subscription", id.String()).Msg("subscribed")

	var once sync.Once
	return func() {
		once.Do(func() {
			l.release(id)
		})
	}, nil
}

// subscriptions returns the number of live subscriptions.
func (l *Local) subscriptions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

// Close releases every subscription. Later calls fail with ErrClosed.
func (l *Local) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	subs := l.subs
	l.subs = make(map[uuid.UUID]func())
	l.mu.Unlock()

	for _, remove := range subs {
		remove()
	}
	return nil
}

func (l *Local) release(id uuid.UUID) {
	l.mu.Lock()
	remove, ok := l.subs[id]
	delete(l.subs, id)
	l.mu.Unlock()

	if ok {
		remove()
		l.logger.Debug().Str("subscription", id.String()).Msg("unsubscribed")
	}
}

func (l *Local) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	return nil
}
