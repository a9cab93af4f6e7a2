// Package channel links the configuration core to a settings backend:
// request/response for full retrieval, single-path update, and runtime
// discovery, plus a subscription for backend-originated change events.
//
// The channel never retries. A failed Push is reported to the caller and
// nothing else happens.
package channel

import (
	"context"
	"errors"

	"github.com/dshills/configsync/internal/protocol"
)

// ErrClosed is returned by operations on a closed channel.
var ErrClosed = errors.New("channel closed")

// Handler receives partial-update events in delivery order.
type Handler func(update protocol.PartialUpdate)

// Unsubscribe releases a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// Channel is the core's view of the backend.
type Channel interface {
	// FetchAll retrieves the full configuration.
	FetchAll(ctx context.Context) (map[string]any, error)

	// Push asks the backend to store value at path. Success does not imply
	// the event for this change has been delivered yet.
	Push(ctx context.Context, path string, value any) error

	// Subscribe registers h for partial-update events.
	Subscribe(h Handler) (Unsubscribe, error)

	// FetchRuntimes retrieves the installed Java runtimes.
	FetchRuntimes(ctx context.Context) ([]protocol.RuntimeInfo, error)
}

// Backend is the command surface a settings backend exposes.
type Backend interface {
	RetrieveConfig(ctx context.Context) protocol.Response[map[string]any]
	UpdateConfig(ctx context.Context, path, value string) protocol.Response[struct{}]
	RetrieveRuntimeList(ctx context.Context) protocol.Response[[]protocol.RuntimeInfo]
	OnPartialUpdate(fn func(protocol.PartialUpdate)) (remove func())
}
