// Package notify implements the synchronous activity-logged broadcast.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/septivank/device-activity-log/internal/db"
	"go.uber.org/zap"
)

// Event is delivered to listeners after an activity has been persisted
type Event struct {
	Activity      db.Activity `json:"activity"`
	EnvironmentID string      `json:"environment_id"`
}

// Listener receives activity events. A returned error is logged and otherwise ignored.
type Listener func(ctx context.Context, evt Event) error

// Subscription identifies a registered listener
type Subscription uint64

type entry struct {
	id       Subscription
	listener Listener
}

// Notifier fans events out to listeners in registration order
type Notifier struct {
	mu        sync.Mutex
	nextID    Subscription
	listeners []entry
	closed    bool
	logger    *zap.Logger
}

// NewNotifier creates an empty notifier
func NewNotifier(logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{logger: logger}
}

// Subscribe registers l and returns a handle for Unsubscribe.
// Subscribing to a closed notifier returns 0 and registers nothing.
func (n *Notifier) Subscribe(l Listener) Subscription {
	if l == nil {
		return 0
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return 0
	}
	n.nextID++
	n.listeners = append(n.listeners, entry{id: n.nextID, listener: l})
	return n.nextID
}

// Unsubscribe removes the listener registered under id and reports whether it was found
func (n *Notifier) Unsubscribe(id Subscription) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, e := range n.listeners {
		if e.id == id {
			n.listeners = append(n.listeners[:i:i], n.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered listeners
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}

// Publish invokes every listener synchronously. Listener errors and panics
// are logged and never stop delivery to the remaining listeners.
func (n *Notifier) Publish(ctx context.Context, evt Event) {
	n.mu.Lock()
	snapshot := make([]entry, len(n.listeners))
	copy(snapshot, n.listeners)
	n.mu.Unlock()

	for _, e := range snapshot {
		if err := n.deliver(ctx, e.listener, evt); err != nil {
			n.logger.Error("activity listener failed",
				zap.Error(err),
				zap.Uint64("subscription", uint64(e.id)),
				zap.String("activity_id", evt.Activity.ID),
				zap.String("environment_id", evt.EnvironmentID),
			)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, l Listener, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()
	return l(ctx, evt)
}

// Close drops all listeners; later Subscribe calls are ignored
func (n *Notifier) Close() {
	n.mu.Lock()
	n.listeners = nil
	n.closed = true
	n.mu.Unlock()
}
