// Package sync contains the reconciliation controllers that translate
// server-side state transitions (channel events and poll results) into
// store mutations, scoped to a context lifetime.
package sync

import "shared-space-client/internal/transport"

// EventChannel is the push-channel surface the controllers consume.
// *transport.Channel satisfies it.
type EventChannel interface {
	On(event string, fn transport.Handler) func()
	Emit(event string, payload any) error
	Connected() bool
}
