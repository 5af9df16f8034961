package ports

import "github.com/snjax/nook/internal/core/domain"

// Notifier delivers events to external observers. Delivery is fire-and-forget;
// a returned error is only logged by the caller.
type Notifier interface {
	Publish(ev domain.Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ev domain.Event) error

func (f NotifierFunc) Publish(ev domain.Event) error { return f(ev) }
