package fake

import (
	"sync"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/ports"
)

var _ ports.Notifier = (*Notifier)(nil)

// Notifier records every published event.
type Notifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (n *Notifier) Publish(ev domain.Event) error {
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
	return nil
}

// Events returns recorded events of type t, or all events if t is "".
func (n *Notifier) Events(t domain.EventType) []domain.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.Event
	for _, ev := range n.events {
		if t == "" || ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// Statuses returns the sequence of status notifications for podID.
func (n *Notifier) Statuses(podID string) []domain.PodStatus {
	var out []domain.PodStatus
	for _, ev := range n.Events(domain.EventStatusChanged) {
		if ev.PodID == podID {
			out = append(out, ev.Payload.(domain.StatusChanged).Status)
		}
	}
	return out
}
