// Package events fans pod notifications out to any number of subscribers.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/ports"
)

const DefaultBufferSize = 256

var _ ports.Notifier = (*Broker)(nil)

// Broker implements ports.Notifier. Publish never blocks: a subscriber whose
// buffer is full misses the event and Publish reports it.
type Broker struct {
	bufferSize int

	mu     sync.Mutex
	nextID int
	subs   map[int]chan domain.Event
}

func NewBroker(bufferSize int) *Broker {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Broker{bufferSize: bufferSize, subs: make(map[int]chan domain.Event)}
}

// Subscribe returns a channel of events that is closed once ctx is done.
func (b *Broker) Subscribe(ctx context.Context) <-chan domain.Event {
	ch := make(chan domain.Event, b.bufferSize)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()
	return ch
}

func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broker) Publish(ev domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := 0
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		return fmt.Errorf("event %s dropped for %d slow subscriber(s)", ev.Type, dropped)
	}
	return nil
}
