package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snjax/nook/internal/core/domain"
)

func TestPublishFansOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBroker(4)
	a := b.Subscribe(ctx)
	c := b.Subscribe(ctx)
	require.Equal(t, 2, b.Subscribers())

	ev := domain.Event{Type: domain.EventStatusChanged, PodID: "p1"}
	require.NoError(t, b.Publish(ev))

	assert.Equal(t, ev, <-a)
	assert.Equal(t, ev, <-c)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	assert.NoError(t, NewBroker(0).Publish(domain.Event{Type: domain.EventStatsUpdate}))
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBroker(1)
	ch := b.Subscribe(ctx)

	require.NoError(t, b.Publish(domain.Event{Type: domain.EventLogBatch, PodID: "1"}))
	assert.Error(t, b.Publish(domain.Event{Type: domain.EventLogBatch, PodID: "2"}))

	got := <-ch
	assert.Equal(t, "1", got.PodID)
}

func TestUnsubscribeOnCancel(t *testing.T) {
	b := NewBroker(1)
	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
	assert.Equal(t, 0, b.Subscribers())
	assert.NoError(t, b.Publish(domain.Event{Type: domain.EventStatusChanged}))
}
