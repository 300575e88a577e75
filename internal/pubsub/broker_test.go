package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBroker_DeliversToAllSubscribers(t *testing.T) {
	b := NewBroker[string]()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s1 := b.Subscribe(ctx)
	s2 := b.Subscribe(ctx)
	require.Equal(t, 2, b.SubscriberCount())

	b.Publish(NodeCompleted, "k1")

	for _, sub := range []<-chan Event[string]{s1, s2} {
		select {
		case ev := <-sub:
			require.Equal(t, NodeCompleted, ev.Type)
			require.Equal(t, "k1", ev.Payload)
			require.False(t, ev.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestBroker_DropsWhenSubscriberIsFull(t *testing.T) {
	b := NewBrokerWithBuffer[int](1)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := b.Subscribe(ctx)
	b.Publish(NodeDispatched, 1)
	b.Publish(NodeDispatched, 2) // dropped, buffer of one is full

	ev := <-sub
	require.Equal(t, 1, ev.Payload)
	select {
	case ev := <-sub:
		t.Fatalf("unexpected second event: %v", ev.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroker_SubscribeAfterCloseYieldsClosedChannel(t *testing.T) {
	b := NewBroker[string]()
	b.Close()

	sub := b.Subscribe(context.Background())
	_, ok := <-sub
	require.False(t, ok)
}

func TestBroker_ContextCancelRemovesSubscriber(t *testing.T) {
	b := NewBroker[string]()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub := b.Subscribe(ctx)
	cancel()

	require.Eventually(t, func() bool {
		return b.SubscriberCount() == 0
	}, time.Second, 10*time.Millisecond)

	_, ok := <-sub
	require.False(t, ok)
}
