package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case id, ok := <-ch:
		require.True(t, ok, "channel closed")
		return id
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return ""
	}
}

func assertNoEvent(t *testing.T, ch <-chan string) {
	t.Helper()
	select {
	case id := <-ch:
		t.Fatalf("unexpected event %q", id)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_FansOutToEverySubscriber(t *testing.T) {
	bus := NewBus(8, zerolog.Nop())
	a := bus.Subscribe()
	b := bus.Subscribe()
	defer a.Close()
	defer b.Close()

	require.NoError(t, bus.Publish(context.Background(), "briv"))

	assert.Equal(t, "briv", receive(t, a.Events()))
	assert.Equal(t, "briv", receive(t, b.Events()))
	assertNoEvent(t, a.Events())
}

func TestBus_NoReplayForLateSubscribers(t *testing.T) {
	bus := NewBus(8, zerolog.Nop())
	require.NoError(t, bus.Publish(context.Background(), "briv"))

	late := bus.Subscribe()
	defer late.Close()
	assertNoEvent(t, late.Events())
}

func TestBus_PreservesPublishOrder(t *testing.T) {
	bus := NewBus(16, zerolog.Nop())
	sub := bus.Subscribe()
	defer sub.Close()

	ids := []string{"briv", "elara", "briv", "thorgrim"}
	for _, id := range ids {
		require.NoError(t, bus.Publish(context.Background(), id))
	}
	for _, want := range ids {
		assert.Equal(t, want, receive(t, sub.Events()))
	}
}

func TestBus_EvictsSlowSubscriber(t *testing.T) {
	bus := NewBus(1, zerolog.Nop())
	slow := bus.Subscribe()
	fast := bus.Subscribe()

	require.NoError(t, bus.Publish(context.Background(), "one"))
	assert.Equal(t, "one", receive(t, fast.Events()))

	// slow still holds "one"; the second event does not fit.
	require.NoError(t, bus.Publish(context.Background(), "two"))
	assert.Equal(t, "two", receive(t, fast.Events()))

	assert.Equal(t, "one", receive(t, slow.Events()))
	_, ok := <-slow.Events()
	assert.False(t, ok, "evicted subscriber channel should be closed")
	assert.Equal(t, 1, bus.Len())
}

func TestBus_CloseEndsSubscriptions(t *testing.T) {
	bus := NewBus(4, zerolog.Nop())
	sub := bus.Subscribe()

	bus.Close()
	_, ok := <-sub.Events()
	assert.False(t, ok)
	sub.Close()

	after := bus.Subscribe()
	_, ok = <-after.Events()
	assert.False(t, ok, "subscription on a closed bus should be closed")
}

func TestBus_ConcurrentPublishAndUnsubscribe(t *testing.T) {
	bus := NewBus(4, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s := bus.Subscribe()
			s.Close()
		}()
		go func() {
			defer wg.Done()
			_ = bus.Publish(context.Background(), "briv")
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, bus.Len())
}
