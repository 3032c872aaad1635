package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/fieldrun/fieldrun/internal/interfaces"
)

func TestSubscribe_NilHandlerRejected(t *testing.T) {
	s := NewService(arbor.NewLogger())
	assert.Error(t, s.Subscribe(interfaces.EventJobProgress, nil))
}

func TestPublish_DeliversToSubscribers(t *testing.T) {
	s := NewService(arbor.NewLogger())

	received := make(chan interfaces.Event, 1)
	require.NoError(t, s.Subscribe(interfaces.EventJobCompleted, func(ctx context.Context, event interfaces.Event) error {
		received <- event
		return nil
	}))

	payload := map[string]interface{}{"processing_id": "proc-1"}
	require.NoError(t, s.Publish(context.Background(), interfaces.Event{
		Type:    interfaces.EventJobCompleted,
		Payload: payload,
	}))

	select {
	case event := <-received:
		assert.Equal(t, interfaces.EventJobCompleted, event.Type)
		assert.Equal(t, payload, event.Payload)
	case <-time.After(time.Second):
		t.Fatal("event was never delivered")
	}
}

func TestPublish_OnlyMatchingTypeDelivered(t *testing.T) {
	s := NewService(arbor.NewLogger())

	var mu sync.Mutex
	var got []interfaces.EventType
	handler := func(ctx context.Context, event interfaces.Event) error {
		mu.Lock()
		got = append(got, event.Type)
		mu.Unlock()
		return nil
	}
	require.NoError(t, s.Subscribe(interfaces.EventJobFailed, handler))

	require.NoError(t, s.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventJobProgress}))
	require.NoError(t, s.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventJobFailed}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []interfaces.EventType{interfaces.EventJobFailed}, got)
}

func TestPublishSync_WaitsForAllHandlers(t *testing.T) {
	s := NewService(arbor.NewLogger())

	var mu sync.Mutex
	count := 0
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Subscribe(interfaces.EventJobCancelled, func(ctx context.Context, event interfaces.Event) error {
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			count++
			mu.Unlock()
			return nil
		}))
	}

	require.NoError(t, s.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventJobCancelled}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, count, "PublishSync returns only after every handler ran")
}

func TestPublishSync_AggregatesHandlerErrors(t *testing.T) {
	s := NewService(arbor.NewLogger())

	require.NoError(t, s.Subscribe(interfaces.EventJobFailed, func(ctx context.Context, event interfaces.Event) error {
		return errors.New("handler broke")
	}))

	err := s.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventJobFailed})
	assert.Error(t, err)
}

func TestClose_DropsSubscribers(t *testing.T) {
	s := NewService(arbor.NewLogger())

	called := false
	require.NoError(t, s.Subscribe(interfaces.EventJobProgress, func(ctx context.Context, event interfaces.Event) error {
		called = true
		return nil
	}))

	require.NoError(t, s.Close())
	require.NoError(t, s.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventJobProgress}))
	assert.False(t, called)
}
