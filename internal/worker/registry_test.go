package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestRegistry() *Registry {
	return NewRegistry(arbor.NewLogger())
}

func TestRegistry_SubscribeReplaysHistory(t *testing.T) {
	r := newTestRegistry()
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	j := r.register("proc-1", "fld-1", cancel)
	j.publish(StreamEvent{Name: "progress", Data: []byte(`{"progress":25}`)}, false)
	j.publish(StreamEvent{Name: "progress", Data: []byte(`{"progress":50}`)}, false)

	history, events, release, err := r.Subscribe("proc-1")
	require.NoError(t, err)
	defer release()

	require.Len(t, history, 2)
	assert.Equal(t, `{"progress":25}`, string(history[0].Data))
	assert.Equal(t, `{"progress":50}`, string(history[1].Data))

	j.publish(StreamEvent{Name: "completed", Data: []byte(`{}`)}, true)

	select {
	case event := <-events:
		assert.Equal(t, "completed", event.Name)
	case <-time.After(time.Second):
		t.Fatal("live event never arrived")
	}
}

func TestRegistry_LateSubscriberSeesTerminalEvent(t *testing.T) {
	r := newTestRegistry()
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	j := r.register("proc-1", "fld-1", cancel)
	j.publish(StreamEvent{Name: "progress", Data: []byte(`{}`)}, false)
	j.publish(StreamEvent{Name: "completed", Data: []byte(`{"results":{}}`)}, true)

	history, _, release, err := r.Subscribe("proc-1")
	require.NoError(t, err)
	defer release()

	require.Len(t, history, 2)
	assert.Equal(t, "completed", history[1].Name)
}

func TestRegistry_PublishAfterTerminalIsDropped(t *testing.T) {
	r := newTestRegistry()
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	j := r.register("proc-1", "fld-1", cancel)
	j.publish(StreamEvent{Name: "error", Data: []byte(`{"error":"boom"}`)}, true)
	j.publish(StreamEvent{Name: "progress", Data: []byte(`{}`)}, false)

	history, _, release, err := r.Subscribe("proc-1")
	require.NoError(t, err)
	defer release()

	require.Len(t, history, 1)
	assert.Equal(t, "error", history[0].Name)
}

func TestRegistry_SubscribeUnknownID(t *testing.T) {
	r := newTestRegistry()
	_, _, _, err := r.Subscribe("proc-nope")
	assert.Error(t, err)
}

func TestRegistry_CancelFiresJobContext(t *testing.T) {
	r := newTestRegistry()
	ctx, cancel := context.WithCancel(context.Background())

	r.register("proc-1", "fld-1", cancel)

	assert.True(t, r.Cancel("proc-1"))
	assert.Error(t, ctx.Err(), "cancel must fire the job context")
	assert.False(t, r.Cancel("proc-nope"))
}

func TestRegistry_FindByFieldReturnsNewest(t *testing.T) {
	r := newTestRegistry()
	_, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	_, cancel2 := context.WithCancel(context.Background())
	defer cancel2()

	old := r.register("proc-old", "fld-1", cancel1)
	old.startedAt = time.Now().Add(-time.Minute)
	r.register("proc-new", "fld-1", cancel2)

	assert.Equal(t, "proc-new", r.FindByField("fld-1"))
	assert.Equal(t, "", r.FindByField("fld-other"))
}

func TestRegistry_SweepStale(t *testing.T) {
	r := newTestRegistry()

	staleCtx, staleCancel := context.WithCancel(context.Background())
	stale := r.register("proc-stale", "fld-1", staleCancel)
	stale.startedAt = time.Now().Add(-time.Hour)

	_, doneCancel := context.WithCancel(context.Background())
	defer doneCancel()
	finished := r.register("proc-done", "fld-2", doneCancel)
	finished.publish(StreamEvent{Name: "completed", Data: []byte(`{}`)}, true)

	_, liveCancel := context.WithCancel(context.Background())
	defer liveCancel()
	r.register("proc-live", "fld-3", liveCancel)

	removed := r.SweepStale(30 * time.Minute)

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, r.ActiveCount())
	assert.Error(t, staleCtx.Err(), "stale jobs are cancelled on sweep")
	assert.Equal(t, "proc-live", r.FindByField("fld-3"))
}
