package client

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvents(t *testing.T, stream string) []serverEvent {
	t.Helper()
	var events []serverEvent
	err := readEvents(strings.NewReader(stream), func(event serverEvent) bool {
		events = append(events, event)
		return true
	})
	require.NoError(t, err)
	return events
}

func TestReadEvents_NamedEvents(t *testing.T) {
	stream := "event: progress\ndata: {\"progress\":25}\n\n" +
		"event: completed\ndata: {\"results\":{}}\n\n"

	events := collectEvents(t, stream)
	require.Len(t, events, 2)
	assert.Equal(t, "progress", events[0].Name)
	assert.Equal(t, `{"progress":25}`, string(events[0].Data))
	assert.Equal(t, "completed", events[1].Name)
}

func TestReadEvents_MultiLineData(t *testing.T) {
	stream := "event: completed\ndata: line one\ndata: line two\n\n"

	events := collectEvents(t, stream)
	require.Len(t, events, 1)
	assert.Equal(t, "line one\nline two", string(events[0].Data))
}

func TestReadEvents_CommentsIgnored(t *testing.T) {
	stream := ": keepalive\n\nevent: progress\ndata: {}\n\n: another\n\n"

	events := collectEvents(t, stream)
	require.Len(t, events, 1)
	assert.Equal(t, "progress", events[0].Name)
}

func TestReadEvents_DefaultEventName(t *testing.T) {
	stream := "data: hello\n\n"

	events := collectEvents(t, stream)
	require.Len(t, events, 1)
	assert.Equal(t, "message", events[0].Name)
	assert.Equal(t, "hello", string(events[0].Data))
}

func TestReadEvents_TrailingEventWithoutBlankLine(t *testing.T) {
	stream := "event: completed\ndata: {\"results\":{}}"

	events := collectEvents(t, stream)
	require.Len(t, events, 1)
	assert.Equal(t, "completed", events[0].Name)
}

func TestReadEvents_EmitReturningFalseStopsReading(t *testing.T) {
	stream := "event: completed\ndata: {}\n\nevent: progress\ndata: {}\n\n"

	var seen []string
	err := readEvents(strings.NewReader(stream), func(event serverEvent) bool {
		seen = append(seen, event.Name)
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"completed"}, seen)
}

func TestReadEvents_ValueSpaceTrimming(t *testing.T) {
	// Only the single leading space after the colon is stripped.
	stream := "event: progress\ndata:  padded\n\n"

	events := collectEvents(t, stream)
	require.Len(t, events, 1)
	assert.Equal(t, " padded", string(events[0].Data))
}
