package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snjax/nook/internal/core/domain"
)

func entry(msg string) domain.LogEntry {
	return domain.LogEntry{Message: msg, Source: domain.LogSourceContainer, Level: domain.LogStdout}
}

func messages(entries []domain.LogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

func TestLogBufferEvictsOldest(t *testing.T) {
	b := NewLogBuffer(3)
	for i := 1; i <= 5; i++ {
		b.Push(entry(fmt.Sprintf("line %d", i)))
	}

	require.Equal(t, 3, b.Len())
	assert.Equal(t, []string{"line 3", "line 4", "line 5"}, messages(b.Tail(10)))
}

func TestLogBufferCapacityBound(t *testing.T) {
	b := NewLogBuffer(DefaultLogCapacity)
	for i := 0; i < DefaultLogCapacity+1; i++ {
		b.Push(entry(fmt.Sprintf("%d", i)))
	}

	assert.Equal(t, DefaultLogCapacity, b.Len())
	assert.Equal(t, "1", b.Tail(DefaultLogCapacity)[0].Message)
}

func TestLogBufferTail(t *testing.T) {
	b := NewLogBuffer(10)
	b.PushBatch([]domain.LogEntry{entry("a"), entry("b"), entry("c")})

	assert.Equal(t, []string{"b", "c"}, messages(b.Tail(2)))
	assert.Empty(t, b.Tail(0))
	assert.Equal(t, []string{"a", "b", "c"}, messages(b.Tail(100)))
}

func TestLogBufferSearchIsCaseInsensitive(t *testing.T) {
	b := NewLogBuffer(10)
	b.PushBatch([]domain.LogEntry{entry("Server READY"), entry("compiling"), entry("ready again")})

	assert.Equal(t, []string{"Server READY", "ready again"}, messages(b.Search("Ready")))
	assert.Empty(t, b.Search("nothing"))
}

func TestLogBufferClear(t *testing.T) {
	b := NewLogBuffer(2)
	b.PushBatch([]domain.LogEntry{entry("a"), entry("b"), entry("c")})
	b.Clear()

	assert.Zero(t, b.Len())
	b.Push(entry("d"))
	assert.Equal(t, []string{"d"}, messages(b.Tail(5)))
}
