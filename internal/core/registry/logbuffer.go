package registry

import (
	"strings"

	"github.com/snjax/nook/internal/core/domain"
)

const DefaultLogCapacity = 10000

// LogBuffer is a bounded FIFO of log entries. When full, pushing evicts the
// oldest entry. It is not safe for concurrent use; the registry guards it.
type LogBuffer struct {
	entries []domain.LogEntry
	head    int
	size    int
}

func NewLogBuffer(capacity int) *LogBuffer {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &LogBuffer{entries: make([]domain.LogEntry, capacity)}
}

func (b *LogBuffer) Push(e domain.LogEntry) {
	idx := (b.head + b.size) % len(b.entries)
	b.entries[idx] = e
	if b.size == len(b.entries) {
		b.head = (b.head + 1) % len(b.entries)
		return
	}
	b.size++
}

func (b *LogBuffer) PushBatch(entries []domain.LogEntry) {
	for _, e := range entries {
		b.Push(e)
	}
}

func (b *LogBuffer) at(i int) domain.LogEntry {
	return b.entries[(b.head+i)%len(b.entries)]
}

// Tail returns the last n entries, oldest first.
func (b *LogBuffer) Tail(n int) []domain.LogEntry {
	if n > b.size {
		n = b.size
	}
	if n <= 0 {
		return []domain.LogEntry{}
	}
	out := make([]domain.LogEntry, 0, n)
	for i := b.size - n; i < b.size; i++ {
		out = append(out, b.at(i))
	}
	return out
}

// Search returns entries whose message contains keyword, case-insensitively,
// oldest first.
func (b *LogBuffer) Search(keyword string) []domain.LogEntry {
	needle := strings.ToLower(keyword)
	out := []domain.LogEntry{}
	for i := 0; i < b.size; i++ {
		e := b.at(i)
		if strings.Contains(strings.ToLower(e.Message), needle) {
			out = append(out, e)
		}
	}
	return out
}

func (b *LogBuffer) Clear() {
	clear(b.entries)
	b.head = 0
	b.size = 0
}

func (b *LogBuffer) Len() int { return b.size }
