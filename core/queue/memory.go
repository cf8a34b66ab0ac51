package queue

import (
	"context"
	"strconv"
	"sync"

	"feed-processor/core/ingest"
)

// Memory keeps published messages in process. Used by the memory driver and tests.
type Memory struct {
	mu   sync.Mutex
	msgs []ingest.Message
}

// NewMemory creates an empty in-memory queue.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish appends msg and returns its sequence number.
func (m *Memory) Publish(ctx context.Context, msg ingest.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ingest.MarkPublish(err, "memory publish")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return strconv.Itoa(len(m.msgs)), nil
}

// Messages returns a copy of everything published so far.
func (m *Memory) Messages() []ingest.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ingest.Message(nil), m.msgs...)
}
