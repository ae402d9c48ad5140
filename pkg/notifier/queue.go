// queue.go implements the in-process delivery queue used in batched mode.

package notifier

import "context"

// FlushFunc receives the whole queue content when it is flushed.
type FlushFunc func(ctx context.Context, batch []*Payload) error

// Queue holds payloads pending delivery in FIFO order. It is not safe for
// concurrent use; a Queue belongs to a single execution context.
type Queue struct {
	items     []*Payload
	batchSize int
	flush     FlushFunc
}

// NewQueue returns an empty queue that never holds more than batchSize
// payloads.
func NewQueue(batchSize int, flush FlushFunc) *Queue {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Queue{batchSize: batchSize, flush: flush}
}

// Enqueue appends p. A full queue is flushed first, so with a batch size of 2
// the sizes after three appends are 1, 2 and 1. The flush error, if any, is
// returned after p has been appended.
func (q *Queue) Enqueue(ctx context.Context, p *Payload) error {
	var err error
	if len(q.items) >= q.batchSize {
		err = q.Flush(ctx)
	}
	q.items = append(q.items, p)
	return err
}

// Flush hands every queued payload to the flush function as one batch and
// empties the queue whether or not delivery succeeds.
func (q *Queue) Flush(ctx context.Context) error {
	if len(q.items) == 0 {
		return nil
	}
	batch := q.items
	q.items = nil
	if q.flush == nil {
		return nil
	}
	return q.flush(ctx, batch)
}

// Size returns the number of pending payloads.
func (q *Queue) Size() int {
	return len(q.items)
}
