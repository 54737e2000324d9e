package pipeline

import "sync"

// WorkItem is one key awaiting inference. Attempts counts the submissions of
// this key that did not produce a result.
type WorkItem struct {
	Key      string
	Attempts int
}

// Queue is a mutex-guarded FIFO of work items. PopBatch and Push are atomic
// with respect to each other, so no item is handed to two workers.
type Queue struct {
	mu    sync.Mutex
	items []WorkItem
}

// NewQueue returns a queue holding one fresh item per key, in order.
func NewQueue(keys ...string) *Queue {
	items := make([]WorkItem, len(keys))
	for i, k := range keys {
		items[i] = WorkItem{Key: k}
	}
	return &Queue{items: items}
}

// PopBatch removes and returns up to n items from the head. It returns nil
// when the queue is empty.
func (q *Queue) PopBatch(n int) []WorkItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n <= 0 || len(q.items) == 0 {
		return nil
	}
	n = min(n, len(q.items))
	batch := make([]WorkItem, n)
	copy(batch, q.items[:n])
	q.items = q.items[n:]
	return batch
}

// Push appends items to the tail.
func (q *Queue) Push(items ...WorkItem) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// Drain removes and returns every queued item.
func (q *Queue) Drain() []WorkItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
