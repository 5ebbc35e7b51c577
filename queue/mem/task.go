package mem

import (
	"sync"

	tq "github.com/ZutrixPog/llmdispatch/queue"
)

var _ tq.TaskQueue = (*MemQueue)(nil)

type MemQueue struct {
	data  map[string][][]byte
	limit int
	lock  sync.Mutex
}

// NewQueue returns an in-process queue. A limit <= 0 means channels are
// unbounded.
func NewQueue(limit int) tq.TaskQueue {
	return &MemQueue{
		data:  make(map[string][][]byte),
		limit: limit,
	}
}

func (q *MemQueue) Push(channel string, entry []byte) (int, error) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if q.limit > 0 && len(q.data[channel]) >= q.limit {
		return 0, tq.ErrFullQueue
	}

	cp := make([]byte, len(entry))
	copy(cp, entry)
	q.data[channel] = append(q.data[channel], cp)

	return len(q.data[channel]) - 1, nil
}

func (q *MemQueue) Pop(channel string) ([]byte, error) {
	q.lock.Lock()
	defer q.lock.Unlock()

	items := q.data[channel]
	if len(items) == 0 {
		return nil, tq.ErrEmptyQueue
	}

	item := items[0]
	items[0] = nil
	if len(items) == 1 {
		delete(q.data, channel)
	} else {
		q.data[channel] = items[1:]
	}

	return item, nil
}

func (q *MemQueue) Len(channel string) (int, error) {
	q.lock.Lock()
	defer q.lock.Unlock()

	return len(q.data[channel]), nil
}

func (q *MemQueue) Purge(channel string) error {
	q.lock.Lock()
	defer q.lock.Unlock()

	delete(q.data, channel)
	return nil
}
