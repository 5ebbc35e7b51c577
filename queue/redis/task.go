package redis

import (
	"fmt"

	"github.com/ZutrixPog/llmdispatch/queue"
	"github.com/go-redis/redis"
)

var _ queue.TaskQueue = (*List)(nil)

// List keeps each channel as a redis list: LPUSH on push, RPOP on pop, so
// entries leave in the order they arrived.
type List struct {
	client *redis.Client
	limit  int64
}

// NewTaskQueue wraps client. A limit <= 0 leaves channels unbounded.
func NewTaskQueue(client *redis.Client, limit int64) queue.TaskQueue {
	return &List{client, limit}
}

func (q *List) Push(channel string, entry []byte) (int, error) {
	length, err := q.client.LLen(channel).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", queue.ErrCreateEntry, err)
	}
	if q.limit > 0 && length >= q.limit {
		return 0, queue.ErrFullQueue
	}

	if err = q.client.LPush(channel, entry).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", queue.ErrCreateEntry, err)
	}

	return int(length), nil
}

func (q *List) Pop(channel string) ([]byte, error) {
	data, err := q.client.RPop(channel).Bytes()
	if err == redis.Nil {
		return nil, queue.ErrEmptyQueue
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", queue.ErrReadEntry, err)
	}

	return data, nil
}

func (q *List) Len(channel string) (int, error) {
	length, err := q.client.LLen(channel).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", queue.ErrReadEntry, err)
	}

	return int(length), nil
}

func (q *List) Purge(channel string) error {
	if err := q.client.Del(channel).Err(); err != nil {
		return fmt.Errorf("%w: %v", queue.ErrReadEntry, err)
	}
	return nil
}
