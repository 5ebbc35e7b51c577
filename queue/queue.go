package queue

import "errors"

var (
	ErrFullQueue   = errors.New("queue is full")
	ErrEmptyQueue  = errors.New("queue is empty")
	ErrCreateEntry = errors.New("failed to push entry")
	ErrReadEntry   = errors.New("failed to read entry")
)

// TaskQueue holds serialized tasks per channel. Channels are independent
// FIFO lists; a dispatcher uses one channel per batch.
type TaskQueue interface {
	// Push appends an entry and returns its position in the channel.
	Push(channel string, entry []byte) (int, error)

	// Pop removes the oldest entry. It returns ErrEmptyQueue when the
	// channel has nothing left.
	Pop(channel string) ([]byte, error)

	// Len reports how many entries are waiting on the channel.
	Len(channel string) (int, error)

	// Purge drops every entry on the channel.
	Purge(channel string) error
}
