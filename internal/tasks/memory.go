package tasks

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBackendClosed is returned for operations on a closed backend.
var ErrBackendClosed = errors.New("queue backend is closed")

// MemoryBackend is the in-process fallback queue. Lanes are plain FIFO
// slices guarded by a mutex; a notify channel wakes blocked consumers.
// All state is lost when the process exits.
type MemoryBackend struct {
	mu     sync.Mutex
	lanes  map[string][]Task
	notify chan struct{}
	closed bool
}

func NewMemoryBackend() *MemoryBackend {
	lanes := make(map[string][]Task, 4)
	for _, lane := range Lanes() {
		lanes[lane] = nil
	}
	return &MemoryBackend{
		lanes:  lanes,
		notify: make(chan struct{}, 1),
	}
}

func (b *MemoryBackend) Enqueue(_ context.Context, task Task) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBackendClosed
	}
	b.lanes[task.Lane] = append(b.lanes[task.Lane], task)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return nil
}

func (b *MemoryBackend) Dequeue(ctx context.Context, lanes []string, wait time.Duration) (*Delivery, error) {
	deadline := time.Now().Add(wait)
	for {
		b.mu.Lock()
		closed := b.closed
		b.mu.Unlock()
		if closed {
			return nil, ErrBackendClosed
		}

		if task, ok := b.pop(lanes); ok {
			return &Delivery{
				Task: task,
				ack:  func() error { return nil },
				nack: func(requeue bool) error {
					if !requeue {
						return nil
					}
					return b.requeueFront(task)
				},
			}, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-b.notify:
			timer.Stop()
		case <-timer.C:
			return nil, nil
		}
	}
}

func (b *MemoryBackend) pop(lanes []string) (Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, lane := range lanes {
		items := b.lanes[lane]
		if len(items) == 0 {
			continue
		}
		task := items[0]
		b.lanes[lane] = items[1:]
		return task, true
	}
	return Task{}, false
}

func (b *MemoryBackend) requeueFront(task Task) error {
	b.mu.Lock()
	b.lanes[task.Lane] = append([]Task{task}, b.lanes[task.Lane]...)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return nil
}

func (b *MemoryBackend) Pending(_ context.Context, lane string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lanes[lane]), nil
}

func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	// Wake a blocked consumer so it observes the closed state.
	select {
	case b.notify <- struct{}{}:
	default:
	}
	return nil
}
