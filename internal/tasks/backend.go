package tasks

import (
	"context"
	"time"
)

// Delivery wraps a dequeued task with its acknowledgement hooks, mirroring
// broker semantics: a delivery must be acked (done, success or terminal
// failure) or nacked back onto its lane.
type Delivery struct {
	Task Task
	ack  func() error
	nack func(requeue bool) error
}

func (d *Delivery) Ack() error {
	if d == nil || d.ack == nil {
		return nil
	}
	return d.ack()
}

func (d *Delivery) Nack(requeue bool) error {
	if d == nil || d.nack == nil {
		return nil
	}
	return d.nack(requeue)
}

// Backend moves tasks through priority lanes. Implementations: redis
// (durable, shared), amqp (durable, brokered) and memory (process-local
// fallback that loses state on exit).
type Backend interface {
	Enqueue(ctx context.Context, task Task) error

	// Dequeue pops the first available task scanning lanes in the given
	// order, waiting up to wait for one to appear. A nil Delivery with a
	// nil error means nothing was available.
	Dequeue(ctx context.Context, lanes []string, wait time.Duration) (*Delivery, error)

	// Pending reports the queue depth of a lane.
	Pending(ctx context.Context, lane string) (int, error)

	Close() error
}

// ResultStore persists task results. The redis backend implements it so
// results survive the worker process; other backends fall back to the
// manager's in-memory store.
type ResultStore interface {
	StoreResult(ctx context.Context, result Result) error
	Result(ctx context.Context, taskID string) (*Result, error)
}
