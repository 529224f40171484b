package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"viralops/manager-go/internal/utils"
)

const (
	laneKeyPrefix       = "tasks:"
	processingKeyPrefix = "tasks:processing:"
	resultKeyPrefix     = "task_result:"
	resultTTL           = time.Hour
	dequeuePollInterval = 200 * time.Millisecond
)

// RedisBackend queues tasks in Redis lists, one list per lane. Dequeue moves
// the task into a per-consumer processing list so an interrupted worker
// leaves the task recoverable (at-least-once). Results are stored under a
// TTL key so callers can poll them after the worker moved on.
type RedisBackend struct {
	client   *redis.Client
	consumer string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Consumer names the processing list; it should be stable per host so
	// restarts can recover orphaned tasks.
	Consumer string
}

func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connect %s: %w", cfg.Addr, err)
	}

	consumer := cfg.Consumer
	if consumer == "" {
		consumer = "default"
	}
	b := &RedisBackend{client: client, consumer: consumer}

	// Recover tasks a previous process dequeued but never acked.
	if n, err := b.recoverProcessing(ctx); err != nil {
		utils.Warn("redis recover processing failed", "err", err)
	} else if n > 0 {
		utils.Info("requeued orphaned tasks", "count", n, "consumer", consumer)
	}
	return b, nil
}

func laneKey(lane string) string       { return laneKeyPrefix + lane }
func (b *RedisBackend) procKey() string { return processingKeyPrefix + b.consumer }

func (b *RedisBackend) recoverProcessing(ctx context.Context) (int, error) {
	raws, err := b.client.LRange(ctx, b.procKey(), 0, -1).Result()
	if err != nil {
		return 0, err
	}
	requeued := 0
	for _, raw := range raws {
		var task Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			utils.Warn("dropping undecodable processing entry", "err", err)
			continue
		}
		if err := b.client.RPush(ctx, laneKey(task.Lane), raw).Err(); err != nil {
			return requeued, err
		}
		requeued++
	}
	if err := b.client.Del(ctx, b.procKey()).Err(); err != nil {
		return requeued, err
	}
	return requeued, nil
}

func (b *RedisBackend) Enqueue(ctx context.Context, task Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return err
	}
	utils.Debug("redis enqueue", "lane", task.Lane, "task", task.Name, "id", task.ID)
	return b.client.LPush(ctx, laneKey(task.Lane), raw).Err()
}

func (b *RedisBackend) Dequeue(ctx context.Context, lanes []string, wait time.Duration) (*Delivery, error) {
	deadline := time.Now().Add(wait)
	for {
		for _, lane := range lanes {
			raw, err := b.client.LMove(ctx, laneKey(lane), b.procKey(), "RIGHT", "LEFT").Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return nil, err
			}
			var task Task
			if err := json.Unmarshal([]byte(raw), &task); err != nil {
				// Undecodable payloads are dropped, not requeued forever.
				utils.Warn("dropping undecodable task", "lane", lane, "err", err)
				_ = b.client.LRem(ctx, b.procKey(), 1, raw).Err()
				continue
			}
			return b.delivery(task, raw), nil
		}

		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dequeuePollInterval):
		}
	}
}

func (b *RedisBackend) delivery(task Task, raw string) *Delivery {
	return &Delivery{
		Task: task,
		ack: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return b.client.LRem(ctx, b.procKey(), 1, raw).Err()
		},
		nack: func(requeue bool) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := b.client.LRem(ctx, b.procKey(), 1, raw).Err(); err != nil {
				return err
			}
			if !requeue {
				return nil
			}
			return b.client.RPush(ctx, laneKey(task.Lane), raw).Err()
		},
	}
}

func (b *RedisBackend) Pending(ctx context.Context, lane string) (int, error) {
	n, err := b.client.LLen(ctx, laneKey(lane)).Result()
	return int(n), err
}

func (b *RedisBackend) StoreResult(ctx context.Context, result Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, resultKeyPrefix+result.TaskID, raw, resultTTL).Err()
}

func (b *RedisBackend) Result(ctx context.Context, taskID string) (*Result, error) {
	raw, err := b.client.Get(ctx, resultKeyPrefix+taskID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
