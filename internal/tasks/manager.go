package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"viralops/manager-go/internal/utils"
)

// HandlerFunc executes a task. The returned payload is recorded in the task
// result; a returned error is classified to decide whether and when to retry.
type HandlerFunc func(ctx context.Context, task Task) (json.RawMessage, error)

// Manager runs the task queue: it owns the handler registry, the worker
// pool and the retry cycle on top of a pluggable backend.
type Manager struct {
	backend  Backend
	results  ResultStore
	hostname string

	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	stop      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	workerSeq atomic.Int64
	workers   atomic.Int64
}

func NewManager(backend Backend, hostname string) *Manager {
	results, ok := backend.(ResultStore)
	if !ok {
		results = newMemoryResults()
	}
	return &Manager{
		backend:  backend,
		results:  results,
		hostname: hostname,
		handlers: map[string]HandlerFunc{},
		stop:     make(chan struct{}),
	}
}

func (m *Manager) Register(name string, handler HandlerFunc) {
	m.mu.Lock()
	m.handlers[name] = handler
	m.mu.Unlock()
}

func (m *Manager) handler(name string) (HandlerFunc, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handlers[name]
	return h, ok
}

// Registered returns the registered task names, sorted.
func (m *Manager) Registered() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.handlers))
	for name := range m.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Enqueue serializes the payload and queues a task. Zero options mean the
// medium lane, 3 retries and the default timeout.
func (m *Manager) Enqueue(ctx context.Context, name string, payload any, opts Options) (string, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("marshal payload for %s: %w", name, err)
		}
		raw = b
	}

	lane := opts.Lane
	if lane == "" {
		lane = LaneMedium
	}
	if !ValidLane(lane) {
		return "", fmt.Errorf("unknown lane %q", lane)
	}
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	task := Task{
		ID:             uuid.NewString(),
		Name:           name,
		Payload:        raw,
		Lane:           lane,
		MaxRetries:     maxRetries,
		TimeoutSeconds: int(opts.Timeout / time.Second),
		EnqueuedAt:     time.Now().UTC(),
	}

	if err := m.results.StoreResult(ctx, Result{TaskID: task.ID, Status: StatusPending}); err != nil {
		utils.Warn("store pending result failed", "task_id", task.ID, "err", err)
	}
	if err := m.backend.Enqueue(ctx, task); err != nil {
		return "", err
	}
	utils.Info("task enqueued", "task", name, "id", task.ID, "lane", lane)
	return task.ID, nil
}

func (m *Manager) Result(ctx context.Context, taskID string) (*Result, error) {
	return m.results.Result(ctx, taskID)
}

// StartWorkers launches n workers draining the given lanes in order. Lanes
// defaults to all lanes in priority order.
func (m *Manager) StartWorkers(ctx context.Context, n int, lanes []string) []string {
	if len(lanes) == 0 {
		lanes = Lanes()
	}
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-worker-%d", m.hostname, m.workerSeq.Add(1))
		ids = append(ids, id)
		m.wg.Add(1)
		m.workers.Add(1)
		go func() {
			defer m.wg.Done()
			defer m.workers.Add(-1)
			m.runWorker(ctx, id, lanes)
		}()
		utils.Info("worker started", "worker", id, "lanes", lanes)
	}
	return ids
}

func (m *Manager) runWorker(ctx context.Context, workerID string, lanes []string) {
	for {
		select {
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		delivery, err := m.backend.Dequeue(ctx, lanes, time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			utils.Error("dequeue failed", "worker", workerID, "err", err)
			select {
			case <-m.stop:
				return
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}
		if delivery == nil {
			continue
		}
		m.process(ctx, workerID, delivery)
	}
}

func (m *Manager) process(ctx context.Context, workerID string, delivery *Delivery) {
	task := delivery.Task

	handler, ok := m.handler(task.Name)
	if !ok {
		utils.Error("no handler registered", "task", task.Name, "id", task.ID)
		_ = delivery.Ack()
		m.storeResult(Result{
			TaskID:     task.ID,
			Status:     StatusFailed,
			Error:      fmt.Sprintf("task %q not registered", task.Name),
			RetryCount: task.Retry,
			WorkerID:   workerID,
		})
		return
	}

	started := time.Now().UTC()
	m.storeResult(Result{
		TaskID:     task.ID,
		Status:     StatusRunning,
		StartedAt:  &started,
		RetryCount: task.Retry,
		WorkerID:   workerID,
	})

	tctx, cancel := context.WithTimeout(ctx, task.Timeout())
	output, err := handler(tctx, task)
	cancel()

	completed := time.Now().UTC()
	if err == nil {
		_ = delivery.Ack()
		m.storeResult(Result{
			TaskID:      task.ID,
			Status:      StatusCompleted,
			Output:      output,
			StartedAt:   &started,
			CompletedAt: &completed,
			RetryCount:  task.Retry,
			WorkerID:    workerID,
		})
		utils.Info("task completed", "task", task.Name, "id", task.ID, "worker", workerID)
		return
	}

	class := Classify(err.Error())
	if !Retryable(class) || task.Retry >= task.MaxRetries {
		_ = delivery.Ack()
		m.storeResult(Result{
			TaskID:      task.ID,
			Status:      StatusFailed,
			Error:       err.Error(),
			ErrorClass:  class,
			StartedAt:   &started,
			CompletedAt: &completed,
			RetryCount:  task.Retry,
			WorkerID:    workerID,
		})
		utils.Error("task failed", "task", task.Name, "id", task.ID, "class", class, "retries", task.Retry, "err", err)
		return
	}

	delay := Backoff(class, task.Retry)
	utils.Warn("task retrying", "task", task.Name, "id", task.ID, "class", class, "attempt", task.Retry+1, "delay", delay)

	// The original delivery is acked and a copy re-enqueued after the
	// backoff delay. On shutdown the copy is requeued immediately so the
	// attempt is never lost.
	_ = delivery.Ack()
	m.storeResult(Result{
		TaskID:     task.ID,
		Status:     StatusRetrying,
		Error:      err.Error(),
		ErrorClass: class,
		StartedAt:  &started,
		RetryCount: task.Retry,
		WorkerID:   workerID,
	})

	retry := task
	retry.Retry++
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-m.stop:
		}
		ectx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.backend.Enqueue(ectx, retry); err != nil {
			utils.Error("requeue failed", "task", retry.Name, "id", retry.ID, "err", err)
		}
	}()
}

func (m *Manager) storeResult(result Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.results.StoreResult(ctx, result); err != nil {
		utils.Warn("store result failed", "task_id", result.TaskID, "err", err)
	}
}

// Stats reports queue depth per lane and the live worker count.
type Stats struct {
	Lanes   map[string]int `json:"lanes"`
	Workers int            `json:"workers"`
}

func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Lanes: map[string]int{}, Workers: int(m.workers.Load())}
	for _, lane := range Lanes() {
		n, err := m.backend.Pending(ctx, lane)
		if err != nil {
			return stats, err
		}
		stats.Lanes[lane] = n
	}
	return stats, nil
}

// Shutdown stops the workers and waits for in-flight tasks and pending
// retries, bounded by ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.stop) })

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type memoryResults struct {
	mu      sync.RWMutex
	results map[string]Result
}

func newMemoryResults() *memoryResults {
	return &memoryResults{results: map[string]Result{}}
}

func (s *memoryResults) StoreResult(_ context.Context, result Result) error {
	s.mu.Lock()
	s.results[result.TaskID] = result
	s.mu.Unlock()
	return nil
}

func (s *memoryResults) Result(_ context.Context, taskID string) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[taskID]
	if !ok {
		return nil, nil
	}
	return &result, nil
}
