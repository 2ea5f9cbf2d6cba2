package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handler executes one task kind. A nil error with a result settles the task
// as SUCCESS; errors are retried up to the queue's attempt budget.
type Handler func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

var (
	ErrUnknownKind  = errors.New("tasks: unknown task kind")
	ErrQueueFull    = errors.New("tasks: queue full")
	ErrQueueStopped = errors.New("tasks: queue stopped")
)

type QueueConfig struct {
	Workers     int
	Buffer      int
	MaxAttempts int
	BaseBackoff time.Duration
}

func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Workers:     4,
		Buffer:      256,
		MaxAttempts: 3,
		BaseBackoff: 500 * time.Millisecond,
	}
}

// Queue runs submitted tasks on in-process workers. Submit returns as soon as
// the task record is persisted; callers observe progress through Poll.
type Queue struct {
	store    Store
	cfg      QueueConfig
	log      *slog.Logger
	clock    func() time.Time
	handlers map[string]Handler

	jobs chan Task

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func NewQueue(store Store, cfg QueueConfig, log *slog.Logger) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	return &Queue{
		store:    store,
		cfg:      cfg,
		log:      log,
		clock:    time.Now,
		handlers: make(map[string]Handler),
		jobs:     make(chan Task, cfg.Buffer),
	}
}

// Register binds a handler to a task kind. All registrations happen before
// Start; the handler map is read-only afterwards.
func (q *Queue) Register(kind string, h Handler) {
	q.handlers[kind] = h
}

// Start launches the worker pool. Workers drain until ctx is canceled.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case t := <-q.jobs:
					q.run(ctx, t)
				}
			}
		}()
	}
}

// Stop prevents new submissions and waits for in-flight tasks.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.wg.Wait()
}

// Submit persists a PENDING task and hands it to the worker pool.
func (q *Queue) Submit(ctx context.Context, kind string, payload json.RawMessage) (string, error) {
	if _, ok := q.handlers[kind]; !ok {
		return "", ErrUnknownKind
	}
	q.mu.Lock()
	stopped := q.stopped
	q.mu.Unlock()
	if stopped {
		return "", ErrQueueStopped
	}

	now := q.clock().UTC()
	t := Task{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusPending,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := q.store.Put(ctx, t); err != nil {
		return "", err
	}

	select {
	case q.jobs <- t:
		return t.ID, nil
	default:
		t.Status = StatusFailure
		t.Error = ErrQueueFull.Error()
		t.UpdatedAt = q.clock().UTC()
		_ = q.store.Put(ctx, t)
		return "", ErrQueueFull
	}
}

// Poll returns the task's current state.
func (q *Queue) Poll(ctx context.Context, id string) (Task, error) {
	return q.store.Get(ctx, id)
}

func (q *Queue) run(ctx context.Context, t Task) {
	h := q.handlers[t.Kind]

	t.Status = StatusProcessing
	t.UpdatedAt = q.clock().UTC()
	if err := q.store.Put(ctx, t); err != nil {
		q.log.Error("task status update failed", "task_id", t.ID, "error", err)
	}

	var lastErr error
	for attempt := 1; attempt <= q.cfg.MaxAttempts; attempt++ {
		t.Attempts = attempt
		result, err := h(ctx, t.Payload)
		if err == nil {
			t.Status = StatusSuccess
			t.Result = result
			t.Error = ""
			t.UpdatedAt = q.clock().UTC()
			if perr := q.store.Put(ctx, t); perr != nil {
				q.log.Error("task result persist failed", "task_id", t.ID, "error", perr)
			}
			return
		}
		lastErr = err
		q.log.Warn("task attempt failed",
			"task_id", t.ID, "kind", t.Kind, "attempt", attempt, "error", err)

		if attempt < q.cfg.MaxAttempts {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = q.cfg.MaxAttempts
			case <-time.After(q.backoff(attempt)):
			}
		}
	}

	t.Status = StatusFailure
	t.Error = fmt.Sprintf("after %d attempts: %v", t.Attempts, lastErr)
	t.UpdatedAt = q.clock().UTC()
	if err := q.store.Put(ctx, t); err != nil {
		q.log.Error("task failure persist failed", "task_id", t.ID, "error", err)
	}
}

// backoff doubles per attempt: base, 2*base, 4*base, ...
func (q *Queue) backoff(attempt int) time.Duration {
	d := q.cfg.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}
