package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testQueue(t *testing.T, cfg QueueConfig) (*Queue, context.CancelFunc) {
	t.Helper()
	q := NewQueue(NewMemoryStore(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	return q, cancel
}

func waitTerminal(t *testing.T, q *Queue, id string) Task {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		task, err := q.Poll(context.Background(), id)
		if err != nil {
			t.Fatalf("poll: %v", err)
		}
		if task.Status.Terminal() {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s never settled", id)
	return Task{}
}

func TestQueueSubmitAndPollSuccess(t *testing.T) {
	cfg := DefaultQueueConfig()
	cfg.BaseBackoff = time.Millisecond
	q, cancel := testQueue(t, cfg)
	defer cancel()

	release := make(chan struct{})
	q.Register("transcribe_turn", func(_ context.Context, payload json.RawMessage) (json.RawMessage, error) {
		<-release
		return json.RawMessage(`{"text":"tuesday morning"}`), nil
	})

	id, err := q.Submit(context.Background(), "transcribe_turn", json.RawMessage(`{"url":"http://example/rec"}`))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// While the handler is blocked the task must poll as not yet settled.
	task, err := q.Poll(context.Background(), id)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if task.Status.Terminal() {
		t.Fatalf("task settled before handler finished: %s", task.Status)
	}

	close(release)
	task = waitTerminal(t, q, id)
	if task.Status != StatusSuccess {
		t.Fatalf("expected SUCCESS, got %s (%s)", task.Status, task.Error)
	}
	if string(task.Result) != `{"text":"tuesday morning"}` {
		t.Fatalf("unexpected result: %s", task.Result)
	}
}

func TestQueueRetriesThenSucceeds(t *testing.T) {
	cfg := DefaultQueueConfig()
	cfg.BaseBackoff = time.Millisecond
	q, cancel := testQueue(t, cfg)
	defer cancel()

	var calls atomic.Int32
	q.Register("flaky", func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("upstream timeout")
		}
		return json.RawMessage(`"ok"`), nil
	})

	id, err := q.Submit(context.Background(), "flaky", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	task := waitTerminal(t, q, id)
	if task.Status != StatusSuccess {
		t.Fatalf("expected SUCCESS after retries, got %s (%s)", task.Status, task.Error)
	}
	if task.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", task.Attempts)
	}
}

func TestQueueExhaustedRetriesFail(t *testing.T) {
	cfg := DefaultQueueConfig()
	cfg.BaseBackoff = time.Millisecond
	cfg.MaxAttempts = 2
	q, cancel := testQueue(t, cfg)
	defer cancel()

	q.Register("doomed", func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return nil, errors.New("permanent failure")
	})

	id, err := q.Submit(context.Background(), "doomed", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	task := waitTerminal(t, q, id)
	if task.Status != StatusFailure {
		t.Fatalf("expected FAILURE, got %s", task.Status)
	}
	if task.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", task.Attempts)
	}
	if task.Error == "" {
		t.Fatalf("expected error detail on failed task")
	}
}

func TestQueueRejectsUnknownKind(t *testing.T) {
	q, cancel := testQueue(t, DefaultQueueConfig())
	defer cancel()

	if _, err := q.Submit(context.Background(), "nope", nil); err != ErrUnknownKind {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestMemoryStoreUnknownTask(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "missing"); err != ErrTaskNotFound {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}
