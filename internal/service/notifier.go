package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/sandeepkv93/project-tracker-backend/internal/observability"
)

const (
	TaskSendTelegram     = "send_telegram"
	TaskSendMailRegister = "send_mail_register"
	TaskSendMailDelete   = "send_mail_delete"
)

// TaskQueue hands a named job to an external worker.
type TaskQueue interface {
	Enqueue(ctx context.Context, task string, payload map[string]any) error
}

type QueuedTask struct {
	ID         string         `json:"id"`
	Task       string         `json:"task"`
	Payload    map[string]any `json:"payload"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

// LogTaskQueue writes jobs to the log instead of a broker. Used in development.
type LogTaskQueue struct {
	logger *slog.Logger
}

func NewLogTaskQueue(logger *slog.Logger) *LogTaskQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTaskQueue{logger: logger}
}

func (q *LogTaskQueue) Enqueue(ctx context.Context, task string, payload map[string]any) error {
	q.logger.InfoContext(ctx, "notification enqueued", "task", task, "payload", payload)
	return nil
}

// RedisTaskQueue LPUSHes JSON-encoded jobs onto a list for workers to BRPOP.
type RedisTaskQueue struct {
	client redis.UniversalClient
	key    string
	now    func() time.Time
}

func NewRedisTaskQueue(client redis.UniversalClient, key string) *RedisTaskQueue {
	if key == "" {
		key = "notifications"
	}
	return &RedisTaskQueue{client: client, key: key, now: time.Now}
}

func (q *RedisTaskQueue) Enqueue(ctx context.Context, task string, payload map[string]any) error {
	if q.client == nil {
		return fmt.Errorf("redis task queue: client not configured")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(QueuedTask{ID: id.String(), Task: task, Payload: payload, EnqueuedAt: q.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode %s: %w", task, err)
	}
	return q.client.LPush(ctx, q.key, raw).Err()
}

// Notifier fires side effects without blocking the caller.
type Notifier interface {
	Notify(ctx context.Context, task string, payload map[string]any)
}

// AsyncNotifier enqueues each notification on its own goroutine. The request
// context's values are kept but its cancellation is not, so a finished
// request does not abort the enqueue. Failures are logged and counted only.
type AsyncNotifier struct {
	queue     TaskQueue
	logger    *slog.Logger
	timeout   time.Duration
	retries   uint64
	retryBase time.Duration
	wg        sync.WaitGroup
}

func NewAsyncNotifier(queue TaskQueue, logger *slog.Logger, timeout time.Duration) *AsyncNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AsyncNotifier{queue: queue, logger: logger, timeout: timeout}
}

// WithRetry re-attempts a failed enqueue up to retries more times with
// exponential backoff starting at base. All attempts share the notify timeout.
func (n *AsyncNotifier) WithRetry(retries int, base time.Duration) *AsyncNotifier {
	if retries > 0 && base > 0 {
		n.retries = uint64(retries)
		n.retryBase = base
	}
	return n
}

func (n *AsyncNotifier) enqueue(ctx context.Context, task string, payload map[string]any) error {
	if n.retries == 0 {
		return n.queue.Enqueue(ctx, task, payload)
	}
	backoff := retry.WithMaxRetries(n.retries, retry.NewExponential(n.retryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := n.queue.Enqueue(ctx, task, payload); err != nil {
			observability.RecordNotificationEnqueue(ctx, task, "retry")
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (n *AsyncNotifier) Notify(ctx context.Context, task string, payload map[string]any) {
	if n == nil || n.queue == nil {
		return
	}
	base := context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(base, n.timeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				observability.RecordNotificationEnqueue(ctx, task, "panic")
				n.logger.ErrorContext(ctx, "notification enqueue panicked", "task", task, "panic", r)
			}
		}()
		if err := n.enqueue(ctx, task, payload); err != nil {
			observability.RecordNotificationEnqueue(ctx, task, "error")
			n.logger.WarnContext(ctx, "notification enqueue failed", "task", task, "error", err)
			return
		}
		observability.RecordNotificationEnqueue(ctx, task, "enqueued")
	}()
}

// Wait blocks until in-flight notifications finish or ctx is done.
func (n *AsyncNotifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
