package queue

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/podforge/podforge/pkg/adapters"
	"github.com/podforge/podforge/pkg/metrics"
)

const defaultRetryLimit = 3

// PushTask is one queued push attempt. Attempt counts executed attempts so
// far; RetryAt delays re-deliveries scheduled with backoff.
type PushTask struct {
	TaskID  string    `json:"task_id"`
	DraftID string    `json:"draft_id"`
	Attempt int       `json:"attempt"`
	RetryAt time.Time `json:"retry_at,omitempty"`
}

type Handler func(context.Context, *PushTask) error

// Enqueuer is what the API server needs: fire-and-forget submission.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *PushTask) error
}

// RedisQueue is a durable list-backed work queue consumed by worker
// processes. Delivery is at-least-once with no cross-draft ordering.
type RedisQueue struct {
	client      redis.UniversalClient
	name        string
	retryLimit  int
	backoffBase time.Duration
	logger      *zap.Logger
}

func NewRedisQueue(client redis.UniversalClient, name string, retryLimit int, backoffBase time.Duration, logger *zap.Logger) *RedisQueue {
	if retryLimit <= 0 {
		retryLimit = defaultRetryLimit
	}
	if backoffBase <= 0 {
		backoffBase = 2 * time.Second
	}
	return &RedisQueue{
		client:      client,
		name:        name,
		retryLimit:  retryLimit,
		backoffBase: backoffBase,
		logger:      logger,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, task *PushTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.name, payload).Err()
}

func (q *RedisQueue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}

// Consume blocks on the queue and runs the handler per task. Transient
// failures (adapter errors) are re-enqueued with exponential backoff up to
// the retry limit. Everything else is dropped; the pipeline has already
// recorded the failure on the draft and its job run.
func (q *RedisQueue) Consume(ctx context.Context, handler Handler) error {
	if handler == nil {
		return errors.New("push task handler is required")
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, err := q.client.BRPop(ctx, 2*time.Second, q.name).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return err
		}
		if len(result) < 2 {
			continue
		}

		var task PushTask
		if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
			q.logger.Error("failed to decode push task", zap.Error(err))
			continue
		}

		// A deferred task goes back to the end of the line instead of
		// blocking the consumer, so tasks queued behind it are not
		// head-of-line delayed for the backoff window. The short pause
		// keeps a lone deferred task from spinning the loop.
		if delay := time.Until(task.RetryAt); delay > 0 {
			if err := q.Enqueue(ctx, &task); err != nil {
				q.logger.Error("failed to defer push task",
					zap.String("task_id", task.TaskID),
					zap.Error(err))
			}
			if err := q.pause(ctx, DeferralPause(delay)); err != nil {
				return err
			}
			continue
		}

		if err := handler(ctx, &task); err != nil {
			q.handleFailure(ctx, &task, err)
		}
	}
}

// DeferralPause bounds how long the consumer sleeps after re-enqueueing a
// not-yet-due task: the remaining delay, capped so newly enqueued work is
// picked up promptly.
func DeferralPause(delay time.Duration) time.Duration {
	const maxPause = time.Second
	if delay < maxPause {
		return delay
	}
	return maxPause
}

func (q *RedisQueue) pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (q *RedisQueue) handleFailure(ctx context.Context, task *PushTask, handlerErr error) {
	if !adapters.IsServiceError(handlerErr) || task.Attempt >= q.retryLimit {
		q.logger.Warn("push task exhausted",
			zap.String("task_id", task.TaskID),
			zap.String("draft_id", task.DraftID),
			zap.Int("attempt", task.Attempt),
			zap.Error(handlerErr))
		return
	}

	retry := &PushTask{
		TaskID:  task.TaskID,
		DraftID: task.DraftID,
		Attempt: task.Attempt + 1,
		RetryAt: time.Now().Add(Backoff(q.backoffBase, task.Attempt+1)),
	}
	metrics.PushRetriesTotal.Inc()
	if err := q.Enqueue(ctx, retry); err != nil {
		q.logger.Error("failed to re-enqueue push task",
			zap.String("task_id", task.TaskID),
			zap.Error(err))
	}
}

// Backoff returns the exponential delay before the given retry attempt
// (attempt 1 = first retry): base * 2^(attempt-1).
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
}

// EagerQueue executes tasks inline on Enqueue, applying the same bounded
// retry policy without delays. Used in development without a worker and in
// tests.
type EagerQueue struct {
	handler    Handler
	retryLimit int
}

func NewEagerQueue(handler Handler, retryLimit int) *EagerQueue {
	if retryLimit <= 0 {
		retryLimit = defaultRetryLimit
	}
	return &EagerQueue{handler: handler, retryLimit: retryLimit}
}

func (q *EagerQueue) Enqueue(ctx context.Context, task *PushTask) error {
	current := *task
	for {
		err := q.handler(ctx, &current)
		if err == nil {
			return nil
		}
		if !adapters.IsServiceError(err) || current.Attempt >= q.retryLimit {
			return nil
		}
		metrics.PushRetriesTotal.Inc()
		current.Attempt++
	}
}
