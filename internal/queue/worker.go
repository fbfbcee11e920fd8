package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	popTimeout   = 2 * time.Second
	promoteEvery = 1 * time.Second
	promoteBatch = 100
)

// Work runs the worker loop until ctx is cancelled: promote due delayed jobs
// onto the ready list, then block-pop and dispatch.
func (q *Queue) Work(ctx context.Context) {
	ticker := time.NewTicker(promoteEvery)
	defer ticker.Stop()

	q.log.Info(ctx).Logs("Queue worker started")
	for {
		select {
		case <-ctx.Done():
			q.log.Info(context.Background()).Logs("Queue worker stopped")
			return
		case <-ticker.C:
			if err := q.promoteDue(ctx); err != nil && ctx.Err() == nil {
				q.log.Warn(ctx).WithFields("error", err.Error()).Logs("Failed to promote delayed jobs")
			}
		default:
			q.popAndDispatch(ctx)
		}
	}
}

// promoteDue moves delayed jobs whose run-at has passed onto the ready list.
func (q *Queue) promoteDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	members, err := q.rclient.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: promoteBatch,
	}).Result()
	if err != nil {
		return err
	}
	for _, m := range members {
		// Only the claimer of the ZREM promotes; concurrent workers skip.
		removed, err := q.rclient.ZRem(ctx, delayedKey, m).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		if err := q.rclient.LPush(ctx, readyKey, m).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queue) popAndDispatch(ctx context.Context) {
	res, err := q.rclient.BRPop(ctx, popTimeout, readyKey).Result()
	if err != nil {
		// redis.Nil on timeout; anything else is logged and backed off.
		if err != redis.Nil && ctx.Err() == nil {
			q.log.Warn(ctx).WithFields("error", err.Error()).Logs("Queue pop failed")
			time.Sleep(time.Second)
		}
		return
	}
	if len(res) != 2 {
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		q.log.Warn(ctx).WithFields("error", err.Error()).Logs("Discarding undecodable job")
		return
	}
	q.dispatch(ctx, &job)
}

func (q *Queue) dispatch(ctx context.Context, job *Job) {
	handler, ok := q.handlers[job.Name]
	if !ok {
		q.log.Warn(ctx).WithFields("job", job.Name).Logs("No handler registered for job")
		return
	}

	job.Attempts++
	if err := handler(ctx, job.Payload); err != nil {
		q.log.Warn(ctx).
			WithFields("job", job.Name, "id", job.ID, "attempt", fmt.Sprint(job.Attempts), "error", err.Error()).
			Logs("Job handler failed")
		if job.Attempts < MaxAttempts {
			q.requeue(ctx, job)
		} else {
			q.log.Error(ctx).WithFields("job", job.Name, "id", job.ID).Logs("Job dropped after max attempts")
		}
		return
	}
	q.log.Debug(ctx).WithFields("job", job.Name, "id", job.ID).Logs("Job completed")
}

// requeue schedules a failed job for another attempt with linear backoff.
func (q *Queue) requeue(ctx context.Context, job *Job) {
	job.RunAt = time.Now().Add(RetryBackoff(job.Attempts))
	data, _ := json.Marshal(job)
	member := redis.Z{Score: float64(job.RunAt.UnixMilli()), Member: data}
	if err := q.rclient.ZAdd(ctx, delayedKey, member).Err(); err != nil {
		q.log.Error(ctx).WithFields("job", job.Name, "error", err.Error()).Logs("Failed to requeue job")
	}
}

// RetryBackoff returns the delay before the given (1-based) retry attempt.
func RetryBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * 30 * time.Second
}
