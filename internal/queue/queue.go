// Package queue provides the Redis-backed background job queue: immediate
// jobs on a list, delayed jobs on a sorted set scored by run-at time. Jobs
// may be retried on handler failure, so handlers must be idempotent.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/theforge/forge/pkg/logger"
	storage "github.com/theforge/forge/pkg/redis"
	"github.com/theforge/forge/pkg/utils"
)

const (
	readyKey   = "forge:queue:ready"
	delayedKey = "forge:queue:delayed"

	// MaxAttempts bounds handler retries before a job is dropped.
	MaxAttempts = 3
)

// Job is the wire form of a queued unit of work.
type Job struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
	RunAt    time.Time       `json:"run_at"`
}

// Handler processes one job payload.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Dispatcher is the enqueue-side interface the rest of the app depends on.
// Tests substitute an in-memory implementation.
type Dispatcher interface {
	Enqueue(ctx context.Context, name string, payload interface{}) error
	EnqueueIn(ctx context.Context, delay time.Duration, name string, payload interface{}) error
}

// Queue is the Redis implementation of Dispatcher plus the worker loop.
type Queue struct {
	rclient  *storage.RedisClient
	log      *logger.Logger
	handlers map[string]Handler
}

func New(rclient *storage.RedisClient, log *logger.Logger) *Queue {
	return &Queue{
		rclient:  rclient,
		log:      log,
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to a job name. Not safe to call once the worker
// is running.
func (q *Queue) Register(name string, h Handler) {
	q.handlers[name] = h
}

// Enqueue pushes a job for immediate execution.
func (q *Queue) Enqueue(ctx context.Context, name string, payload interface{}) error {
	job, err := newJob(name, payload, time.Now())
	if err != nil {
		return err
	}
	data, _ := json.Marshal(job)
	if err := q.rclient.LPush(ctx, readyKey, data).Err(); err != nil {
		return utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to enqueue job")
	}
	return nil
}

// EnqueueIn schedules a job for execution after the given delay. Once
// scheduled the job cannot be cancelled; handlers re-check state at run time.
func (q *Queue) EnqueueIn(ctx context.Context, delay time.Duration, name string, payload interface{}) error {
	runAt := time.Now().Add(delay)
	job, err := newJob(name, payload, runAt)
	if err != nil {
		return err
	}
	data, _ := json.Marshal(job)
	member := redis.Z{Score: float64(runAt.UnixMilli()), Member: data}
	if err := q.rclient.ZAdd(ctx, delayedKey, member).Err(); err != nil {
		return utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to schedule job")
	}
	return nil
}

func newJob(name string, payload interface{}, runAt time.Time) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to encode job payload")
	}
	return &Job{
		ID:      uuid.NewString(),
		Name:    name,
		Payload: raw,
		RunAt:   runAt,
	}, nil
}
