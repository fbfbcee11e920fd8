package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theforge/forge/internal/testutil"
)

func TestNewJob(t *testing.T) {
	runAt := time.Now().Add(time.Minute)
	job, err := newJob("comment.notify", map[string]string{"comment_id": "abc"}, runAt)
	require.NoError(t, err)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "comment.notify", job.Name)
	assert.Equal(t, runAt, job.RunAt)
	assert.Zero(t, job.Attempts)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, "abc", payload["comment_id"])

	_, err = newJob("bad", func() {}, runAt)
	assert.Error(t, err)
}

func TestDispatchRunsRegisteredHandler(t *testing.T) {
	q := New(nil, testutil.NewLogger(t))

	var got json.RawMessage
	q.Register("unit.test", func(ctx context.Context, payload json.RawMessage) error {
		got = payload
		return nil
	})

	job, err := newJob("unit.test", map[string]int{"n": 7}, time.Now())
	require.NoError(t, err)
	q.dispatch(context.Background(), job)

	assert.JSONEq(t, `{"n":7}`, string(got))
	assert.Equal(t, 1, job.Attempts)

	// Unknown jobs are logged and dropped, never dispatched.
	q.dispatch(context.Background(), &Job{Name: "unregistered"})
}

func TestRetryBackoffGrows(t *testing.T) {
	assert.Equal(t, 30*time.Second, RetryBackoff(1))
	assert.Equal(t, 60*time.Second, RetryBackoff(2))
	assert.Less(t, RetryBackoff(1), RetryBackoff(MaxAttempts))
}
