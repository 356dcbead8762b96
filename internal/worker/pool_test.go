package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testJob struct {
	executed *int32
}

func (j *testJob) Process(ctx context.Context) error {
	atomic.AddInt32(j.executed, 1)
	return nil
}

func TestPool(t *testing.T) {
	var executed int32
	pool := NewPool(2, 10, 0)
	pool.Start()

	job := &testJob{executed: &executed}
	assert.True(t, pool.Enqueue(job))
	assert.True(t, pool.Enqueue(job))

	require.Eventually(t, func() bool { return atomic.LoadInt32(&executed) == 2 }, time.Second, 5*time.Millisecond)
	pool.Stop()
}

func TestPool_StopDrainsQueue(t *testing.T) {
	var executed int32
	pool := NewPool(1, 10, 0)

	// not started yet, so jobs wait in the queue
	for i := 0; i < 5; i++ {
		require.True(t, pool.Enqueue(&testJob{executed: &executed}))
	}
	pool.Start()
	pool.Stop()

	assert.Equal(t, int32(5), atomic.LoadInt32(&executed))
	assert.False(t, pool.Enqueue(&testJob{executed: &executed}), "stopped pool rejects jobs")
	assert.NotPanics(t, pool.Stop, "Stop is idempotent")
}

func TestPool_EnqueueFullQueue(t *testing.T) {
	pool := NewPool(1, 1, 0)
	noop := JobFunc(func(context.Context) error { return nil })

	assert.True(t, pool.Enqueue(noop))
	assert.False(t, pool.Enqueue(noop))
}

func TestPool_JobTimeoutAndErrors(t *testing.T) {
	pool := NewPool(1, 1, 20*time.Millisecond)
	pool.Start()
	defer pool.Stop()

	done := make(chan error, 1)
	pool.Enqueue(JobFunc(func(ctx context.Context) error {
		<-ctx.Done()
		done <- ctx.Err()
		return errors.New("gave up")
	}))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("job context was never cancelled")
	}
}
