package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		seen = append(seen, job.ID)
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id}))
	}
	q.Stop(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
}

func TestQueueDrainsBufferAfterParentCancel(t *testing.T) {
	var processed int32
	release := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		<-release
		if ctx.Err() != nil {
			return ctx.Err()
		}
		atomic.AddInt32(&processed, 1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8})

	parent, cancel := context.WithCancel(context.Background())
	q.Start(parent)
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(Job{ID: string(rune('a' + i))}))
	}
	cancel()
	close(release)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	q.Stop(stopCtx)

	assert.Equal(t, int32(5), atomic.LoadInt32(&processed))
	assert.Equal(t, 0, q.Pending())
}

func TestQueueRejectsWhenStoppedOrFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})

	assert.ErrorIs(t, q.Enqueue(Job{ID: "early"}), ErrQueueStopped)

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{ID: "1"}))
	require.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(Job{ID: "2"}))
	assert.ErrorIs(t, q.Enqueue(Job{ID: "3"}), ErrQueueFull)

	close(block)
	q.Stop(context.Background())
	assert.ErrorIs(t, q.Enqueue(Job{ID: "late"}), ErrQueueStopped)
}

func TestQueueRetriesAndReportsResults(t *testing.T) {
	var (
		attempts int32
		failures int32
		success  = make(chan struct{})
	)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		close(success)
		return nil
	}, QueueConfig{
		Workers:    1,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnResult: func(job Job, err error, _ time.Duration) {
			if err != nil {
				atomic.AddInt32(&failures, 1)
			}
		},
	})
	q.Start(context.Background())
	defer q.Stop(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "retry"}))
	select {
	case <-success:
	case <-time.After(time.Second):
		t.Fatal("job was not retried")
	}
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))
	assert.EqualValues(t, 2, atomic.LoadInt32(&failures))
}

func TestQueueRecoversFromPanics(t *testing.T) {
	failed := make(chan error, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		panic("boom")
	}, QueueConfig{
		Workers: 1,
		OnResult: func(job Job, err error, _ time.Duration) {
			failed <- err
		},
	})
	q.Start(context.Background())
	defer q.Stop(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "panic"}))
	select {
	case err := <-failed:
		assert.ErrorContains(t, err, "panicked")
	case <-time.After(time.Second):
		t.Fatal("panic was not reported")
	}
}
