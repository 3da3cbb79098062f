package worker

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

func TestPool_RunsTasks(t *testing.T) {
	p := NewPool(3, 10)

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(Task{
			Work: func(ctx context.Context) error { ran.Add(1); return nil },
			Done: func(err error) { assert.NoError(t, err); wg.Done() },
		}))
	}
	wg.Wait()
	p.Shutdown()
	assert.Equal(t, int32(10), ran.Load())
}

func TestPool_QueueFull(t *testing.T) {
	p := NewPool(1, 1)
	release := make(chan struct{})

	var done sync.WaitGroup
	var full bool
	for i := 0; i < 10 && !full; i++ {
		done.Add(1)
		err := p.Submit(Task{
			Work: func(ctx context.Context) error { <-release; return nil },
			Done: func(error) { done.Done() },
		})
		if errors.Is(err, ErrQueueFull) {
			done.Done()
			full = true
		}
	}
	assert.True(t, full)

	close(release)
	p.Shutdown()
	done.Wait()
}

func TestPool_Shutdown(t *testing.T) {
	p := NewPool(1, 4)
	p.Shutdown()
	p.Shutdown()

	err := p.Submit(Task{Work: func(ctx context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_CancelledTaskSkipsWork(t *testing.T) {
	p := NewPool(1, 1)
	defer p.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := make(chan error, 1)
	require.NoError(t, p.Submit(Task{
		Ctx:  ctx,
		Work: func(ctx context.Context) error { t.Error("work must not run"); return nil },
		Done: func(err error) { got <- err },
	}))

	select {
	case err := <-got:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("task never finished")
	}
}
