package commandqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandQueue_BasicEnqueue(t *testing.T) {
	cq := New()
	defer cq.Close()

	executed := false
	task := func(ctx context.Context) (interface{}, error) {
		executed = true
		return "result", nil
	}

	result, err := cq.Enqueue("test", task, nil)

	assert.NoError(t, err)
	assert.Equal(t, "result", result)
	assert.True(t, executed)
}

func TestCommandQueue_TaskError(t *testing.T) {
	cq := New()
	defer cq.Close()

	expectedErr := errors.New("task failed")
	task := func(ctx context.Context) (interface{}, error) {
		return nil, expectedErr
	}

	result, err := cq.Enqueue("test", task, nil)

	assert.Error(t, err)
	assert.Equal(t, expectedErr, err)
	assert.Nil(t, result)
}

func TestCommandQueue_SerialExecution(t *testing.T) {
	cq := New()
	defer cq.Close()

	var running, maxRunning int32
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := func(ctx context.Context) (interface{}, error) {
				n := atomic.AddInt32(&running, 1)
				for {
					m := atomic.LoadInt32(&maxRunning)
					if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil, nil
			}
			_, _ = cq.Enqueue("chat-1", task, nil)
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning), "one task at a time per lane")
}

func TestCommandQueue_ConcurrentLanes(t *testing.T) {
	cq := New()
	defer cq.Close()

	release := make(chan struct{})
	started := make(chan string, 2)

	for _, lane := range []string{"chat-1", "chat-2"} {
		lane := lane
		go func() {
			_, _ = cq.Enqueue(lane, func(ctx context.Context) (interface{}, error) {
				started <- lane
				<-release
				return nil, nil
			}, nil)
		}()
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case lane := <-started:
			seen[lane] = true
		case <-time.After(time.Second):
			t.Fatal("lanes did not run in parallel")
		}
	}
	close(release)

	assert.True(t, seen["chat-1"])
	assert.True(t, seen["chat-2"])
}

func TestCommandQueue_Stats(t *testing.T) {
	cq := New()
	defer cq.Close()

	release := make(chan struct{})
	for i := 0; i < 3; i++ {
		_, err := cq.EnqueueAsync(context.Background(), "chat-7", func(ctx context.Context) (interface{}, error) {
			<-release
			return nil, nil
		}, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, LaneStats{Queued: 2, Running: true}, cq.Stats()["chat-7"])
	assert.Equal(t, 2, cq.Queued("chat-7"))
	assert.Equal(t, 0, cq.Queued("missing"))

	close(release)
	require.True(t, cq.WaitForActive(time.Second))
	assert.Empty(t, cq.Stats(), "drained lanes are dropped")
}

func TestCommandQueue_TaskPanic(t *testing.T) {
	cq := New()
	defer cq.Close()

	_, err := cq.Enqueue("chat-3", func(ctx context.Context) (interface{}, error) {
		panic("boom")
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked: boom")

	result, err := cq.Enqueue("chat-3", func(ctx context.Context) (interface{}, error) {
		return "next", nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "next", result, "the lane keeps working after a panic")
}

func TestCommandQueue_WaitForActive(t *testing.T) {
	cq := New()
	defer cq.Close()

	assert.True(t, cq.WaitForActive(0), "an empty queue is already drained")

	release := make(chan struct{})
	_, err := cq.EnqueueAsync(context.Background(), "test", func(ctx context.Context) (interface{}, error) {
		<-release
		return nil, nil
	}, nil)
	require.NoError(t, err)

	assert.False(t, cq.WaitForActive(20*time.Millisecond))

	close(release)
	assert.True(t, cq.WaitForActive(time.Second))
}

func TestCommandQueue_WarnAfter(t *testing.T) {
	cq := New()
	defer cq.Close()

	release := make(chan struct{})
	go func() {
		_, _ = cq.Enqueue("chat-1", func(ctx context.Context) (interface{}, error) {
			<-release
			return nil, nil
		}, nil)
	}()
	time.Sleep(10 * time.Millisecond)

	waited := make(chan int, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = cq.Enqueue("chat-1", func(ctx context.Context) (interface{}, error) {
			return nil, nil
		}, &TaskOptions{
			WarnAfter: 20 * time.Millisecond,
			OnWait: func(wait time.Duration, queuePos int) {
				waited <- queuePos
			},
		})
	}()

	select {
	case pos := <-waited:
		assert.Equal(t, 0, pos)
	case <-time.After(time.Second):
		t.Fatal("OnWait was not called")
	}
	close(release)
	<-done
}

func TestCommandQueue_Close(t *testing.T) {
	cq := New()

	started := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		_, err := cq.Enqueue("chat-1", func(ctx context.Context) (interface{}, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}, nil)
		errCh <- err
	}()

	<-started
	require.NoError(t, cq.Close())
	assert.ErrorIs(t, <-errCh, context.Canceled)

	_, err := cq.Enqueue("chat-1", func(ctx context.Context) (interface{}, error) {
		return nil, nil
	}, nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCommandQueue_EnqueueAsyncKeepsOrder(t *testing.T) {
	cq := New()
	defer cq.Close()

	var mu sync.Mutex
	var order []int

	results := make([]<-chan Result, 0, 5)
	for i := 0; i < 5; i++ {
		i := i
		ch, err := cq.EnqueueAsync(context.Background(), "chat-9", func(ctx context.Context) (interface{}, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i * 10, nil
		}, nil)
		require.NoError(t, err)
		results = append(results, ch)
	}

	for i, ch := range results {
		res := <-ch
		require.NoError(t, res.Err)
		assert.Equal(t, i*10, res.Value)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestLaneClass(t *testing.T) {
	tests := map[string]string{
		"chat-42": "chat",
		"chat--7": "chat",
		"test":    "test",
		"-odd":    "-odd",
	}
	for name, want := range tests {
		assert.Equal(t, want, laneClass(name), name)
	}
}

func TestCommandQueue_MetricsLabeledByClass(t *testing.T) {
	cq := New()
	defer cq.Close()

	for i := 0; i < 50; i++ {
		_, err := cq.Enqueue(fmt.Sprintf("chat-%d", 1000+i), func(ctx context.Context) (interface{}, error) {
			return nil, nil
		}, nil)
		require.NoError(t, err)
	}

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	lanes := map[string]bool{}
	for _, family := range families {
		switch family.GetName() {
		case "ctx_queue_size", "ctx_enqueue_total", "ctx_dequeue_total", "ctx_task_duration_seconds":
		default:
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "lane" {
					lanes[label.GetValue()] = true
				}
			}
		}
	}

	assert.True(t, lanes["chat"])
	for lane := range lanes {
		assert.NotContains(t, lane, "-", "conversation ids never become label values")
	}
}
