package commandqueue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/harun/ctx/internal/observability"
	"github.com/harun/ctx/internal/tracing"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
)

// ErrClosed is returned when enqueueing on a closed queue
var ErrClosed = fmt.Errorf("command queue is closed")

// Task is one unit of work run on a lane
type Task func(ctx context.Context) (interface{}, error)

// TaskOptions configures a single task
type TaskOptions struct {
	// WarnAfter triggers OnWait if the task has not started by then
	WarnAfter time.Duration
	OnWait    func(wait time.Duration, queuePos int)
}

// Result is the outcome of a finished task
type Result struct {
	Value interface{}
	Err   error
}

// LaneStats is a snapshot of one lane
type LaneStats struct {
	Queued  int  // waiting to start
	Running bool // a task is executing
}

type taskRecord struct {
	id         string
	task       Task
	ctx        context.Context
	enqueuedAt time.Time
	options    TaskOptions
	result     chan Result
}

// lane runs its tasks one at a time in FIFO order
type lane struct {
	pending []*taskRecord
	busy    bool
}

// CommandQueue serializes tasks per lane. Lanes are created on first use
// and dropped once they run dry.
type CommandQueue struct {
	mu     sync.Mutex
	lanes  map[string]*lane
	queued map[string]int // waiting tasks per lane class
	seq    uint64
	active int           // queued plus running, across lanes
	idle   chan struct{} // closed when active drops to zero
	closed bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an empty CommandQueue
func New() *CommandQueue {
	observability.EnsureRegistered()

	ctx, cancel := context.WithCancel(context.Background())
	return &CommandQueue{
		lanes:  make(map[string]*lane),
		queued: make(map[string]int),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Enqueue adds a task to the specified lane and waits for its result
func (cq *CommandQueue) Enqueue(lane string, task Task, options *TaskOptions) (interface{}, error) {
	return cq.EnqueueWithContext(context.Background(), lane, task, options)
}

// EnqueueWithContext adds a task to the specified lane and waits for its
// result. The task runs with ctx, cancelled early if the queue closes.
func (cq *CommandQueue) EnqueueWithContext(ctx context.Context, lane string, task Task, options *TaskOptions) (interface{}, error) {
	resultCh, err := cq.EnqueueAsync(ctx, lane, task, options)
	if err != nil {
		return nil, err
	}
	result := <-resultCh
	return result.Value, result.Err
}

// EnqueueAsync adds a task to the specified lane and returns at once. The
// task's place in the lane is fixed when EnqueueAsync returns; its result
// arrives on the returned channel.
func (cq *CommandQueue) EnqueueAsync(ctx context.Context, name string, task Task, options *TaskOptions) (<-chan Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opts := TaskOptions{}
	if options != nil {
		opts = *options
	}

	cq.mu.Lock()
	if cq.closed {
		cq.mu.Unlock()
		return nil, ErrClosed
	}

	cq.seq++
	record := &taskRecord{
		id:         fmt.Sprintf("%s-%d", name, cq.seq),
		task:       task,
		ctx:        ctx,
		enqueuedAt: time.Now(),
		options:    opts,
		result:     make(chan Result, 1),
	}

	l, ok := cq.lanes[name]
	if !ok {
		l = &lane{}
		cq.lanes[name] = l
	}
	l.pending = append(l.pending, record)
	class := laneClass(name)
	cq.queued[class]++
	if cq.active == 0 {
		cq.idle = make(chan struct{})
	}
	cq.active++
	cq.startNext(name, l)
	queued := len(l.pending)
	classQueued := cq.queued[class]
	cq.mu.Unlock()

	logger := tracing.LoggerFromContext(ctx, log.Logger)
	logger.Debug().
		Str("lane", name).
		Str("taskId", record.id).
		Int("queued", queued).
		Msg("Task enqueued")
	observability.RecordQueueEnqueue(class, classQueued)

	if opts.WarnAfter > 0 {
		go cq.warnIfWaiting(name, record)
	}

	return record.result, nil
}

// startNext starts the head of the lane unless the lane is busy. Caller
// holds mu.
func (cq *CommandQueue) startNext(name string, l *lane) {
	if l.busy || len(l.pending) == 0 {
		return
	}

	record := l.pending[0]
	l.pending[0] = nil
	l.pending = l.pending[1:]
	l.busy = true
	cq.queued[laneClass(name)]--

	cq.wg.Add(1)
	go cq.run(name, l, record)
}

// run executes one task, publishes its result and moves the lane on
func (cq *CommandQueue) run(name string, l *lane, record *taskRecord) {
	defer cq.wg.Done()

	logger := tracing.LoggerFromContext(record.ctx, log.Logger)

	runCtx, cancel := context.WithCancel(record.ctx)
	stop := context.AfterFunc(cq.ctx, cancel)

	var (
		value interface{}
		err   error
		pc    panics.Catcher
	)
	started := time.Now()
	pc.Try(func() {
		value, err = record.task(runCtx)
	})
	elapsed := time.Since(started)
	stop()
	cancel()

	if r := pc.Recovered(); r != nil {
		err = fmt.Errorf("task %s panicked: %v", record.id, r.Value)
	}

	cq.mu.Lock()
	record.result <- Result{Value: value, Err: err}
	close(record.result)

	l.busy = false
	if len(l.pending) == 0 {
		delete(cq.lanes, name)
	} else {
		cq.startNext(name, l)
	}
	cq.active--
	if cq.active == 0 {
		close(cq.idle)
	}
	class := laneClass(name)
	classQueued := cq.queued[class]
	cq.mu.Unlock()

	if err != nil {
		logger.Error().
			Str("lane", name).
			Str("taskId", record.id).
			Dur("duration", elapsed).
			Err(err).
			Msg("Task failed")
	} else {
		logger.Debug().
			Str("lane", name).
			Str("taskId", record.id).
			Dur("duration", elapsed).
			Msg("Task completed")
	}
	observability.RecordQueueCompletion(class, elapsed, err == nil, classQueued)
}

// laneClass strips the per-conversation suffix, so "chat-42" reports as
// "chat". Metrics are labeled by class to keep their series bounded.
func laneClass(name string) string {
	if i := strings.IndexByte(name, '-'); i > 0 {
		return name[:i]
	}
	return name
}

// warnIfWaiting calls OnWait when the task is still queued after WarnAfter
func (cq *CommandQueue) warnIfWaiting(name string, record *taskRecord) {
	timer := time.NewTimer(record.options.WarnAfter)
	defer timer.Stop()

	select {
	case <-cq.ctx.Done():
		return
	case <-timer.C:
	}

	pos := -1
	cq.mu.Lock()
	if l, ok := cq.lanes[name]; ok {
		for i, r := range l.pending {
			if r == record {
				pos = i
				break
			}
		}
	}
	cq.mu.Unlock()
	if pos < 0 {
		return
	}

	wait := time.Since(record.enqueuedAt)
	log.Warn().
		Str("lane", name).
		Str("taskId", record.id).
		Dur("wait", wait).
		Int("queuePos", pos).
		Msg("Task waiting longer than expected")

	if record.options.OnWait != nil {
		record.options.OnWait(wait, pos)
	}
}

// Queued returns the number of tasks waiting to start on a lane
func (cq *CommandQueue) Queued(name string) int {
	cq.mu.Lock()
	defer cq.mu.Unlock()

	if l, ok := cq.lanes[name]; ok {
		return len(l.pending)
	}
	return 0
}

// Stats returns a snapshot of every live lane
func (cq *CommandQueue) Stats() map[string]LaneStats {
	cq.mu.Lock()
	defer cq.mu.Unlock()

	stats := make(map[string]LaneStats, len(cq.lanes))
	for name, l := range cq.lanes {
		stats[name] = LaneStats{Queued: len(l.pending), Running: l.busy}
	}
	return stats
}

// WaitForActive waits until no task is queued or running. It reports
// false if the timeout passes first.
func (cq *CommandQueue) WaitForActive(timeout time.Duration) bool {
	cq.mu.Lock()
	if cq.active == 0 {
		cq.mu.Unlock()
		return true
	}
	idle := cq.idle
	cq.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-idle:
		return true
	case <-timer.C:
		log.Warn().Dur("timeout", timeout).Msg("Timeout waiting for active tasks")
		return false
	}
}

// Close rejects new tasks, cancels running ones and waits for them to return
func (cq *CommandQueue) Close() error {
	cq.mu.Lock()
	cq.closed = true
	cq.mu.Unlock()

	cq.cancel()
	cq.wg.Wait()
	return nil
}
