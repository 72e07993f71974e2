package processor

import (
	"context"
	"sync"
	"time"

	"github.com/remeh/sizedwaitgroup"

	pkglog "github.com/weiawesome/wes-io-live/profile-image-service/pkg/log"
)

type taskExec struct {
	description string
	fn          func(ctx context.Context)
}

// TaskQueue runs background work on a bounded number of goroutines.
// It satisfies upload.Runner.
type TaskQueue struct {
	wg        sizedwaitgroup.SizedWaitGroup
	tasks     chan taskExec
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewTaskQueue starts a queue that executes until ctx is cancelled or Close is called.
func NewTaskQueue(ctx context.Context, queueSize int, workers int) *TaskQueue {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	ret := &TaskQueue{
		wg:    sizedwaitgroup.New(workers),
		tasks: make(chan taskExec, queueSize),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	go ret.executer(ctx)

	return ret
}

// Add enqueues fn. It never blocks the caller; when the buffer is full the
// send is retried from a goroutine.
func (tq *TaskQueue) Add(description string, fn func(ctx context.Context)) {
	t := taskExec{description: description, fn: fn}

	select {
	case <-tq.quit:
		return
	default:
	}

	select {
	case tq.tasks <- t:
	case <-tq.quit:
	default:
		go func() {
			select {
			case tq.tasks <- t:
			case <-tq.quit:
			}
		}()
	}
}

// Close stops accepting work, runs what is already queued and waits for it to finish.
func (tq *TaskQueue) Close() {
	tq.closeOnce.Do(func() { close(tq.quit) })
	<-tq.done
}

func (tq *TaskQueue) executer(ctx context.Context) {
	defer close(tq.done)
	defer tq.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tq.quit:
			tq.drain(ctx)
			return
		case t := <-tq.tasks:
			tq.run(ctx, t)
		}
	}
}

func (tq *TaskQueue) drain(ctx context.Context) {
	for {
		select {
		case t := <-tq.tasks:
			tq.run(ctx, t)
		default:
			return
		}
	}
}

func (tq *TaskQueue) run(ctx context.Context, t taskExec) {
	tq.wg.Add()
	go func() {
		defer tq.wg.Done()
		execute(ctx, t)
	}()
}

func execute(ctx context.Context, t taskExec) {
	l := pkglog.Ctx(ctx)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			l.Error().Interface("panic", r).Str(pkglog.FieldTask, t.description).Msg("task panicked")
		}
	}()

	t.fn(ctx)

	l.Debug().
		Str(pkglog.FieldTask, t.description).
		Dur("took", time.Since(start)).
		Msg("task finished")
}
