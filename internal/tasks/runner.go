package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/mcx/internal/shared"
)

// DefaultChunkSize is the number of tasks a parallel runner executes at once.
const DefaultChunkSize = 20

// Options configures how a [Runner] drains its queue.
type Options struct {
	Parallel            bool // Run chunks of tasks concurrently
	ChunkSize           int  // Tasks per parallel chunk
	AutoWipeQueueOnFail bool // Drop pending tasks after the first failure
	PropagateError      bool // Return the first task error from Process
}

// DefaultOptions returns sequential, error-propagating options.
func DefaultOptions() Options {
	return Options{ChunkSize: DefaultChunkSize, PropagateError: true}
}

// ParallelOptions returns options for a chunked parallel runner.
func ParallelOptions(chunk int) Options {
	o := DefaultOptions()
	o.Parallel = true
	if chunk > 0 {
		o.ChunkSize = chunk
	}
	return o
}

// Runner executes the tasks in its queue in FIFO order.
type Runner struct {
	id      string
	opts    Options
	queue   *Queue[Task]
	bus     *Bus
	logger  *log.Logger
	running atomic.Bool
}

// NewRunner creates a runner publishing to bus. A nil logger falls back to the default logger.
func NewRunner(bus *Bus, logger *log.Logger, opts Options) *Runner {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		id:     shared.GenerateID(),
		opts:   opts,
		queue:  NewQueue[Task](),
		bus:    bus,
		logger: logger,
	}
}

func (r *Runner) ID() string          { return r.id }
func (r *Runner) Options() Options    { return r.opts }
func (r *Runner) Queue() *Queue[Task] { return r.queue }
func (r *Runner) Bus() *Bus           { return r.bus }
func (r *Runner) Running() bool       { return r.running.Load() }

// Add appends tasks to the queue.
func (r *Runner) Add(tasks ...Task) {
	r.queue.Enqueue(tasks...)
}

// Events returns the event stream of the runner's bus.
func (r *Runner) Events() <-chan Event {
	if r.bus == nil {
		return nil
	}
	return r.bus.Events()
}

// Progress returns the progress stream of the runner's bus.
func (r *Runner) Progress() <-chan Progress {
	if r.bus == nil {
		return nil
	}
	return r.bus.Progress()
}

// Process drains the queue.
//
// A call made while another Process is in flight returns nil immediately. With PropagateError the first
// task failure is returned; otherwise failures are logged and processing continues.
func (r *Runner) Process(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		r.logger.Debug("runner already processing", "runner", r.id)
		return nil
	}
	defer r.running.Store(false)

	if r.opts.Parallel {
		return r.processParallel(ctx)
	}
	return r.processSequential(ctx)
}

func (r *Runner) processSequential(ctx context.Context) error {
	var completed, failed int
	var firstErr error

	for {
		t, ok := r.queue.Pop()
		if !ok {
			break
		}

		_, err := Execute(ctx, t, r.bus)
		completed++
		if err != nil {
			failed++
			r.handleFailure(t, err)
			if firstErr == nil {
				firstErr = err
			}
		}
		r.publish(completed, failed, 0)

		if err != nil && r.opts.PropagateError {
			return err
		}
	}

	if r.opts.PropagateError {
		return firstErr
	}
	return nil
}

func (r *Runner) processParallel(ctx context.Context) error {
	var mu sync.Mutex
	var completed, failed int

	for r.queue.Len() > 0 {
		chunk := r.queue.PopN(r.opts.ChunkSize)
		inflight := len(chunk)

		g, gctx := errgroup.WithContext(ctx)
		if !r.opts.PropagateError {
			g = &errgroup.Group{}
			gctx = ctx
		}

		for _, t := range chunk {
			g.Go(func() error {
				_, err := Execute(gctx, t, r.bus)

				mu.Lock()
				completed++
				inflight--
				if err != nil {
					failed++
				}
				c, f, p := completed, failed, inflight
				mu.Unlock()

				if err != nil {
					r.handleFailure(t, err)
				}
				r.publish(c, f, p)

				if r.opts.PropagateError {
					return err
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) handleFailure(t Task, err error) {
	switch {
	case shared.IsSignal(err):
		r.logger.Debug("task skipped", "task", t.Name(), "reason", err)
	case errors.Is(err, context.Canceled):
		r.logger.Debug("task cancelled", "task", t.Name())
	default:
		r.logger.Error("task failed", "task", t.Name(), "error", err)
	}

	if r.opts.AutoWipeQueueOnFail {
		r.logger.Warn("wiping pending tasks after failure", "runner", r.id, "pending", r.queue.Len())
		r.queue.Wipe()
	}
}

// publish reports completed against completed plus pending, so tasks added mid-run extend the total.
func (r *Runner) publish(completed, failed, inflight int) {
	r.bus.PublishProgress(Progress{
		RunnerID:  r.id,
		Completed: completed,
		Failed:    failed,
		Total:     completed + inflight + r.queue.Len(),
	})
}
