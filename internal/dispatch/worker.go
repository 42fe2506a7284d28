package dispatch

import (
	"context"
	"errors"
	"sync"

	"phemex-trade-client/internal/gateway"
	"phemex-trade-client/internal/metrics"

	"go.uber.org/zap"
)

// Task runs one gateway call. The closure captures its own result; the
// worker only carries the error back.
type Task func(ctx context.Context) error

type job struct {
	name string
	ctx  context.Context
	task Task
	done chan error
}

// Worker serializes gateway calls on a single goroutine. Every task is
// preceded by a market metadata reload so that price and amount precision
// are computed against fresh tick and lot sizes. The reload is unconditional
// per call; correctness over efficiency.
//
// The worker never retries. Failures keep their original classification
// (network vs exchange) and are returned to the caller as-is.
type Worker struct {
	reload func(ctx context.Context) error
	log    *zap.Logger
	meter  *metrics.Metrics

	jobs chan job

	startOnce sync.Once
	stopOnce  sync.Once
	stopped   chan struct{}
}

var ErrWorkerStopped = errors.New("dispatch worker stopped")

// New builds a worker. reload is called before every task; it is typically a
// closure over Gateway.LoadMarkets plus the shared market catalog update.
func New(reload func(ctx context.Context) error, log *zap.Logger, meter *metrics.Metrics) *Worker {
	if meter == nil {
		meter = metrics.NewNoop()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		reload:  reload,
		log:     log,
		meter:   meter,
		jobs:    make(chan job),
		stopped: make(chan struct{}),
	}
}

// Start launches the worker goroutine. Safe to call more than once.
func (w *Worker) Start() {
	w.startOnce.Do(func() {
		go w.run()
	})
}

// Stop shuts the worker down. Tasks submitted after Stop fail with
// ErrWorkerStopped; the in-flight task, if any, finishes first.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopped)
	})
}

// Do runs task on the worker goroutine and blocks until it finishes. Tasks
// submitted from one goroutine execute in submission order. There is no
// cooperative cancellation of an in-flight gateway call: ctx only guards the
// hand-off, a stuck call blocks the queue until its own transport timeout.
func (w *Worker) Do(ctx context.Context, name string, task Task) error {
	w.Start()
	select {
	case <-w.stopped:
		return ErrWorkerStopped
	default:
	}
	j := job{name: name, ctx: ctx, task: task, done: make(chan error, 1)}
	select {
	case w.jobs <- j:
	case <-w.stopped:
		return ErrWorkerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-j.done:
		return err
	case <-w.stopped:
		return ErrWorkerStopped
	}
}

func (w *Worker) run() {
	for {
		select {
		case <-w.stopped:
			return
		case j := <-w.jobs:
			j.done <- w.execute(j)
		}
	}
}

func (w *Worker) execute(j job) error {
	w.meter.TasksDispatched.Inc()
	if w.reload != nil {
		if err := w.reload(j.ctx); err != nil {
			w.meter.TasksFailed.Inc()
			w.logFailure("market reload", err)
			return err
		}
	}
	if err := j.task(j.ctx); err != nil {
		w.meter.TasksFailed.Inc()
		w.logFailure(j.name, err)
		return err
	}
	w.log.Debug("task done", zap.String("task", j.name))
	return nil
}

func (w *Worker) logFailure(name string, err error) {
	switch {
	case gateway.IsNetwork(err):
		w.log.Warn("task failed: network", zap.String("task", name), zap.Error(err))
	case gateway.IsExchange(err):
		w.log.Warn("task failed: exchange", zap.String("task", name), zap.Error(err))
	default:
		w.log.Warn("task failed", zap.String("task", name), zap.Error(err))
	}
}
