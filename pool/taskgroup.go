package pool

import (
	"sync"
	"sync/atomic"

	"github.com/zhykzhykzhyk/polymer/cmn/debug"
	"github.com/zhykzhykzhyk/polymer/cmn/metrics"
)

// View is the per-worker accumulator a TaskGroup hands each cooperating
// goroutine. Apply is called exactly once per view, after that
// goroutine has exhausted the shards it claimed, and must fold the
// view's private state into the group's shared Data by calling
// reduce(fn) — never by touching Data directly, since other views may
// be folding concurrently.
type View[D any] interface {
	Apply(data D, reduce func(fn func()))
}

// Task is a unit of per-shard work. It receives the view instance this
// goroutine is accumulating into, passed explicitly rather than
// recovered from a thread-local map.
type Task[D any, V View[D]] func(w *Worker, shard int, view *V)

// TaskGroup is a shard counter shared by every cooperating worker, a
// single-use completion signal, and a serialized reducer chain that
// folds each worker's view into Data exactly once, one at a time,
// regardless of which worker's view finishes first.
type TaskGroup[D any, V View[D]] struct {
	data D
	task Task[D, V]

	shards    int64
	nextShard atomic.Int64
	nWorkers  atomic.Int64

	once sync.Once
	done chan struct{}

	// serialized reducer chain: the first goroutine to call Reduce
	// becomes the drainer and executes every pending closure, including
	// ones enqueued by other goroutines while it is draining, until the
	// queue is empty.
	rmu      sync.Mutex
	draining bool
	pending  []func()
}

// New builds a TaskGroup over data, ready to Start.
func New[D any, V View[D]](data D) *TaskGroup[D, V] {
	return &TaskGroup[D, V]{data: data, done: make(chan struct{})}
}

// Data returns the shared data every view's Apply folds into.
func (tg *TaskGroup[D, V]) Data() D { return tg.data }

// Start arms the group to dispatch over [0, shards) and installs the
// per-shard task. Must be called before the group is ever queued.
func (tg *TaskGroup[D, V]) Start(shards int, task Task[D, V]) {
	tg.shards = int64(shards)
	tg.task = task
	if shards == 0 {
		tg.signalDone()
	}
}

// Done reports whether every shard has been claimed by some worker
// (not whether every view has finished reducing — see Wait).
func (tg *TaskGroup[D, V]) Done() bool {
	return tg.shards == 0 || tg.nextShard.Load() >= tg.shards
}

// run is the pool worker-loop entry point: claim shards one at a time
// until none remain, running task(shard, &view) for each, then fold
// this goroutine's view into Data via reduce. A panicking task still
// lets the group reach completion — the deferred guard below recovers
// it so that bookkeeping and the done-channel close happen first, and
// only then re-panics to the pool worker loop.
func (tg *TaskGroup[D, V]) run(w *Worker) {
	tg.nWorkers.Add(1)
	shard := tg.nextShard.Add(1) - 1
	if shard >= tg.shards {
		if tg.nWorkers.Add(-1) == 0 && tg.Done() {
			tg.signalDone()
		}
		return
	}

	var view V
	var taskPanic any

	func() {
		defer func() {
			if r := recover(); r != nil {
				taskPanic = r
			}
		}()
		for shard < tg.shards {
			next := tg.nextShard.Add(1) - 1
			tg.task(w, int(shard), &view)
			shard = next
		}
	}()

	view.Apply(tg.data, tg.reduce)

	// Every run() call counts itself in nWorkers before it claims a
	// shard, so nWorkers stays above zero while any claimed shard is
	// still being processed or its view is still unreduced; reaching
	// zero with every shard claimed therefore means all of that work
	// has finished.
	if tg.nWorkers.Add(-1) == 0 {
		debug.Assert(tg.Done(), "all workers drained before dispatch finished")
		if tg.Done() {
			tg.signalDone()
		}
	}

	if taskPanic != nil {
		panic(taskPanic)
	}
}

// reduce serializes fn against every other goroutine's reduce call for
// this group. The first caller drains: it runs fn, then keeps draining
// tg.pending until empty, so every closure appended while it holds the
// drainer role is guaranteed to run before this group's dispatcher
// considers the group's workers drained (run, above, only decrements
// nWorkers — and only checks for completion — after its own call to
// reduce returns). Later callers either get appended to the drainer's
// queue (if one is active) or, finding none, become the new drainer
// themselves and run fn synchronously before returning.
func (tg *TaskGroup[D, V]) reduce(fn func()) {
	tg.rmu.Lock()
	if tg.draining {
		tg.pending = append(tg.pending, fn)
		tg.rmu.Unlock()
		return
	}
	tg.draining = true
	tg.rmu.Unlock()

	fn()
	metrics.ReducerInvocations.Inc()

	for {
		tg.rmu.Lock()
		if len(tg.pending) == 0 {
			tg.draining = false
			tg.rmu.Unlock()
			return
		}
		next := tg.pending[0]
		tg.pending = tg.pending[1:]
		tg.rmu.Unlock()

		next()
		metrics.ReducerInvocations.Inc()
	}
}

func (tg *TaskGroup[D, V]) signalDone() {
	tg.once.Do(func() { close(tg.done) })
}

// Wait blocks until every shard has been claimed AND every claiming
// worker's view has been folded in via reduce — i.e. until Data is
// stable for the caller to read. Returns nil; the error return exists
// so callers can uniformly propagate a future cancellation-aware
// variant without changing their call sites.
func (tg *TaskGroup[D, V]) Wait() error {
	<-tg.done
	return nil
}
