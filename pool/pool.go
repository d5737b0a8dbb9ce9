// Package pool implements the NUMA-pinned worker pool and the
// re-entrant, priority-scheduled task-group dispatch it runs: one OS
// thread per configured CPU, CPU-pinned, pulling (priority, TaskGroup)
// pairs off a max-heap.
//
// Re-entrancy (queueing both enqueues work and runs it inline on
// worker threads) is modeled without any thread-local lookup: every
// call into a TaskGroup threads an explicit *Worker identifying "the
// goroutine currently executing this", passing the view by argument
// through the task closure rather than via a static per-thread map. A
// nil *Worker means the caller is not a pool worker (e.g. the
// top-level client driver).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package pool

import (
	"container/heap"
	"math"
	"runtime"
	"sync"

	"github.com/zhykzhykzhyk/polymer/cmn/metrics"
	"github.com/zhykzhykzhyk/polymer/cmn/nlog"
	"github.com/zhykzhykzhyk/polymer/sys"
)

// MaxPriority is the priority the client façade submits top-level
// operator task groups at.
const MaxPriority = math.MaxInt32

// Runnable is anything the pool can schedule: a TaskGroup of any
// (D, View) instantiation satisfies this once its type parameters are
// concrete.
type Runnable interface {
	run(w *Worker)
	Done() bool
}

// Worker identifies the pool worker goroutine currently executing a
// task, threaded explicitly through Submit/run calls instead of a
// thread-local. Its zero value (nil *Worker) means "not a pool worker".
type Worker struct {
	pool *ThreadPool
	cpu  int
}

// ThreadPool is a fixed-size pool, one worker per CPU, each pinned to
// its CPU.
type ThreadPool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  prioQueue
	closed bool
	wg     sync.WaitGroup

	ncpu int
}

type heapItem struct {
	priority int64
	tg       Runnable
}

type prioQueue []heapItem

func (q prioQueue) Len() int            { return len(q) }
func (q prioQueue) Less(i, j int) bool  { return q[i].priority > q[j].priority } // max-heap
func (q prioQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *prioQueue) Push(x any)         { *q = append(*q, x.(heapItem)) }
func (q *prioQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// NewPool starts a pool with one worker per CPU reported by sys.NumCPU,
// each pinned to its CPU (a pinning failure is logged and that worker
// runs unpinned). The discovered NUMA topology is not used to bind a
// worker's memory policy to its node.
func NewPool() *ThreadPool {
	p := &ThreadPool{ncpu: sys.NumCPU()}
	p.cond = sync.NewCond(&p.mu)

	topo := sys.DiscoverTopology()
	for cpu := 0; cpu < p.ncpu; cpu++ {
		p.wg.Add(1)
		go p.workerLoop(cpu, topo)
	}
	return p
}

func (p *ThreadPool) workerLoop(cpu int, topo *sys.Topology) {
	defer p.wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if err := sys.PinCurrentThread(cpu); err != nil {
		nlog.Warningf("pool: failed to pin worker to cpu %d: %v", cpu, err)
	}
	_ = topo // no NUMA memory-policy binding is done here; the CPU
	// affinity above keeps this worker's allocations node-local on
	// typical first-touch kernels.

	w := &Worker{pool: p, cpu: cpu}

	for {
		p.mu.Lock()
		for len(p.items) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.items) == 0 && p.closed {
			p.mu.Unlock()
			return
		}
		item := heap.Pop(&p.items).(heapItem)
		if item.tg.Done() {
			p.mu.Unlock()
			continue
		}
		// re-insert at p-1 so other workers can join at slightly lower
		// priority, then let this thread proceed to execute it.
		heap.Push(&p.items, heapItem{priority: item.priority - 1, tg: item.tg})
		p.cond.Signal()
		p.mu.Unlock()

		metrics.ActiveWorkers.Inc()
		item.tg.run(w)
		metrics.ActiveWorkers.Dec()
	}
}

// Queue inserts (priority, tg) into the pool's priority queue and
// notifies one idle worker. If the caller itself is a pool worker (w
// != nil), the priority is decremented by one before insertion so that
// newly-submitted inner work starts below the surrounding work's
// priority, preventing starvation by unbounded nesting, and the
// calling worker additionally invokes the group once inline before
// returning (dispatch+participate).
func (p *ThreadPool) Queue(w *Worker, priority int64, tg Runnable) {
	if w != nil {
		priority--
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	heap.Push(&p.items, heapItem{priority: priority, tg: tg})
	metrics.TasksDispatched.Inc()
	p.cond.Signal()
	p.mu.Unlock()

	if w != nil {
		tg.run(w)
	}
}

// SubmitAndJoin queues tg and blocks until it has fully completed. This
// is distinct from relying on re-entrant Queue's inline execution
// alone, which only guarantees this calling goroutine participated
// once, not that every other worker cooperating on the group has
// finished.
func SubmitAndJoin[D any, V View[D]](p *ThreadPool, w *Worker, priority int64, tg *TaskGroup[D, V]) error {
	p.Queue(w, priority, tg)
	return tg.Wait()
}

// Close stops accepting new work and waits for every worker to drain
// its current task group and exit. Unlike the original's sentinel
// task-group trick, shutdown here is a closed-queue condition checked
// by the worker loop directly after waking — Go's condition variables
// make the sentinel unnecessary.
func (p *ThreadPool) Close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

// NumWorkers returns the number of pinned workers in the pool.
func (p *ThreadPool) NumWorkers() int { return p.ncpu }

// Stats is a point-in-time snapshot of queue depth, an external-
// collaborator hook into cmn/metrics.
type Stats struct {
	QueueDepth int
}

func (p *ThreadPool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{QueueDepth: len(p.items)}
}
