package pool

import (
	"testing"
	"time"
)

func TestPoolCloseDrainsWorkers(t *testing.T) {
	p := NewPool()
	if p.NumWorkers() <= 0 {
		t.Fatal("expected at least one worker")
	}
	p.Close()
}

func TestPoolRunsQueuedGroupEventually(t *testing.T) {
	p := NewPool()
	defer p.Close()

	var ran int64
	tg := New[*int64, sumView](&ran)
	tg.Start(1, func(w *Worker, shard int, view *sumView) {
		view.local = 1
	})
	p.Queue(nil, MaxPriority, tg)

	select {
	case <-time.After(2 * time.Second):
		t.Fatal("queued group never ran")
	case <-waitAsync(tg):
	}
	if ran != 1 {
		t.Fatalf("ran = %d, want 1", ran)
	}
}

func TestPoolStatsReportsQueueDepth(t *testing.T) {
	p := NewPool()
	defer p.Close()
	if s := p.Stats(); s.QueueDepth != 0 {
		t.Fatalf("fresh pool queue depth = %d, want 0", s.QueueDepth)
	}
}
