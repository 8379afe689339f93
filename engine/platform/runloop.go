package platform

import (
	"sync"
	"time"

	"github.com/spaghettifunk/atlas/engine/containers"
)

// RunLoop owns the engine's main-thread work queue. Background work that
// must finish on the thread owning the graphics context (asset
// materialization, GL uploads) is handed over with Schedule and executed
// by the next Pump. Scheduled closures that return true stay registered
// and run again on the following pump; returning false deregisters them.
type RunLoop struct {
	mu        sync.Mutex
	queue     *containers.RingQueue[func() bool]
	targetFPS float64
}

func NewRunLoop(targetFPS float64) *RunLoop {
	if targetFPS <= 0 {
		targetFPS = 60
	}
	return &RunLoop{
		queue:     containers.NewRingQueue[func() bool](64),
		targetFPS: targetFPS,
	}
}

// Schedule queues a closure for the next pump. Safe to call from any
// goroutine.
func (r *RunLoop) Schedule(fn func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queue.IsFull() {
		r.queue.Grow()
	}
	r.queue.Enqueue(fn)
}

// TargetFPS returns the frame rate the loop is pumped at.
func (r *RunLoop) TargetFPS() float64 {
	return r.targetFPS
}

// FrameInterval returns the duration of one frame at the target rate.
func (r *RunLoop) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / r.targetFPS)
}

// Pump runs every closure scheduled before this call, once each, on the
// calling goroutine. Closures returning true are re-queued for the next
// pump. Must only be called from the owner thread.
func (r *RunLoop) Pump() {
	r.mu.Lock()
	n := r.queue.Len()
	r.mu.Unlock()

	// Only drain what was queued at entry; a closure scheduling new work
	// must not starve the frame.
	for i := 0; i < n; i++ {
		r.mu.Lock()
		fn, err := r.queue.Dequeue()
		r.mu.Unlock()
		if err != nil {
			return
		}
		if fn() {
			r.Schedule(fn)
		}
	}
}

// Run pumps the loop at the target frame rate until stop is closed.
// Useful for headless applications and tests; windowed applications pump
// from their own frame loop instead.
func (r *RunLoop) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(r.FrameInterval())
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			r.Pump()
			return
		case <-ticker.C:
			r.Pump()
		}
	}
}
