package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/spaghettifunk/atlas/engine/containers"
	"github.com/spaghettifunk/atlas/engine/core"
)

// Task is a unit of background work.
type Task func()

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")

// Pool executes tasks on a fixed set of workers. Tasks submitted from one
// goroutine are started in FIFO order per worker; a pool with a single
// worker therefore runs them strictly sequentially, which is what the
// asset manager relies on for its synchronization barriers.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   *containers.RingQueue[Task]
	workers int
	closed  bool
	wg      sync.WaitGroup
}

func NewPool(workers int) (*Pool, error) {
	if workers <= 0 {
		return nil, ErrNoWorkers
	}

	p := &Pool{
		queue:   containers.NewRingQueue[Task](64),
		workers: workers,
	}
	p.cond = sync.NewCond(&p.mu)
	p.start()

	return p, nil
}

func (p *Pool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				p.mu.Lock()
				for p.queue.IsEmpty() && !p.closed {
					p.cond.Wait()
				}
				if p.queue.IsEmpty() && p.closed {
					p.mu.Unlock()
					return
				}
				task, _ := p.queue.Dequeue()
				p.mu.Unlock()

				p.run(task)
			}
		}()
	}
}

func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			core.LogError("worker task panicked: %v", r)
		}
	}()
	task()
}

// AddTask queues a task for execution. The queue is unbounded, so this
// never blocks; tasks added after Shutdown are dropped.
func (p *Pool) AddTask(task Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		core.LogWarn("task submitted to a pool that is shutting down, dropped")
		return
	}
	if p.queue.IsFull() {
		p.queue.Grow()
	}
	p.queue.Enqueue(task)
	p.cond.Signal()
}

// Shutdown drains remaining tasks and stops all workers.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}

// Sleep pauses the calling worker for the given number of milliseconds.
func Sleep(milliseconds int) {
	time.Sleep(time.Duration(milliseconds) * time.Millisecond)
}
