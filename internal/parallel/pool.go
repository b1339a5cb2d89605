package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool runs the row bands of a pass on a fixed set of goroutines.
//
// Each worker owns a queue. Items are dealt round-robin and a worker whose
// queue is empty steals from the others, so one slow band does not stall
// the rest.
//
// WorkerPool is safe for concurrent use.
type WorkerPool struct {
	queues  []chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewWorkerPool starts a pool with the given number of workers.
// Zero or negative uses GOMAXPROCS.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	depth := max(8, workers*4)

	p := &WorkerPool{
		queues: make([]chan func(), workers),
		done:   make(chan struct{}),
	}
	for i := range p.queues {
		p.queues[i] = make(chan func(), depth)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.loop(i)
	}
	return p
}

func (p *WorkerPool) loop(id int) {
	defer p.wg.Done()
	own := p.queues[id]
	for {
		if fn := p.take(id); fn != nil {
			fn()
			continue
		}
		select {
		case fn := <-own:
			fn()
		case <-p.done:
			for {
				select {
				case fn := <-own:
					fn()
				default:
					return
				}
			}
		}
	}
}

// take returns queued work without blocking: the worker's own queue first,
// then any other queue.
func (p *WorkerPool) take(id int) func() {
	n := len(p.queues)
	for i := range n {
		select {
		case fn := <-p.queues[(id+i)%n]:
			return fn
		default:
		}
	}
	return nil
}

// ExecuteAll runs every item on the pool and waits for them. Items not
// queued before the pool closes are skipped. A closed pool does nothing.
func (p *WorkerPool) ExecuteAll(work []func()) {
	if len(work) == 0 || !p.running.Load() {
		return
	}

	var pending sync.WaitGroup
	pending.Add(len(work))
	for i, fn := range work {
		item := func() {
			defer pending.Done()
			fn()
		}
		select {
		case p.queues[i%len(p.queues)] <- item:
		case <-p.done:
			pending.Done()
		}
	}
	pending.Wait()
}

// Close finishes queued work and stops the workers. It is idempotent.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers.
func (p *WorkerPool) Workers() int {
	return len(p.queues)
}

// IsRunning reports whether the pool accepts work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}
