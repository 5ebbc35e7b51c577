package dispatcher

import (
	"sync"
)

type taskFn func()

// WorkerPool runs submitted jobs on at most maxWorkers goroutines. Workers are
// started lazily and each finishes its job before taking the next one.
type WorkerPool struct {
	jobs       chan taskFn
	maxWorkers int
	workers    int

	pending sync.WaitGroup
	running sync.WaitGroup
	mu      sync.Mutex
	once    sync.Once
}

func NewPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}

	return &WorkerPool{
		jobs:       make(chan taskFn),
		maxWorkers: workers,
	}
}

// Submit hands f to a worker, blocking while every worker is busy. It must
// not be called after Release.
func (w *WorkerPool) Submit(f taskFn) {
	w.mu.Lock()
	if w.workers < w.maxWorkers {
		w.workers++
		w.addWorker()
	}
	w.mu.Unlock()

	w.pending.Add(1)
	w.jobs <- f
}

func (w *WorkerPool) addWorker() {
	w.running.Add(1)
	go func() {
		defer w.running.Done()
		for job := range w.jobs {
			job()
			w.pending.Done()
		}
	}()
}

// Wait blocks until every submitted job has returned.
func (w *WorkerPool) Wait() {
	w.pending.Wait()
}

// Workers reports how many worker goroutines have been started.
func (w *WorkerPool) Workers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.workers
}

// Release stops the workers once their current jobs return.
func (w *WorkerPool) Release() {
	w.once.Do(func() {
		close(w.jobs)
	})
	w.running.Wait()
}
