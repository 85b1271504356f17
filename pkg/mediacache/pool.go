package mediacache

import "sync"

// defaultWorkers is the number of concurrent load goroutines.
const defaultWorkers = 2

// pool is a bounded goroutine pool for decode/upload jobs. Submitting
// never blocks the caller beyond a channel send: when the queue is full
// the job runs on its own goroutine instead.
type pool struct {
	jobs     chan func()
	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
	overflow sync.WaitGroup
}

func newPool(workers int) *pool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	p := &pool{jobs: make(chan func(), workers*4)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// submit queues job. It reports false if the pool is already closed.
func (p *pool) submit(job func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- job:
	default:
		p.overflow.Add(1)
		go func() {
			defer p.overflow.Done()
			job()
		}()
	}
	return true
}

// close stops accepting jobs and waits for queued and running ones.
func (p *pool) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	p.overflow.Wait()
}

func (p *pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		job()
	}
}
