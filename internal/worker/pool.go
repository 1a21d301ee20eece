package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of goroutines. Its context derives from
// the caller's, so cancelling the caller stops queued work.
type Pool struct {
	workers int
	queue   chan Job
	results chan Result
	wg      sync.WaitGroup
	ctx     context.Context
	stop    context.CancelFunc
}

// NewPool creates a pool bound to ctx
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, stop := context.WithCancel(ctx)
	return &Pool{
		workers: workers,
		queue:   make(chan Job, workers*2),
		results: make(chan Result, workers*2),
		ctx:     ctx,
		stop:    stop,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.run()
	}
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			select {
			case p.results <- job.Execute(p.ctx):
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. It reports false once the pool's context is done.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.queue <- job:
		return true
	}
}

// Results yields completed results; it is closed after Close once every
// worker has exited
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close stops accepting jobs. Results closes after the workers drain.
func (p *Pool) Close() {
	close(p.queue)
	go func() {
		p.wg.Wait()
		close(p.results)
		p.stop()
	}()
}
