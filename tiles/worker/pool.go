package worker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultTaskTimeout caps how long a single task may run.
const DefaultTaskTimeout = 10 * time.Second

var (
	ErrPoolClosed = errors.New("worker pool closed")
	ErrQueueFull  = errors.New("worker queue full")
)

// Pool runs submitted tasks on at most maxWorkers goroutines.
type Pool struct {
	workers chan struct{}
	tasks   chan Task
	quit    chan struct{}
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

type Task struct {
	Ctx  context.Context
	Work func(ctx context.Context) error
	// Done, if set, receives the result of Work.
	Done func(err error)
}

func NewPool(maxWorkers, queueSize int) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	p := &Pool{
		workers: make(chan struct{}, maxWorkers),
		tasks:   make(chan Task, queueSize),
		quit:    make(chan struct{}),
		timeout: DefaultTaskTimeout,
	}

	go p.dispatcher()
	return p
}

func (p *Pool) dispatcher() {
	for {
		select {
		case <-p.quit:
			return
		case task := <-p.tasks:
			select {
			case p.workers <- struct{}{}:
			case <-p.quit:
				p.finish(task, ErrPoolClosed)
				p.wg.Done()
				return
			}
			go p.run(task)
		}
	}
}

func (p *Pool) run(task Task) {
	defer p.wg.Done()
	defer func() { <-p.workers }()

	parent := task.Ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()

	if err := ctx.Err(); err != nil {
		p.finish(task, err)
		return
	}
	p.finish(task, task.Work(ctx))
}

func (p *Pool) finish(task Task, err error) {
	if task.Done != nil {
		task.Done(err)
	}
}

// Submit queues a task without blocking. It fails when the queue is full or
// the pool has been shut down.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}

	p.wg.Add(1)
	select {
	case p.tasks <- task:
		return nil
	default:
		p.wg.Done()
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for running ones. Queued tasks
// that never started complete with ErrPoolClosed.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.quit)
	}
	p.mu.Unlock()

	for {
		select {
		case task := <-p.tasks:
			p.finish(task, ErrPoolClosed)
			p.wg.Done()
		default:
			p.wg.Wait()
			return
		}
	}
}
