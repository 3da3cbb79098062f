package main

import "sync"

// uiQueue hands work from provider goroutines to the window goroutine.
type uiQueue struct {
	mu   sync.Mutex
	fns  []func()
	wake func()
}

func (q *uiQueue) Dispatch(fn func()) {
	q.mu.Lock()
	q.fns = append(q.fns, fn)
	q.mu.Unlock()
	if q.wake != nil {
		q.wake()
	}
}

// Drain runs queued funcs, including ones they queue, and returns how many
// ran. Call it from the window goroutine only.
func (q *uiQueue) Drain() int {
	n := 0
	for {
		q.mu.Lock()
		fns := q.fns
		q.fns = nil
		q.mu.Unlock()
		if len(fns) == 0 {
			return n
		}
		for _, fn := range fns {
			fn()
		}
		n += len(fns)
	}
}
