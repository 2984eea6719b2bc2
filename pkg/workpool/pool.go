// Package workpool provides a bounded worker pool for fan-out work such as
// the scan matrix. The bound is the resource-management lever against
// upstream rate limits.
package workpool

import (
	"context"
	"sync"
)

// Pool runs submitted tasks on at most size concurrent workers.
type Pool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// New creates a pool. size < 1 falls back to 1.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Go schedules fn once a worker slot is free. It returns false without
// running fn if ctx is cancelled while waiting for a slot, which lets
// callers stop dispatching mid-matrix.
func (p *Pool) Go(ctx context.Context, fn func()) bool {
	select {
	case <-ctx.Done():
		return false
	case p.sem <- struct{}{}:
	}

	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.sem
			p.wg.Done()
		}()
		fn()
	}()
	return true
}

// Wait blocks until every scheduled task has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}
