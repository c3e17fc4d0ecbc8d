// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package parallel runs independent jobs on a fixed set of goroutines.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a set of workers with one queue each. A worker whose queue is
// empty takes jobs from the others, so a few slow jobs do not leave the
// remaining workers idle.
//
// Pool is safe for concurrent use.
type Pool struct {
	queues  []chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewPool starts workers goroutines. If workers is 0 or negative,
// GOMAXPROCS is used.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		queues: make([]chan func(), workers),
		done:   make(chan struct{}),
	}
	for i := range p.queues {
		p.queues[i] = make(chan func(), max(4*workers, 8))
	}
	p.running.Store(true)
	p.wg.Add(workers)
	for i := range workers {
		go p.work(i)
	}
	return p
}

func (p *Pool) work(id int) {
	defer p.wg.Done()
	own := p.queues[id]
	for {
		select {
		case job := <-own:
			job()
			continue
		case <-p.done:
			p.drain(own)
			return
		default:
		}
		if job := p.steal(id); job != nil {
			job()
			continue
		}
		select {
		case job := <-own:
			job()
		case <-p.done:
			p.drain(own)
			return
		}
	}
}

func (p *Pool) drain(q chan func()) {
	for {
		select {
		case job := <-q:
			job()
		default:
			return
		}
	}
}

func (p *Pool) steal(id int) func() {
	for i, q := range p.queues {
		if i == id {
			continue
		}
		select {
		case job := <-q:
			return job
		default:
		}
	}
	return nil
}

// Run distributes jobs round robin and waits until all of them returned.
// Jobs submitted after Close are not run.
func (p *Pool) Run(jobs []func()) {
	if len(jobs) == 0 || !p.running.Load() {
		return
	}
	var wg sync.WaitGroup
	wg.Add(len(jobs))
	for i, job := range jobs {
		wrapped := func() {
			defer wg.Done()
			job()
		}
		select {
		case p.queues[i%len(p.queues)] <- wrapped:
		case <-p.done:
			wg.Done()
		}
	}
	wg.Wait()
}

// Workers returns the number of workers.
func (p *Pool) Workers() int { return len(p.queues) }

// Close waits for queued jobs and stops the workers. It is safe to call
// more than once.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}
