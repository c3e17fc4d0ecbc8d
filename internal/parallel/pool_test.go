// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package parallel

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_Run(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	results := make([]int, 100)
	jobs := make([]func(), len(results))
	for i := range jobs {
		jobs[i] = func() { results[i] = i * i }
	}
	p.Run(jobs)
	for i, got := range results {
		if got != i*i {
			t.Fatalf("results[%d] = %d, want %d", i, got, i*i)
		}
	}
}

func TestPool_StealsFromSlowWorker(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	var fast atomic.Int32
	jobs := []func(){func() { time.Sleep(50 * time.Millisecond) }}
	for range 9 {
		jobs = append(jobs, func() { fast.Add(1) })
	}
	start := time.Now()
	p.Run(jobs)
	if fast.Load() != 9 {
		t.Errorf("ran %d fast jobs, want 9", fast.Load())
	}
	if d := time.Since(start); d > 2*time.Second {
		t.Errorf("Run took %v", d)
	}
}

func TestPool_DefaultWorkersAndClose(t *testing.T) {
	p := NewPool(0)
	if p.Workers() < 1 {
		t.Errorf("Workers() = %d", p.Workers())
	}
	p.Close()
	p.Close()

	ran := false
	p.Run([]func(){func() { ran = true }})
	if ran {
		t.Error("Run after Close ran a job")
	}
}
