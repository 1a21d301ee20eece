package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type stubResult struct{ err error }

func (r stubResult) GetError() error { return r.err }

// stubJob counts executions and the peak number running at once
type stubJob struct {
	hold    time.Duration
	fail    bool
	running *atomic.Int32
	peak    *atomic.Int32
}

func (j stubJob) Execute(ctx context.Context) Result {
	if j.running != nil {
		n := j.running.Add(1)
		defer j.running.Add(-1)
		for {
			old := j.peak.Load()
			if n <= old || j.peak.CompareAndSwap(old, n) {
				break
			}
		}
	}
	if j.hold > 0 {
		select {
		case <-time.After(j.hold):
		case <-ctx.Done():
			return stubResult{err: ctx.Err()}
		}
	}
	if j.fail {
		return stubResult{err: errors.New("embed batch failed")}
	}
	return stubResult{}
}

// drain submits jobs, closes the pool and collects every result
func drain(p *Pool, jobs []Job) []Result {
	for _, j := range jobs {
		if !p.Submit(j) {
			break
		}
	}
	p.Close()
	var out []Result
	for r := range p.Results() {
		out = append(out, r)
	}
	return out
}

func TestNewPool_WorkerCount(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{4, 4},
		{0, 1},
		{-3, 1},
	}
	for _, tt := range tests {
		if p := NewPool(context.Background(), tt.in); p.workers != tt.want {
			t.Errorf("NewPool(%d).workers = %d, want %d", tt.in, p.workers, tt.want)
		}
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const workers = 3
	var running, peak atomic.Int32
	jobs := make([]Job, 20)
	for i := range jobs {
		jobs[i] = stubJob{hold: 5 * time.Millisecond, running: &running, peak: &peak}
	}

	p := NewPool(context.Background(), workers)
	p.Start()
	results := drain(p, jobs)

	if len(results) != len(jobs) {
		t.Fatalf("got %d results, want %d", len(results), len(jobs))
	}
	if got := peak.Load(); got > workers {
		t.Errorf("peak concurrency %d exceeds %d workers", got, workers)
	}
}

func TestPool_ReportsErrors(t *testing.T) {
	p := NewPool(context.Background(), 2)
	p.Start()
	results := drain(p, []Job{stubJob{fail: true}, stubJob{}, stubJob{fail: true}})

	failed := 0
	for _, r := range results {
		if r.GetError() != nil {
			failed++
		}
	}
	if failed != 2 {
		t.Errorf("got %d failures, want 2", failed)
	}
}

func TestPool_SubmitAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(ctx, 1)
	p.Start()
	cancel()

	done := make(chan bool, 1)
	go func() { done <- p.Submit(stubJob{}) }()
	select {
	case accepted := <-done:
		if accepted {
			t.Error("Submit after cancellation should report false")
		}
	case <-time.After(time.Second):
		t.Fatal("Submit after cancellation blocked")
	}
}

func TestPool_CancelStopsRunningJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(ctx, 1)
	p.Start()
	if !p.Submit(stubJob{hold: time.Minute}) {
		t.Fatal("Submit rejected")
	}
	cancel()
	p.Close()

	done := make(chan struct{})
	go func() {
		for range p.Results() {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Results did not close after cancellation")
	}
}
