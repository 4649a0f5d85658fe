package runtime

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"log/slog"
)

// countingWorker panics a fixed number of times before finishing cleanly.
type countingWorker struct {
	runs    atomic.Int32
	panics  int32
	stopped chan struct{}
}

func (w *countingWorker) Run(ctx context.Context) error {
	n := w.runs.Add(1)
	if n <= w.panics {
		panic("boom")
	}
	close(w.stopped)
	return nil
}

// blockingWorker runs until its context is canceled.
type blockingWorker struct {
	started chan struct{}
}

func (w *blockingWorker) Run(ctx context.Context) error {
	close(w.started)
	<-ctx.Done()
	return nil
}

func TestSupervisor_Restarts_A_Panicking_Worker(t *testing.T) {
	req := require.New(t)
	worker := &countingWorker{panics: 2, stopped: make(chan struct{})}
	supervisor := NewSupervisor(slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		supervisor.Add(worker).Run(ctx)
		close(done)
	}()

	// Then the worker is restarted after each panic until it finishes
	select {
	case <-worker.stopped:
	case <-ctx.Done():
		req.Fail("Worker was never restarted to completion")
	}
	select {
	case <-done:
	case <-ctx.Done():
		req.Fail("Supervisor did not return after all workers finished")
	}
	req.EqualValues(3, worker.runs.Load())
}

func TestSupervisor_Finished_Worker_Is_Not_Restarted(t *testing.T) {
	req := require.New(t)
	worker := &countingWorker{panics: 0, stopped: make(chan struct{})}
	supervisor := NewSupervisor(slog.Default())

	done := make(chan struct{})
	go func() {
		supervisor.Add(worker).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		req.Fail("Supervisor did not return")
	}
	req.EqualValues(1, worker.runs.Load())
}

func TestSupervisor_Stop_Cancels_Running_Workers(t *testing.T) {
	req := require.New(t)
	worker := &blockingWorker{started: make(chan struct{})}
	supervisor := NewSupervisor(slog.Default())
	supervisor.Add(worker)

	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	select {
	case <-worker.started:
	case <-time.After(5 * time.Second):
		req.Fail("Worker never started")
	}

	supervisor.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		req.Fail("Supervisor did not unwind after Stop")
	}
}

func TestSupervisor_Parent_Cancellation_Stops_Everything(t *testing.T) {
	req := require.New(t)
	first := &blockingWorker{started: make(chan struct{})}
	second := &blockingWorker{started: make(chan struct{})}
	supervisor := NewSupervisor(slog.Default())
	supervisor.Add(first, second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		supervisor.Run(ctx)
		close(done)
	}()

	<-first.started
	<-second.started
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		req.Fail("Supervisor did not unwind after parent cancellation")
	}
}
