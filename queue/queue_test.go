package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/WeShipHQ/panda-monopoly-indexer/logging"
	"github.com/WeShipHQ/panda-monopoly-indexer/model"
)

func testLogger() *logging.ComponentLogger {
	return logging.NewComponentLogger("queue-test")
}

func TestDeliverOnce(t *testing.T) {
	q := New(16, 3, Hooks{}, testLogger())

	var handled atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.Start(ctx, 2, func(ctx context.Context, job *Job) error {
			handled.Add(1)
			return nil
		})
	}()

	q.Enqueue(model.ChangeRecord{Kind: model.KindGame, Address: "GM1"})
	q.Enqueue(model.ChangeRecord{Kind: model.KindPlayer, Address: "PL1"})

	waitFor(t, func() bool { return handled.Load() == 2 })
	cancel()
	wg.Wait()
}

func TestRedeliveryUpToCeiling(t *testing.T) {
	var failures atomic.Int64
	q := New(16, 3, Hooks{
		Failed: func(job *Job, err error) { failures.Add(1) },
	}, testLogger())

	var attempts atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go q.Start(ctx, 1, func(ctx context.Context, job *Job) error {
		attempts.Add(1)
		return errors.New("persistent failure")
	})

	q.Enqueue(model.ChangeRecord{Kind: model.KindProperty, Address: "PR1"})

	waitFor(t, func() bool { return attempts.Load() == 3 })
	// Give it a moment to confirm no fourth delivery happens.
	time.Sleep(50 * time.Millisecond)
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want exactly 3", got)
	}
	if got := failures.Load(); got != 3 {
		t.Errorf("failure hook fired %d times, want 3", got)
	}
}

func TestAttemptsVisibleToHandler(t *testing.T) {
	q := New(16, 2, Hooks{}, testLogger())

	seen := make(chan int, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go q.Start(ctx, 1, func(ctx context.Context, job *Job) error {
		seen <- job.Attempts
		if job.Attempts < 2 {
			return errors.New("retry me")
		}
		return nil
	})

	q.Enqueue(model.ChangeRecord{Kind: model.KindGame, Address: "GM2"})

	first := <-seen
	second := <-seen
	if first != 1 || second != 2 {
		t.Errorf("attempts = %d,%d, want 1,2", first, second)
	}
}

func TestDeadLetterChannel(t *testing.T) {
	q := New(4, 1, Hooks{}, testLogger())

	job := &Job{ID: "job-1", Record: model.ChangeRecord{Kind: model.KindTrade, Address: "TR1"}}
	q.DeadLetter(job)

	select {
	case got := <-q.DeadLetters():
		if got.ID != "job-1" {
			t.Errorf("dead letter ID = %s", got.ID)
		}
		if got.Record.Address != "TR1" {
			t.Errorf("payload not preserved: %+v", got.Record)
		}
	default:
		t.Fatal("dead-letter channel empty")
	}
}

func TestDeadLetterEvictsWhenFull(t *testing.T) {
	q := New(2, 1, Hooks{}, testLogger())

	q.DeadLetter(&Job{ID: "old-1"})
	q.DeadLetter(&Job{ID: "old-2"})
	q.DeadLetter(&Job{ID: "new-1"}) // evicts old-1

	got := <-q.DeadLetters()
	if got.ID != "old-2" {
		t.Errorf("first remaining = %s, want old-2", got.ID)
	}
	got = <-q.DeadLetters()
	if got.ID != "new-1" {
		t.Errorf("second remaining = %s, want new-1", got.ID)
	}
}

func TestCloseWithInFlightFailure(t *testing.T) {
	q := New(16, 3, Hooks{}, testLogger())

	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.Start(context.Background(), 1, func(ctx context.Context, job *Job) error {
			close(started)
			<-release
			return errors.New("handler failed")
		})
	}()

	q.Enqueue(model.ChangeRecord{Kind: model.KindGame, Address: "GM3"})
	<-started
	q.Close()
	close(release)

	// The failed delivery would normally be redelivered; after Close it must
	// be dropped and the worker pool must wind down without panicking.
	wg.Wait()
}

func TestEnqueueAfterCloseDropped(t *testing.T) {
	q := New(4, 1, Hooks{}, testLogger())
	q.Close()

	if job := q.Enqueue(model.ChangeRecord{Kind: model.KindPlayer, Address: "PL9"}); job != nil {
		t.Errorf("enqueue after close returned job %+v, want nil", job)
	}
	select {
	case job := <-q.jobs:
		t.Errorf("dropped job still buffered: %+v", job)
	default:
	}
}

func TestCloseDrainsBufferedJobs(t *testing.T) {
	q := New(16, 1, Hooks{}, testLogger())

	q.Enqueue(model.ChangeRecord{Kind: model.KindGame, Address: "GM4"})
	q.Enqueue(model.ChangeRecord{Kind: model.KindTrade, Address: "TR4"})
	q.Close()

	var handled atomic.Int64
	q.Start(context.Background(), 1, func(ctx context.Context, job *Job) error {
		handled.Add(1)
		return nil
	})

	if got := handled.Load(); got != 2 {
		t.Errorf("handled = %d, want 2", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
