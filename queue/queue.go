// Package queue provides the job transport consumed by the reconciliation
// writer: at-least-once delivery with bounded redelivery and a dead-letter
// channel held for replay.
package queue

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/WeShipHQ/panda-monopoly-indexer/logging"
	"github.com/WeShipHQ/panda-monopoly-indexer/model"
)

// Job wraps one change record for delivery. Attempts counts deliveries
// including the current one.
type Job struct {
	ID       string             `json:"id"`
	Record   model.ChangeRecord `json:"record"`
	Attempts int                `json:"attempts"`
}

// Handler processes one delivered job. A non-nil error triggers redelivery
// until the attempt ceiling is reached.
type Handler func(ctx context.Context, job *Job) error

// Hooks receive job lifecycle notifications, used only for metrics.
type Hooks struct {
	Completed func(job *Job)
	Failed    func(job *Job, err error)
}

// DeadLetterer accepts failed job payloads for later inspection or replay.
type DeadLetterer interface {
	DeadLetter(job *Job)
}

// Queue is the in-memory at-least-once transport. Jobs are delivered to a
// pool of workers; failed jobs are redelivered up to maxAttempts times.
type Queue struct {
	jobs        chan *Job
	dead        chan *Job
	done        chan struct{}
	maxAttempts int
	hooks       Hooks
	log         *logging.ComponentLogger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a queue with the given buffer size and redelivery ceiling.
func New(bufferSize, maxAttempts int, hooks Hooks, log *logging.ComponentLogger) *Queue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Queue{
		jobs:        make(chan *Job, bufferSize),
		dead:        make(chan *Job, bufferSize),
		done:        make(chan struct{}),
		maxAttempts: maxAttempts,
		hooks:       hooks,
		log:         log,
	}
}

// Enqueue dispatches a change record as an independent job. After Close the
// record is dropped and nil is returned.
func (q *Queue) Enqueue(record model.ChangeRecord) *Job {
	job := &Job{
		ID:     uuid.NewString(),
		Record: record,
	}
	select {
	case <-q.done:
		q.log.Warn().
			Str("kind", string(record.Kind)).
			Str("address", record.Address).
			Msg("queue closed, dropping job")
		return nil
	default:
	}
	select {
	case q.jobs <- job:
		return job
	case <-q.done:
		q.log.Warn().
			Str("kind", string(record.Kind)).
			Str("address", record.Address).
			Msg("queue closed, dropping job")
		return nil
	}
}

// DeadLetter forwards a job payload verbatim to the dead-letter channel.
// It never blocks: when the channel is full the oldest entry is evicted.
func (q *Queue) DeadLetter(job *Job) {
	for {
		select {
		case q.dead <- job:
			return
		default:
			select {
			case evicted := <-q.dead:
				q.log.Warn().
					Str("job_id", evicted.ID).
					Msg("dead-letter channel full, evicting oldest entry")
			default:
			}
		}
	}
}

// DeadLetters exposes the dead-letter channel for replay tooling.
func (q *Queue) DeadLetters() <-chan *Job {
	return q.dead
}

// Start launches the worker pool. Each worker handles one job at a time;
// multiple workers run concurrently. Start returns once all workers exit.
func (q *Queue) Start(ctx context.Context, workers int, handler Handler) {
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.worker(ctx, handler)
		}()
	}
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.done:
			q.drain(ctx, handler)
			return
		case job := <-q.jobs:
			q.deliver(ctx, job, handler)
		}
	}
}

// drain delivers jobs already buffered when Close was called, then returns.
func (q *Queue) drain(ctx context.Context, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.deliver(ctx, job, handler)
		default:
			return
		}
	}
}

func (q *Queue) deliver(ctx context.Context, job *Job, handler Handler) {
	job.Attempts++

	err := handler(ctx, job)
	if err == nil {
		if q.hooks.Completed != nil {
			q.hooks.Completed(job)
		}
		return
	}

	if q.hooks.Failed != nil {
		q.hooks.Failed(job, err)
	}

	if job.Attempts >= q.maxAttempts {
		q.log.Error().
			Err(err).
			Str("job_id", job.ID).
			Int("attempts", job.Attempts).
			Msg("job exhausted redelivery attempts")
		return
	}

	// Redeliver without blocking the worker. Dropping on a full or closed
	// queue is acceptable: the job was already dead-lettered by the failure
	// router.
	select {
	case <-q.done:
		q.log.Warn().
			Str("job_id", job.ID).
			Msg("queue closed, dropping redelivery")
		return
	default:
	}
	select {
	case q.jobs <- job:
	default:
		q.log.Error().
			Str("job_id", job.ID).
			Msg("queue full, dropping redelivery")
	}
}

// Close stops accepting jobs. Jobs buffered before Close are still
// delivered; enqueues and redeliveries after Close are dropped. The jobs
// channel itself is never closed, so producers racing Close cannot panic.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}
