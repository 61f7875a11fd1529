// Package jobrunner executes a batch of independent jobs under a bounded
// concurrency pool, publishing lifecycle events to subscribers.
package jobrunner

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Status is a job's lifecycle state, observable by Subscribers.
type Status int

const (
	StatusCreated Status = iota
	StatusQueued
	StatusStarted
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusQueued:
		return "queued"
	case StatusStarted:
		return "started"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Job is a boxed unit of work. Jobs submitted to the same Runner must be
// independent: the Runner makes no ordering guarantee between them besides
// submission order for start, which is why Run takes no arguments the
// runner could use to sequence jobs against each other.
type Job interface {
	ID() string
	Run(ctx context.Context) error
}

// Subscriber receives job lifecycle notifications. Implementations must be
// non-blocking: Runner calls these synchronously from job goroutines under
// a single writer lock, so a slow subscriber stalls every job.
type Subscriber interface {
	Start(total int)
	Update(jobID string, status Status)
	Finish()
}

// NopSubscriber implements Subscriber by discarding every event.
type NopSubscriber struct{}

func (NopSubscriber) Start(int)                  {}
func (NopSubscriber) Update(string, Status) {}
func (NopSubscriber) Finish()                    {}

// Config configures a Runner.
type Config struct {
	// CPUs bounds concurrent jobs. Values below 1 are treated as 1.
	CPUs int
}

// FailedJob pairs a job's id with the error it returned.
type FailedJob struct {
	JobID string
	Err   error
}

func (f *FailedJob) Error() string { return fmt.Sprintf("job %s: %v", f.JobID, f.Err) }
func (f *FailedJob) Unwrap() error { return f.Err }

// AggregateError is returned by Execute when one or more jobs failed. Every
// job still runs to completion regardless of sibling failures; Errors
// holds one FailedJob per failure, in completion order.
type AggregateError struct {
	Errors []*FailedJob
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%s (and %d more failure(s))", e.Errors[0].Error(), len(e.Errors)-1)
}

// Runner bounds fan-out of a batch of jobs to Config.CPUs concurrent
// goroutines. A Runner is used once: add jobs, then Execute.
type Runner struct {
	cpus    int
	sub     Subscriber
	mu      sync.Mutex
	pending []Job
}

// New creates an empty Runner. sub may be nil, equivalent to NopSubscriber.
func New(cfg Config, sub Subscriber) *Runner {
	cpus := cfg.CPUs
	if cpus < 1 {
		cpus = 1
	}
	if sub == nil {
		sub = NopSubscriber{}
	}
	return &Runner{cpus: cpus, sub: sub}
}

// Add appends jobs to the pending batch.
func (r *Runner) Add(jobs ...Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, jobs...)
}

// Execute drains the pending batch, running up to Config.CPUs jobs
// concurrently, and notifies the subscriber of each job's Queued,
// Started and Completed transitions; StatusCreated is never published.
// One job's failure does not cancel its siblings: every job
// runs to completion. If any job failed, Execute returns an
// *AggregateError after all jobs have finished.
func (r *Runner) Execute(ctx context.Context) error {
	return r.execute(ctx, r.sub)
}

// ExecuteWithoutPublish behaves like Execute but never calls the
// subscriber, for tests that don't want progress noise.
func (r *Runner) ExecuteWithoutPublish(ctx context.Context) error {
	return r.execute(ctx, NopSubscriber{})
}

func (r *Runner) execute(ctx context.Context, sub Subscriber) error {
	r.mu.Lock()
	jobs := r.pending
	r.pending = nil
	r.mu.Unlock()

	sub.Start(len(jobs))
	defer sub.Finish()

	if len(jobs) == 0 {
		return nil
	}

	for _, j := range jobs {
		sub.Update(j.ID(), StatusQueued)
	}

	var mu sync.Mutex
	var failures []*FailedJob

	// subMu is the single writer lock under which job goroutines notify
	// the subscriber.
	var subMu sync.Mutex
	notify := func(id string, status Status) {
		subMu.Lock()
		defer subMu.Unlock()
		sub.Update(id, status)
	}

	// errgroup's SetLimit bounds concurrent goroutines to r.cpus; unlike
	// errgroup's default cancel-on-first-error behaviour, every job's
	// error is captured into failures instead of being returned to the
	// group, so a sibling failure never aborts jobs still in flight.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cpus)

	for _, j := range jobs {
		j := j
		g.Go(func() error {
			notify(j.ID(), StatusStarted)
			err := j.Run(gctx)
			notify(j.ID(), StatusCompleted)
			if err != nil {
				mu.Lock()
				failures = append(failures, &FailedJob{JobID: j.ID(), Err: err})
				mu.Unlock()
			}
			return nil
		})
	}

	// g.Wait() never returns an error here: every job swallows its own
	// error into failures rather than returning it to the group.
	_ = g.Wait()

	if len(failures) > 0 {
		return &AggregateError{Errors: failures}
	}
	return nil
}
