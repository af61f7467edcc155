// Package batch expands a multi-URL request into child jobs, enforces a
// per-batch concurrency cap, and aggregates child terminal status into a
// batch-level result. It is used directly for explicit batch submissions
// and indirectly by channel/playlist expansion.
package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"downcore/internal/apperr"
	"downcore/internal/constants"
	"downcore/internal/job"
)

// Status is a batch's aggregate lifecycle state.
type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Submitter submits one child job to the execution queue. It must return
// promptly; the resulting download runs asynchronously and is observed via
// the job registry.
type Submitter func(ctx context.Context, childID, url string, opts job.Options) error

// Canceller cancels a queued or running child job by id.
type Canceller func(childID string) bool

// Record is an immutable-once-terminal snapshot of a batch's state.
type Record struct {
	ID            string
	ChildIDs      []string
	Concurrency   int
	StopOnError   bool
	Status        Status
	SuccessCount  int
	FailureCount  int
	CancelledCount int
	CreatedAt     time.Time
	StartedAt     time.Time
	CompletedAt   time.Time
}

type batchState struct {
	mu     sync.Mutex
	rec    Record
	stop   atomic.Bool
	sem    chan struct{}
	wg     sync.WaitGroup
}

// Coordinator tracks every batch created in this process. It does not
// persist batches; lost on restart, matching the job registry's in-memory
// design.
type Coordinator struct {
	registry   *job.Registry
	submit     Submitter
	cancel     Canceller
	pollEvery  time.Duration

	mu      sync.RWMutex
	batches map[string]*batchState
}

// New returns a Coordinator. submit enqueues a child job for execution;
// cancel propagates cancellation to an in-flight child. pollEvery controls
// how often the coordinator checks the registry for a child's terminal
// state; a value <= 0 defaults to 100ms.
func New(registry *job.Registry, submit Submitter, cancel Canceller, pollEvery time.Duration) *Coordinator {
	if pollEvery <= 0 {
		pollEvery = 100 * time.Millisecond
	}
	return &Coordinator{
		registry:  registry,
		submit:    submit,
		cancel:    cancel,
		pollEvery: pollEvery,
		batches:   make(map[string]*batchState),
	}
}

// Create validates and registers a batch of urls, creates a child job
// record for each, and starts the background coordination goroutine. It
// returns the batch id and the child job ids in submission order.
func (c *Coordinator) Create(ctx context.Context, urls []string, opts job.Options, concurrency int, stopOnError bool) (string, []string, error) {
	const op = "batch.Create"

	deduped := dedupe(urls)
	if len(deduped) == 0 {
		return "", nil, apperr.NewWithMessage(op, apperr.KindValidationFailed, "batch must contain at least one URL")
	}
	if len(deduped) > constants.DefaultMaxBatchSize {
		return "", nil, apperr.NewWithMessage(op, apperr.KindValidationFailed,
			fmt.Sprintf("batch exceeds maximum size of %d", constants.DefaultMaxBatchSize))
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > 10 {
		concurrency = 10
	}

	batchID := uuid.NewString()
	childIDs := make([]string, len(deduped))

	for i, url := range deduped {
		childID := fmt.Sprintf("%s:%d", batchID, i)
		childOpts := opts
		childOpts.BatchID = batchID
		childOpts.PlaylistIndex = i
		if _, err := c.registry.Create(childID, url, childOpts); err != nil {
			return "", nil, err
		}
		childIDs[i] = childID
	}

	st := &batchState{
		rec: Record{
			ID:          batchID,
			ChildIDs:    childIDs,
			Concurrency: concurrency,
			StopOnError: stopOnError,
			Status:      StatusRunning,
			CreatedAt:   time.Now(),
			StartedAt:   time.Now(),
		},
		sem: make(chan struct{}, concurrency),
	}

	c.mu.Lock()
	c.batches[batchID] = st
	c.mu.Unlock()

	go c.run(ctx, st, deduped, childIDs)

	return batchID, childIDs, nil
}

// run drives one batch to terminal status: children are launched in order,
// gated by the per-batch semaphore, and a failure while stop_on_error is
// set cancels children still waiting for a semaphore slot without ever
// submitting them.
func (c *Coordinator) run(ctx context.Context, st *batchState, urls []string, childIDs []string) {
	for i, childID := range childIDs {
		if st.stop.Load() {
			c.registry.TransitionCancelled(childID)
			st.mu.Lock()
			st.rec.CancelledCount++
			st.mu.Unlock()
			continue
		}

		select {
		case st.sem <- struct{}{}:
		case <-ctx.Done():
			c.registry.TransitionCancelled(childID)
			continue
		}

		if st.stop.Load() {
			<-st.sem
			c.registry.TransitionCancelled(childID)
			st.mu.Lock()
			st.rec.CancelledCount++
			st.mu.Unlock()
			continue
		}

		st.wg.Add(1)
		go c.runChild(ctx, st, childID, urls[i])
	}

	st.wg.Wait()
	c.finalize(st)
}

func (c *Coordinator) runChild(ctx context.Context, st *batchState, childID, url string) {
	defer st.wg.Done()
	defer func() { <-st.sem }()

	rec, err := c.registry.Get(childID)
	var opts job.Options
	if err == nil {
		opts = rec.Options
	}

	if err := c.submit(ctx, childID, url, opts); err != nil {
		c.registry.TransitionFailed(childID, job.JobError{Kind: string(apperr.KindOf(err)), Message: err.Error()})
	} else {
		c.awaitTerminal(ctx, childID)
	}

	final, err := c.registry.Get(childID)
	st.mu.Lock()
	switch {
	case err != nil:
		st.rec.FailureCount++
	case final.Status == job.StatusCompleted:
		st.rec.SuccessCount++
	case final.Status == job.StatusCancelled:
		st.rec.CancelledCount++
	default:
		st.rec.FailureCount++
		if st.rec.StopOnError {
			st.stop.Store(true)
		}
	}
	st.mu.Unlock()
}

// awaitTerminal polls the registry until childID reaches a terminal
// status or ctx is cancelled.
func (c *Coordinator) awaitTerminal(ctx context.Context, childID string) {
	ticker := time.NewTicker(c.pollEvery)
	defer ticker.Stop()

	for {
		rec, err := c.registry.Get(childID)
		if err == nil && rec.Status.Terminal() {
			return
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Coordinator) finalize(st *batchState) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.rec.CompletedAt = time.Now()
	if st.rec.StopOnError && st.rec.FailureCount > 0 {
		st.rec.Status = StatusFailed
	} else {
		st.rec.Status = StatusCompleted
	}
}

// Status returns a snapshot of batchID's current aggregate state.
func (c *Coordinator) Status(batchID string) (Record, error) {
	c.mu.RLock()
	st, ok := c.batches[batchID]
	c.mu.RUnlock()
	if !ok {
		return Record{}, apperr.NewWithMessage("batch.Status", apperr.KindNotFound, "batch not found: "+batchID)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.rec, nil
}

// Cancel sets the stop signal on batchID and cancels every non-terminal
// child, returning the number of children it signalled.
func (c *Coordinator) Cancel(batchID string) (int, error) {
	c.mu.RLock()
	st, ok := c.batches[batchID]
	c.mu.RUnlock()
	if !ok {
		return 0, apperr.NewWithMessage("batch.Cancel", apperr.KindNotFound, "batch not found: "+batchID)
	}

	st.stop.Store(true)

	count := 0
	for _, childID := range st.rec.ChildIDs {
		rec, err := c.registry.Get(childID)
		if err != nil || rec.Status.Terminal() {
			continue
		}
		if c.cancel(childID) {
			count++
		}
	}
	return count, nil
}

// Reap evicts terminal batches whose CompletedAt is older than the cutoff.
func (c *Coordinator) Reap(olderThan time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, st := range c.batches {
		st.mu.Lock()
		terminal := st.rec.Status != StatusRunning
		completedAt := st.rec.CompletedAt
		st.mu.Unlock()

		if terminal && completedAt.Before(olderThan) {
			delete(c.batches, id)
			removed++
		}
	}
	return removed
}

// dedupe preserves first-occurrence order while dropping repeats.
func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
