// Package scheduler implements the deletion scheduler: a min-heap of
// (deadline, path) tasks drained by a single background worker.
package scheduler

import (
	"container/heap"
	"os"
	"sync"
	"time"

	"downcore/internal/logger"
)

// TaskID identifies a scheduled deletion so it can later be cancelled.
type TaskID uint64

// task is one scheduled deletion. Unexported: callers only ever see a
// TaskID.
type task struct {
	id     TaskID
	path   string
	fireAt time.Time
	index  int // heap.Interface bookkeeping
}

// taskHeap is a container/heap.Interface ordering tasks by fireAt.
type taskHeap []*task

func (h taskHeap) Len() int            { return len(h) }
func (h taskHeap) Less(i, j int) bool  { return h[i].fireAt.Before(h[j].fireAt) }
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *taskHeap) Push(x any) {
	t := x.(*task)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// Scheduler runs one background worker that deletes files at their
// scheduled deadline. Cancellation is O(log n) amortized: a cancelled
// task is tombstoned rather than removed from the heap, and is simply
// skipped when it is popped.
type Scheduler struct {
	mu        sync.Mutex
	heap      taskHeap
	live      map[TaskID]struct{} // pending, not-yet-popped task ids
	tombstone map[TaskID]struct{}
	nextID    TaskID
	wake      chan struct{}
	quit      chan struct{}
	done      chan struct{}
	closed    bool
}

// New starts a Scheduler's background worker and returns it.
func New() *Scheduler {
	s := &Scheduler{
		live:      make(map[TaskID]struct{}),
		tombstone: make(map[TaskID]struct{}),
		wake:      make(chan struct{}, 1),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go s.run()
	return s
}

// Schedule queues path for deletion after delay and returns its task id
// and absolute fire time.
func (s *Scheduler) Schedule(path string, delay time.Duration) (TaskID, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	fireAt := time.Now().Add(delay)
	heap.Push(&s.heap, &task{id: id, path: path, fireAt: fireAt})
	s.live[id] = struct{}{}

	s.signalLocked()
	return id, fireAt
}

// Cancel tombstones task id. It reports whether id was a known, still
// pending task. Membership is checked against the live-id set rather than
// scanning the heap, so cancellation is O(1) plus the O(log n) amortized
// cost of the later tombstoned pop.
func (s *Scheduler) Cancel(id TaskID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, pending := s.live[id]; !pending {
		return false
	}
	delete(s.live, id)
	s.tombstone[id] = struct{}{}
	return true
}

// PendingCount returns the number of tasks still in the heap, including
// tombstoned ones not yet popped.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.heap)
}

// Shutdown stops the worker. When drain is true, any tasks still pending
// (and not tombstoned) are executed synchronously in deadline order before
// returning; otherwise they are discarded.
func (s *Scheduler) Shutdown(drain bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.quit)
	s.mu.Unlock()

	<-s.done

	if !drain {
		return
	}

	s.mu.Lock()
	remaining := s.heap
	s.heap = nil
	s.mu.Unlock()

	for len(remaining) > 0 {
		t := heap.Pop(&remaining).(*task)
		s.mu.Lock()
		_, tombstoned := s.tombstone[t.id]
		s.mu.Unlock()
		if !tombstoned {
			deleteFile(t.path)
		}
	}
}

func (s *Scheduler) signalLocked() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run() {
	defer close(s.done)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.mu.Lock()
		var wait time.Duration
		if len(s.heap) == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(s.heap[0].fireAt)
			if wait < 0 {
				wait = 0
			}
		}
		s.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-s.quit:
			return
		case <-s.wake:
			continue
		case <-timer.C:
			s.fireDue()
		}
	}
}

// fireDue pops and executes every task whose deadline has passed.
func (s *Scheduler) fireDue() {
	for {
		s.mu.Lock()
		if len(s.heap) == 0 || s.heap[0].fireAt.After(time.Now()) {
			s.mu.Unlock()
			return
		}
		t := heap.Pop(&s.heap).(*task)
		delete(s.live, t.id)
		_, tombstoned := s.tombstone[t.id]
		if tombstoned {
			delete(s.tombstone, t.id)
		}
		s.mu.Unlock()

		if !tombstoned {
			deleteFile(t.path)
		}
	}
}

// deleteFile removes path, treating a missing file as success and logging
// (but not propagating) any other error.
func deleteFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Log.Warn().Err(err).Str("path", path).Msg("scheduled deletion failed")
	}
}
