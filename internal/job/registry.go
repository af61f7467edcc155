package job

import (
	"sync"
	"time"

	"downcore/internal/apperr"
	"downcore/internal/constants"
)

// Registry is the thread-safe in-memory store of every job's lifecycle
// record. A single RWMutex guards the id-to-record map, mirroring the
// download manager's map[string]*Job plus sync.RWMutex shape; mutators run
// with the lock held and must never perform I/O.
type Registry struct {
	mu        sync.RWMutex
	records   map[string]*Record
	order     []string // creation order, for List
	logCap    int
}

// NewRegistry returns an empty registry. logCap bounds the per-job ring
// buffer; pass 0 to use constants.JobLogCapacity.
func NewRegistry(logCap int) *Registry {
	if logCap <= 0 {
		logCap = constants.JobLogCapacity
	}
	return &Registry{
		records: make(map[string]*Record),
		logCap:  logCap,
	}
}

// Create inserts a new QUEUED job record under id. It fails with
// KindConflict if id is already present.
func (r *Registry) Create(id, url string, opts Options) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[id]; exists {
		return nil, apperr.NewWithMessage("job.Create", apperr.KindConflict, "job id already exists: "+id)
	}

	rec := &Record{
		ID:        id,
		URL:       url,
		Options:   opts,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
	}
	r.records[id] = rec
	r.order = append(r.order, id)

	snap := rec.Snapshot()
	return &snap, nil
}

// Get returns a snapshot of the job record for id, or KindNotFound.
func (r *Registry) Get(id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, apperr.NewWithMessage("job.Get", apperr.KindNotFound, "job not found: "+id)
	}
	snap := rec.Snapshot()
	return &snap, nil
}

// Update executes mutator against the live record for id under the
// registry lock. mutator must not perform I/O. Returns KindNotFound if id
// is absent.
func (r *Registry) Update(id string, mutator func(*Record)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return apperr.NewWithMessage("job.Update", apperr.KindNotFound, "job not found: "+id)
	}
	mutator(rec)
	return nil
}

// AppendLog appends a ring-buffered log line to id's job log, evicting the
// oldest entry once the cap is reached.
func (r *Registry) AppendLog(id string, level LogLevel, message string) error {
	return r.Update(id, func(rec *Record) {
		rec.Log = append(rec.Log, LogEntry{Time: time.Now(), Level: level, Message: message})
		if over := len(rec.Log) - r.logCap; over > 0 {
			rec.Log = rec.Log[over:]
		}
	})
}

// UpdateProgress coalesces a progress callback into the job's Progress
// field and stamps UpdatedAt. Percent and DownloadedBytes never move
// backwards: a lower incoming value keeps the previous one.
func (r *Registry) UpdateProgress(id string, p Progress) error {
	return r.Update(id, func(rec *Record) {
		if p.Percent < rec.Progress.Percent {
			p.Percent = rec.Progress.Percent
		}
		if p.DownloadedBytes < rec.Progress.DownloadedBytes {
			p.DownloadedBytes = rec.Progress.DownloadedBytes
		}
		p.UpdatedAt = time.Now()
		rec.Progress = p
	})
}

// TransitionRunning moves a QUEUED job to RUNNING, setting StartedAt.
func (r *Registry) TransitionRunning(id string) error {
	return r.Update(id, func(rec *Record) {
		if rec.Status != StatusQueued {
			return
		}
		rec.Status = StatusRunning
		rec.StartedAt = time.Now()
	})
}

// TransitionCompleted moves a RUNNING job to COMPLETED with artifact.
func (r *Registry) TransitionCompleted(id string, artifact Artifact) error {
	return r.Update(id, func(rec *Record) {
		if rec.Status != StatusRunning {
			return
		}
		rec.Status = StatusCompleted
		rec.Artifact = &artifact
		rec.CompletedAt = time.Now()
	})
}

// TransitionFailed moves a job to FAILED with the given error descriptor.
func (r *Registry) TransitionFailed(id string, jobErr JobError) error {
	return r.Update(id, func(rec *Record) {
		if rec.Status.Terminal() {
			return
		}
		rec.Status = StatusFailed
		rec.Error = &jobErr
		rec.CompletedAt = time.Now()
	})
}

// TransitionCancelled moves a QUEUED or RUNNING job to CANCELLED.
func (r *Registry) TransitionCancelled(id string) error {
	return r.Update(id, func(rec *Record) {
		if rec.Status.Terminal() {
			return
		}
		rec.Status = StatusCancelled
		rec.CompletedAt = time.Now()
	})
}

// Filter narrows List results. A zero-value Filter matches everything:
// empty Status matches any status, empty BatchID matches any job.
type Filter struct {
	Status  Status
	BatchID string
}

// List returns a creation-ordered snapshot of jobs matching filter.
func (r *Registry) List(filter Filter) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.order))
	for _, id := range r.order {
		rec, ok := r.records[id]
		if !ok {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.BatchID != "" && rec.Options.BatchID != filter.BatchID {
			continue
		}
		out = append(out, rec.Snapshot())
	}
	return out
}

// Stats returns the count of jobs in each status.
func (r *Registry) Stats() map[Status]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := map[Status]int{
		StatusQueued:    0,
		StatusRunning:   0,
		StatusCompleted: 0,
		StatusFailed:    0,
		StatusCancelled: 0,
	}
	for _, rec := range r.records {
		stats[rec.Status]++
	}
	return stats
}
