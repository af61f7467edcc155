// Package job implements the in-memory job state registry: the single
// source of truth for every download's lifecycle record. Every other
// component looks a job up by id and mutates it through the registry's
// lock rather than holding a long-lived reference, mirroring the
// map[string]*Job-under-sync.RWMutex shape used by the download manager
// this module grew out of.
package job

import (
	"time"
)

// Status is a job's position in the lifecycle DAG:
// QUEUED -> RUNNING -> {COMPLETED, FAILED, CANCELLED}, QUEUED -> CANCELLED.
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether s is a terminal status.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// SubtitlePolicy controls whether and how subtitles are fetched.
type SubtitlePolicy string

const (
	SubtitlesNone SubtitlePolicy = ""
	SubtitlesAuto SubtitlePolicy = "auto"
	SubtitlesAll  SubtitlePolicy = "all"
)

// Options is the typed, boundary-validated request shape for a single
// download. Validation happens once at construction (see NewOptions),
// replacing decorator-based runtime validation with constructor
// validation.
type Options struct {
	Quality         string // "best", "4k", "1080p", "720p", "480p", "360p", "audio"
	Format          string // custom format string, allow-list filtered
	Subtitles       SubtitlePolicy
	WantThumbnail   bool
	WantMetadata    bool
	OutputTemplate  string
	TimeoutSec      int
	WebhookURL      string
	CookieRefID     string
	PlaylistIndex   int // 0 when not part of a playlist/batch
	BatchID         string
}

// Progress is a job's most recently observed download progress. Percent
// and DownloadedBytes are monotone non-decreasing within a single RUNNING
// span.
type Progress struct {
	Percent         float64
	DownloadedBytes int64
	TotalBytes      int64
	SpeedBytesPerS  float64
	ETASeconds      int64
	UpdatedAt       time.Time
}

// Artifact describes the file a completed job produced.
type Artifact struct {
	Filename  string
	Path      string
	Size      int64
	PublicURL string
	Title     string
	Uploader  string
	Duration  int64
}

// JobError describes a terminal failure.
type JobError struct {
	Kind    string
	Message string
}

// LogLevel mirrors zerolog's level names without importing the logger
// package, keeping this package dependency-free for testing.
type LogLevel string

const (
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// LogEntry is one line of a job's ring-buffered log.
type LogEntry struct {
	Time    time.Time
	Level   LogLevel
	Message string
}

// Record is the full lifecycle record for one job.
type Record struct {
	ID      string
	URL     string
	Options Options
	Status  Status

	Progress Progress
	Log      []LogEntry // ring buffer, oldest evicted first
	Artifact *Artifact
	Error    *JobError

	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// Snapshot returns a deep-enough copy of r suitable for returning to a
// caller outside the registry lock. Log entries are copied so the caller
// cannot observe further ring-buffer mutation.
func (r *Record) Snapshot() Record {
	cp := *r
	cp.Log = append([]LogEntry(nil), r.Log...)
	if r.Artifact != nil {
		a := *r.Artifact
		cp.Artifact = &a
	}
	if r.Error != nil {
		e := *r.Error
		cp.Error = &e
	}
	return cp
}
