// Package constants defines module-wide constants and magic values.
// Centralizing these values improves maintainability and reduces typos.
package constants

import "time"

// Application metadata
const (
	AppName     = "downcore"
	ConfigFile  = "downcore.json"
	LogFileName = "downcore.log"
)

// Timeouts
const (
	// HTTPTimeout is a general outbound HTTP timeout. The webhook
	// dispatcher does not use it; its default is DefaultWebhookTimeoutSec.
	HTTPTimeout = 30 * time.Second

	// DefaultJobTimeout is a job-duration bound that the engine does not
	// read: a job without its own timeout is bounded by the config's
	// DefaultJobTimeoutSec (3600 seconds by default).
	DefaultJobTimeout = 2 * time.Hour

	// DefaultStallTimeout is how long a download may go without a progress
	// callback before the driver kills it.
	DefaultStallTimeout = 2 * time.Minute

	// MetadataTimeout bounds a metadata-only listing fetch (channel/playlist
	// expansion).
	MetadataTimeout = 30 * time.Second
)

// Queue and batch settings
const (
	// DefaultWorkerCount is the default Execution Queue pool size.
	DefaultWorkerCount = 4

	// DefaultMaxConcurrentDownloads is the default semaphore width.
	DefaultMaxConcurrentDownloads = 4

	// QueueRejectMultiplier sets the point at which new submissions are
	// rejected with QueueFull: reject once pending jobs exceed
	// QueueRejectMultiplier * MaxConcurrentDownloads.
	QueueRejectMultiplier = 2

	// DefaultMaxBatchSize is the hard cap on URLs accepted into one batch.
	DefaultMaxBatchSize = 100
)

// File and log limits
const (
	// MaxFilenameLength is the maximum length for sanitized filenames.
	MaxFilenameLength = 200

	// JobLogCapacity bounds the number of lines retained per job log.
	JobLogCapacity = 500

	// LogMaxSizeMB and LogMaxBackups configure the rotating log writer.
	LogMaxSizeMB  = 10
	LogMaxBackups = 5
)

// Webhook defaults
const (
	DefaultWebhookTimeoutSec   = 10
	DefaultWebhookMaxRetries   = 3
	DefaultProgressThrottleSec = 1.0
	WebhookSignatureHeader     = "X-Webhook-Signature"
)

// Job status values, mirrored as strings for logging and wire payloads.
const (
	StatusQueued    = "QUEUED"
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)
