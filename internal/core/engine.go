// Package core wires the job registry, execution queue, batch coordinator,
// downloader driver, file manager, webhook dispatcher, and channel/playlist
// expander into the single facade external callers use: submitting single
// jobs, batches, and expanded channels/playlists, and querying or
// cancelling them.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"downcore/internal/apperr"
	"downcore/internal/batch"
	"downcore/internal/config"
	"downcore/internal/driver"
	"downcore/internal/expander"
	"downcore/internal/filemanager"
	"downcore/internal/job"
	"downcore/internal/logger"
	"downcore/internal/queue"
	"downcore/internal/scheduler"
	"downcore/internal/webhook"
)

// Engine is the core facade. It owns every long-lived component and is
// safe for concurrent use by multiple callers.
type Engine struct {
	cfg *config.Config

	registry    *job.Registry
	scheduler   *scheduler.Scheduler
	fileManager *filemanager.Manager
	driver      *driver.Driver
	queue       *queue.Queue
	webhooks    *webhook.Dispatcher
	batches     *batch.Coordinator
	expander    *expander.Expander
}

// New wires every component from cfg and starts their background
// goroutines (deletion scheduler, execution queue workers).
func New(cfg *config.Config) (*Engine, error) {
	snap := cfg.Get()

	sched := scheduler.New()

	fileMgr, err := filemanager.New(snap.StorageRoot, snap.PublicBaseURL, sched)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:         cfg,
		registry:    job.NewRegistry(0),
		scheduler:   sched,
		fileManager: fileMgr,
		driver:      driver.New(snap.DownloaderBinaryPath, snap.FFmpegPath),
		webhooks: webhook.New(
			time.Duration(snap.WebhookTimeoutSec)*time.Second,
			snap.WebhookMaxRetries,
			time.Duration(snap.ProgressThrottleSec*float64(time.Second)),
			snap.WebhookEnable,
		),
	}
	e.queue = queue.New(snap.WorkerCount, snap.MaxConcurrentDownloads)
	e.batches = batch.New(e.registry, e.submitChild, e.queue.Cancel, 100*time.Millisecond)
	e.expander = expander.New(e.driver)

	return e, nil
}

// Shutdown stops accepting new work and waits for in-flight jobs to drain
// if wait is true.
func (e *Engine) Shutdown(wait bool) {
	e.queue.Shutdown(wait)
	e.scheduler.Shutdown(true)
}

// SubmitSingle creates and enqueues one download job, returning its id.
func (e *Engine) SubmitSingle(ctx context.Context, url string, opts job.Options) (string, error) {
	id := uuid.NewString()
	if _, err := e.registry.Create(id, url, opts); err != nil {
		return "", err
	}
	if err := e.submitChild(ctx, id, url, opts); err != nil {
		return "", err
	}
	return id, nil
}

// SubmitBatch expands urls into child jobs under shared options and
// returns the batch id plus child job ids.
func (e *Engine) SubmitBatch(ctx context.Context, urls []string, opts job.Options, concurrency int, stopOnError bool) (string, []string, error) {
	return e.batches.Create(ctx, urls, opts, concurrency, stopOnError)
}

// ExpandAndSubmitChannel resolves a channel listing and submits it as a
// batch.
func (e *Engine) ExpandAndSubmitChannel(ctx context.Context, url string, filter expander.Filter, sortMode expander.SortMode, cap int, opts job.Options, concurrency int, stopOnError bool) (string, error) {
	entries, err := e.expander.ExpandChannel(ctx, url, filter, sortMode, cap)
	if err != nil {
		return "", err
	}
	urls := make([]string, len(entries))
	for i, entry := range entries {
		urls[i] = entry.URL
	}
	batchID, _, err := e.batches.Create(ctx, urls, opts, concurrency, stopOnError)
	return batchID, err
}

// ExpandAndSubmitPlaylist resolves a playlist selection and submits it as
// a batch.
func (e *Engine) ExpandAndSubmitPlaylist(ctx context.Context, url, selection string, reverse bool, opts job.Options, concurrency int, stopOnError bool) (string, error) {
	entries, err := e.expander.ExpandPlaylist(ctx, url, selection, reverse)
	if err != nil {
		return "", err
	}
	urls := make([]string, len(entries))
	for i, entry := range entries {
		urls[i] = entry.URL
	}
	batchID, _, err := e.batches.Create(ctx, urls, opts, concurrency, stopOnError)
	return batchID, err
}

// GetJob returns a snapshot of a single job's full record.
func (e *Engine) GetJob(id string) (*job.Record, error) {
	return e.registry.Get(id)
}

// CancelJob cancels a queued or running job, returning its resulting
// status.
func (e *Engine) CancelJob(id string) (job.Status, error) {
	rec, err := e.registry.Get(id)
	if err != nil {
		return "", err
	}
	if rec.Status.Terminal() {
		return rec.Status, nil
	}
	e.queue.Cancel(id)
	if rec.Status == job.StatusQueued {
		e.registry.TransitionCancelled(id)
	}
	final, err := e.registry.Get(id)
	if err != nil {
		return "", err
	}
	return final.Status, nil
}

// GetBatch returns a batch's aggregate record.
func (e *Engine) GetBatch(id string) (batch.Record, error) {
	return e.batches.Status(id)
}

// CancelBatch cancels a batch and every non-terminal child, returning the
// number of children signalled.
func (e *Engine) CancelBatch(id string) (int, error) {
	return e.batches.Cancel(id)
}

// submitChild wires one job id into the execution queue: it builds the
// driver request, runs it, and translates progress/terminal outcomes into
// registry transitions and webhook events.
func (e *Engine) submitChild(ctx context.Context, id, url string, opts job.Options) error {
	snap := e.cfg.Get()

	timeout := time.Duration(snap.DefaultJobTimeoutSec) * time.Second
	if opts.TimeoutSec > 0 {
		timeout = time.Duration(opts.TimeoutSec) * time.Second
	}
	stallTimeout := time.Duration(snap.ProgressStallTimeoutSec) * time.Second

	outputPath, relativePath, err := e.resolveOutputPath(id, url, opts)
	if err != nil {
		e.registry.TransitionFailed(id, job.JobError{Kind: string(apperr.KindOf(err)), Message: err.Error()})
		return err
	}

	req := driver.Request{
		JobID:        id,
		URL:          url,
		Quality:      opts.Quality,
		Format:       opts.Format,
		Subtitles:    string(opts.Subtitles),
		Thumbnail:    opts.WantThumbnail,
		Metadata:     opts.WantMetadata,
		OutputPath:   outputPath,
		WorkDir:      snap.StorageRoot,
		Timeout:      timeout,
		StallTimeout: stallTimeout,
	}

	work := func(ctx context.Context) (job.Artifact, error) {
		e.registry.TransitionRunning(id)
		e.dispatchLifecycle(ctx, id, opts, webhook.EventStarted, false)

		sink := &registrySink{engine: e, jobID: id, opts: opts}
		artifact, err := e.driver.Run(ctx, req, sink)
		if err != nil {
			return job.Artifact{}, err
		}

		result := job.Artifact{
			Filename:  artifact.Filename,
			Path:      artifact.Path,
			Size:      artifact.Size,
			Title:     artifact.Title,
			Uploader:  artifact.Uploader,
			Duration:  artifact.Duration,
			PublicURL: e.fileManager.PublicURL(relativePath),
		}
		return result, nil
	}

	onComplete := func(artifact job.Artifact) {
		e.registry.TransitionCompleted(id, artifact)
		e.webhooks.Release(id)
		e.dispatchLifecycle(context.Background(), id, opts, webhook.EventCompleted, false)
		if snap.FileRetentionHours > 0 {
			e.fileManager.ScheduleDeletion(artifact.Path, snap.FileRetentionHours)
		}
	}

	onFail := func(failErr error) {
		cancelled := apperr.Is(failErr, apperr.KindCancelled)

		if cancelled {
			e.registry.TransitionCancelled(id)
			e.fileManager.RemoveSubtree(outputPath)
		} else {
			e.registry.TransitionFailed(id, job.JobError{Kind: string(apperr.KindOf(failErr)), Message: failErr.Error()})
		}
		e.webhooks.Release(id)
		e.dispatchLifecycle(context.Background(), id, opts, webhook.EventFailed, cancelled)
	}

	return e.queue.Submit(ctx, id, work, onComplete, onFail)
}

func (e *Engine) dispatchLifecycle(ctx context.Context, jobID string, opts job.Options, kind webhook.EventKind, cancelled bool) {
	if opts.WebhookURL == "" {
		return
	}
	snap := e.cfg.Get()
	e.webhooks.DispatchLifecycle(ctx, opts.WebhookURL, snap.SigningSecret, jobID, kind, cancelled, nil)
}

func (e *Engine) resolveOutputPath(id, url string, opts job.Options) (string, string, error) {
	template := opts.OutputTemplate
	if template == "" {
		template = "{batch_id}/{id}_{safe_title}.{ext}"
		if opts.BatchID == "" {
			template = "{id}_{safe_title}.{ext}"
		}
	}

	ext := "mp4"
	if opts.Quality == "audio" {
		ext = "mp3"
	}

	expanded := e.fileManager.ExpandTemplate(template, filemanager.TemplateMetadata{
		ID:            id,
		Title:         id,
		Ext:           ext,
		PlaylistIndex: fmt.Sprintf("%d", opts.PlaylistIndex),
		BatchID:       opts.BatchID,
	})

	absolute, err := e.fileManager.ValidatePath(expanded)
	return absolute, expanded, err
}

// registrySink adapts the driver's ProgressSink interface onto the job
// registry and webhook dispatcher.
type registrySink struct {
	engine *Engine
	jobID  string
	opts   job.Options
}

func (s *registrySink) OnProgress(u driver.ProgressUpdate) error {
	err := s.engine.registry.UpdateProgress(s.jobID, job.Progress{
		Percent:         u.Percent,
		DownloadedBytes: u.DownloadedBytes,
		TotalBytes:      u.TotalBytes,
		SpeedBytesPerS:  u.SpeedBytesPerS,
		ETASeconds:      u.ETASeconds,
	})
	if err != nil {
		return err
	}
	if s.opts.WebhookURL != "" {
		snap := s.engine.cfg.Get()
		s.engine.webhooks.DispatchProgress(s.opts.WebhookURL, snap.SigningSecret, s.jobID, u)
	}
	return nil
}

func (s *registrySink) OnLog(line string) {
	if err := s.engine.registry.AppendLog(s.jobID, job.LogInfo, line); err != nil {
		logger.Log.Warn().Err(err).Str("jobId", s.jobID).Msg("failed to append job log")
	}
}
