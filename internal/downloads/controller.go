// Package downloads orchestrates download jobs: it validates requests,
// supervises one yt-dlp process per job and broadcasts state changes.
package downloads

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"fetcharr/internal/artifacts"
	"fetcharr/internal/domain/consts"
	"fetcharr/internal/downloads/downloaders"
	"fetcharr/internal/models"
	"fetcharr/internal/utils/logging"

	"github.com/google/uuid"
)

// Emitter receives job state-change events.
type Emitter interface {
	Emit(ev models.Event)
}

// Recorder persists terminal job outcomes.
type Recorder interface {
	Record(rec models.HistoryRecord)
}

// Observer receives job lifecycle measurements.
type Observer interface {
	JobSubmitted(format consts.Format)
	JobFinished(status consts.DownloadStatus, elapsed time.Duration)
	ActiveJobs(n int)
}

// Config holds the controller's collaborators.
type Config struct {
	Registry *Registry
	Runner   Runner
	Metadata MetadataFetcher
	Events   Emitter
	Store    *artifacts.Store

	// Optional
	History Recorder
	Metrics Observer
}

// Controller exposes the public download operations.
type Controller struct {
	registry *Registry
	runner   Runner
	meta     MetadataFetcher
	events   Emitter
	store    *artifacts.Store
	history  Recorder
	metrics  Observer

	// mu orders each registry mutation with the event it broadcasts,
	// so a job's terminal event is always its last.
	mu sync.Mutex
	wg sync.WaitGroup

	// ctx bounds every spawned process.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewController returns a controller whose processes live until ctx is done or Shutdown is called.
func NewController(ctx context.Context, cfg Config) (*Controller, error) {
	switch {
	case cfg.Runner == nil:
		return nil, errors.New("controller needs a process runner")
	case cfg.Metadata == nil:
		return nil, errors.New("controller needs a metadata fetcher")
	case cfg.Events == nil:
		return nil, errors.New("controller needs an event emitter")
	case cfg.Store == nil:
		return nil, errors.New("controller needs an artifact store")
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.History == nil {
		cfg.History = nopRecorder{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopObserver{}
	}

	ctx, cancel := context.WithCancel(ctx)
	return &Controller{
		registry: cfg.Registry,
		runner:   cfg.Runner,
		meta:     cfg.Metadata,
		events:   cfg.Events,
		store:    cfg.Store,
		history:  cfg.History,
		metrics:  cfg.Metrics,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Submit validates the request, fetches metadata and starts the download.
//
// It returns as soon as the process is running. Later failures are only
// reported through events.
func (c *Controller) Submit(ctx context.Context, rawURL, format string) (*models.SubmitResult, error) {
	f, ok := consts.ParseFormat(strings.ToLower(strings.TrimSpace(format)))
	if !ok {
		return nil, fmt.Errorf("%w: format %q must be audio or video", ErrInvalidParameters, format)
	}

	meta, err := c.Metadata(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	filename := artifacts.OutputFilename(meta.Title, f)
	job := models.Job{
		ID:         uuid.NewString(),
		URL:        strings.TrimSpace(rawURL),
		Format:     f,
		Filename:   filename,
		OutputPath: c.store.Path(filename),
		Status:     consts.DLStatusQueued,
	}

	proc, err := c.runner.Start(c.ctx, job)
	if err != nil {
		if !errors.Is(err, ErrProcessSpawn) {
			err = fmt.Errorf("%w: %v", ErrProcessSpawn, err)
		}
		return nil, err
	}

	if err := c.register(job, proc); err != nil {
		discard(proc)
		return nil, err
	}

	c.metrics.JobSubmitted(f)
	c.wg.Add(1)
	go c.supervise(job.ID, proc)

	logging.I("Started %s download %q for %s", f, filename, job.URL)
	return &models.SubmitResult{
		JobID:    job.ID,
		Filename: filename,
		Status:   "started",
		Metadata: meta,
	}, nil
}

// register records the job as queued and moves it straight to downloading.
// On error nothing it created stays registered.
func (c *Controller) register(job models.Job, proc models.Process) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.registry.Create(job)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			c.registry.Remove(id)
		}
	}()

	if err = c.registry.AttachProcess(id, proc); err != nil {
		return err
	}
	if _, err = c.registry.Transition(id, consts.DLStatusDownloading, ""); err != nil {
		return err
	}
	c.metrics.ActiveJobs(c.registry.Len())
	return nil
}

// Metadata fetches remote media information for rawURL.
func (c *Controller) Metadata(ctx context.Context, rawURL string) (*models.Metadata, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	meta, err := c.meta.Fetch(ctx, strings.TrimSpace(rawURL))
	if err != nil {
		if !errors.Is(err, ErrMetadataUnavailable) {
			err = fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
		}
		return nil, err
	}
	return meta, nil
}

// supervise consumes one job's output until the process exits.
func (c *Controller) supervise(id string, proc models.Process) {
	defer c.wg.Done()

	for line := range proc.Lines() {
		if line != "" {
			logging.D(4, "Job %s download terminal output: %q", id, line)
		}

		pct, ok := downloaders.YtdlpProgress(line)
		if !ok {
			continue
		}

		c.mu.Lock()
		// Gone after a cancel: the update is dropped silently
		if job, ok := c.registry.UpdateProgress(id, pct/100); ok {
			c.events.Emit(progressEvent(job))
		}
		c.mu.Unlock()
	}

	code, err := proc.Wait()
	c.finish(id, code, err)
}

// finish emits the terminal events for a job whose process has exited.
func (c *Controller) finish(id string, code int, waitErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.registry.Get(id); err != nil {
		logging.D(1, "Job %s exited with code %d after it was purged", id, code)
		return
	}

	var (
		job models.Job
		err error
	)
	if code == 0 && waitErr == nil {
		job, _ = c.registry.UpdateProgress(id, 1.0)
		c.events.Emit(progressEvent(job))

		if job, err = c.registry.Transition(id, consts.DLStatusCompleted, ""); err != nil {
			logging.E("Job %s could not complete: %v", id, err)
			return
		}
		c.events.Emit(models.Event{
			Type:     consts.EventComplete,
			JobID:    id,
			Progress: job.Progress,
			Status:   job.Status,
		})
		logging.S("Download completed for %q", job.Filename)
	} else {
		detail := fmt.Sprintf("%s: exit code %d", ErrDownloadFailure, code)
		if waitErr != nil {
			detail = fmt.Sprintf("%s: %v", ErrDownloadFailure, waitErr)
		}

		if job, err = c.registry.Transition(id, consts.DLStatusFailed, detail); err != nil {
			logging.E("Job %s could not fail: %v", id, err)
			return
		}
		c.events.Emit(models.Event{
			Type:     consts.EventError,
			JobID:    id,
			Progress: job.Progress,
			Status:   job.Status,
			Error:    detail,
			Kind:     consts.KindDownloadFailure,
		})
		logging.E("Download failed for %q: %s", job.URL, detail)
	}

	c.purge(job)
}

// Status returns the job's current status and progress.
//
// Jobs are purged once they reach a terminal state, after which
// Status returns ErrNotFound regardless of the outcome.
func (c *Controller) Status(id string) (models.StatusReport, error) {
	job, err := c.registry.Get(id)
	if err != nil {
		return models.StatusReport{}, err
	}
	return models.StatusReport{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
	}, nil
}

// Cancel terminates the job's process and purges it without waiting for the exit.
func (c *Controller) Cancel(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	job, err := c.registry.Get(id)
	if err != nil {
		return err
	}

	if job.Process != nil {
		if err := job.Process.Terminate(); err != nil {
			logging.W("Failed to terminate process %d for job %s: %v", job.Process.PID(), id, err)
		}
	}

	if job, err = c.registry.Transition(id, consts.DLStatusCancelled, ""); err != nil {
		return err
	}
	c.events.Emit(models.Event{
		Type:     consts.EventError,
		JobID:    id,
		Progress: job.Progress,
		Status:   job.Status,
		Error:    ErrCancelled.Error(),
		Kind:     consts.KindCancelled,
	})
	logging.I("Cancelled download %s for %q", id, job.URL)

	c.purge(job)
	return nil
}

// purge removes a terminal job and records its outcome. Callers hold c.mu.
func (c *Controller) purge(job models.Job) {
	c.registry.Remove(job.ID)

	c.history.Record(models.HistoryRecord{
		JobID:      job.ID,
		URL:        job.URL,
		Format:     job.Format,
		Filename:   job.Filename,
		Status:     job.Status,
		Progress:   job.Progress,
		Error:      job.Error,
		CreatedAt:  job.CreatedAt,
		FinishedAt: job.UpdatedAt,
	})
	c.metrics.JobFinished(job.Status, job.UpdatedAt.Sub(job.CreatedAt))
	c.metrics.ActiveJobs(c.registry.Len())
}

// ListArtifacts enumerates persisted outputs, tracked or not.
func (c *Controller) ListArtifacts() ([]models.Artifact, error) {
	return c.store.List()
}

// OpenArtifact opens a persisted output for streaming.
func (c *Controller) OpenArtifact(filename string) (*os.File, os.FileInfo, error) {
	f, info, err := c.store.Open(filename)
	if err != nil {
		return nil, nil, artifactErr(err)
	}
	return f, info, nil
}

// DeleteArtifact removes a persisted output.
func (c *Controller) DeleteArtifact(filename string) error {
	if err := c.store.Delete(filename); err != nil {
		return artifactErr(err)
	}
	logging.I("Deleted %q", filename)
	return nil
}

// Shutdown cancels every running job and waits for their processes to be reaped.
func (c *Controller) Shutdown(ctx context.Context) error {
	for _, job := range c.registry.List() {
		if err := c.Cancel(job.ID); err != nil && !errors.Is(err, ErrNotFound) {
			logging.W("Shutdown: could not cancel job %s: %v", job.ID, err)
		}
	}
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for download processes: %w", ctx.Err())
	}
}

// progressEvent builds a progress event from a job snapshot.
func progressEvent(job models.Job) models.Event {
	return models.Event{
		Type:     consts.EventProgress,
		JobID:    job.ID,
		Progress: job.Progress,
		Status:   job.Status,
	}
}

// discard terminates a process nobody will supervise and reaps it in the background.
func discard(proc models.Process) {
	if err := proc.Terminate(); err != nil {
		logging.W("Failed to terminate unsupervised process %d: %v", proc.PID(), err)
	}
	go func() {
		for range proc.Lines() {
		}
		proc.Wait()
	}()
}

// validateURL checks that rawURL is an absolute URL with a host.
func validateURL(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return fmt.Errorf("%w: URL required", ErrInvalidParameters)
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: invalid URL %q", ErrInvalidParameters, rawURL)
	}
	return nil
}

// artifactErr maps store errors onto controller errors.
func artifactErr(err error) error {
	switch {
	case errors.Is(err, artifacts.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, artifacts.ErrInvalidFilename):
		return fmt.Errorf("%w: %w", ErrInvalidParameters, err)
	default:
		return err
	}
}

type nopRecorder struct{}

func (nopRecorder) Record(models.HistoryRecord) {}

type nopObserver struct{}

func (nopObserver) JobSubmitted(consts.Format) {}

func (nopObserver) JobFinished(consts.DownloadStatus, time.Duration) {}

func (nopObserver) ActiveJobs(int) {}
