package downloads

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"fetcharr/internal/domain/consts"
	"fetcharr/internal/models"

	"github.com/google/uuid"
)

// allowedTransitions lists the legal status edges.
var allowedTransitions = map[consts.DownloadStatus][]consts.DownloadStatus{
	consts.DLStatusQueued:      {consts.DLStatusDownloading, consts.DLStatusCancelled},
	consts.DLStatusDownloading: {consts.DLStatusCompleted, consts.DLStatusFailed, consts.DLStatusCancelled},
}

// Registry is the concurrency-safe store of registered jobs.
//
// Every method returns copies; callers never hold a pointer into the map.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

// NewRegistry returns an empty job registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*models.Job),
	}
}

// Create registers a job and returns its ID.
//
// An empty job ID is filled with a fresh UUID. A zero status is set to queued.
func (r *Registry) Create(job models.Job) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if _, exists := r.jobs[job.ID]; exists {
		return "", fmt.Errorf("job %q already registered: %w", job.ID, ErrInvalidParameters)
	}
	if job.Status == "" {
		job.Status = consts.DLStatusQueued
	}

	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now

	r.jobs[job.ID] = &job
	return job.ID, nil
}

// Get returns a snapshot of the job.
func (r *Registry) Get(id string) (models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return models.Job{}, fmt.Errorf("job %q: %w", id, ErrNotFound)
	}
	return *job, nil
}

// UpdateProgress raises the job's progress to fraction.
//
// Progress never decreases. Updates for unknown or non-downloading jobs
// are ignored and return false.
func (r *Registry) UpdateProgress(id string, fraction float64) (models.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Status != consts.DLStatusDownloading {
		return models.Job{}, false
	}

	fraction = min(max(fraction, 0), 1)
	if fraction > job.Progress {
		job.Progress = fraction
		job.UpdatedAt = time.Now()
	}
	return *job, true
}

// AttachProcess stores the process handle for a queued job.
func (r *Registry) AttachProcess(id string, p models.Process) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("job %q: %w", id, ErrNotFound)
	}
	job.Process = p
	return nil
}

// Transition moves the job to status, recording detail on failure.
//
// Reaching a terminal status drops the process handle.
func (r *Registry) Transition(id string, status consts.DownloadStatus, detail string) (models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return models.Job{}, fmt.Errorf("job %q: %w", id, ErrNotFound)
	}
	if !canTransition(job.Status, status) {
		return *job, fmt.Errorf("job %q %s -> %s: %w", id, job.Status, status, ErrInvalidTransition)
	}

	job.Status = status
	job.UpdatedAt = time.Now()
	if status == consts.DLStatusFailed {
		job.Error = detail
	}
	if status.IsTerminal() {
		job.Process = nil
	}
	return *job, nil
}

// Remove deletes the job. Removing an unknown job is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

// List returns snapshots of every registered job.
func (r *Registry) List() []models.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, *j)
	}
	return out
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// canTransition reports whether from -> to is a legal edge.
func canTransition(from, to consts.DownloadStatus) bool {
	return slices.Contains(allowedTransitions[from], to)
}
