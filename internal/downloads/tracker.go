package downloads

import (
	"context"
	"sync"
	"time"

	"fetcharr/internal/domain/consts"
	"fetcharr/internal/models"
	"fetcharr/internal/utils/logging"
)

// HistoryStore persists finished jobs.
type HistoryStore interface {
	InsertRecords(ctx context.Context, records []models.HistoryRecord) error
}

// DownloadTracker writes terminal job outcomes to a history store off the hot path.
type DownloadTracker struct {
	updates chan models.HistoryRecord
	done    chan struct{}
	stopped chan struct{}
	store   HistoryStore

	stopOnce sync.Once
}

// NewDownloadTracker returns the model used for tracking downloads.
func NewDownloadTracker(store HistoryStore) *DownloadTracker {
	return &DownloadTracker{
		updates: make(chan models.HistoryRecord, consts.HistoryBuffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		store:   store,
	}
}

// Start starts download tracking.
func (t *DownloadTracker) Start(ctx context.Context) {
	go t.processUpdates(ctx)
}

// Stop flushes queued records and stops download tracking.
func (t *DownloadTracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.done)
	})
	<-t.stopped
}

// Record queues a finished job. It never blocks; a full queue drops the record.
func (t *DownloadTracker) Record(rec models.HistoryRecord) {
	if rec.JobID == "" {
		logging.E("Invalid history record: %+v", rec)
		return
	}

	select {
	case t.updates <- rec:
	default:
		logging.W("History queue full, dropping record for job %s", rec.JobID)
	}
}

// processUpdates processes download history records.
func (t *DownloadTracker) processUpdates(ctx context.Context) {
	defer close(t.stopped)
	for {
		select {
		case <-t.done:
			t.flushUpdates(ctx, t.drain())
			return

		case rec := <-t.updates:
			logging.D(2, "History record for job %s:\n\nStatus: %s\nProgress: %.2f\nError: %s\n",
				rec.JobID, rec.Status, rec.Progress, rec.Error)
			t.flushUpdates(ctx, []models.HistoryRecord{rec})
		}
	}
}

// drain empties the queue without blocking.
func (t *DownloadTracker) drain() []models.HistoryRecord {
	var recs []models.HistoryRecord
	for {
		select {
		case rec := <-t.updates:
			recs = append(recs, rec)
		default:
			return recs
		}
	}
}

// flushUpdates writes records to the store, retrying transient failures.
func (t *DownloadTracker) flushUpdates(ctx context.Context, records []models.HistoryRecord) {
	if len(records) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), consts.DatabaseTimeout)
	defer cancel()

	backoff := consts.RetryBackoff
	maxRetries := consts.DefaultMaxRetries

	for attempt := range maxRetries {
		if err := t.store.InsertRecords(ctx, records); err != nil {
			if attempt == maxRetries-1 {
				logging.E("Failed to write download history after %d attempts: %v", maxRetries, err)
				return
			}
			logging.W("Retrying history write after failure (attempt %d/%d): %v",
				attempt+1, maxRetries, err)
			time.Sleep(backoff * time.Duration(attempt+1))
			continue
		}
		break
	}
	logging.D(2, "Successfully flushed %d history records", len(records))
}
