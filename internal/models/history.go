package models

import (
	"time"

	"fetcharr/internal/domain/consts"
)

// HistoryRecord is the persisted outcome of a finished job.
type HistoryRecord struct {
	JobID      string                `json:"download_id"`
	URL        string                `json:"url"`
	Format     consts.Format         `json:"format"`
	Filename   string                `json:"filename"`
	Status     consts.DownloadStatus `json:"status"`
	Progress   float64               `json:"progress"`
	Error      string                `json:"error,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	FinishedAt time.Time             `json:"finished_at"`
}
