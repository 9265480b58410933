package models

import (
	"time"

	"fetcharr/internal/domain/consts"
)

// Job is one tracked transfer from submission to a terminal outcome.
type Job struct {
	ID         string                `json:"download_id"`
	URL        string                `json:"url"`
	Format     consts.Format         `json:"format"`
	Filename   string                `json:"filename"`
	OutputPath string                `json:"-"`
	Status     consts.DownloadStatus `json:"status"`
	Progress   float64               `json:"progress"`
	Error      string                `json:"error,omitempty"`
	CreatedAt  time.Time             `json:"createdAt"`
	UpdatedAt  time.Time             `json:"updatedAt"`

	// Process is set only while Status is downloading.
	Process Process `json:"-"`
}

// StatusReport is the point-in-time answer to a status query.
type StatusReport struct {
	JobID    string                `json:"download_id"`
	Status   consts.DownloadStatus `json:"status"`
	Progress float64               `json:"progress"`
}

// SubmitResult is returned to the caller of a submission.
type SubmitResult struct {
	JobID    string    `json:"download_id"`
	Filename string    `json:"filename"`
	Status   string    `json:"status"`
	Metadata *Metadata `json:"video_info"`
}
