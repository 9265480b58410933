package models

import "fetcharr/internal/domain/consts"

// Event is a state-change notification broadcast to every subscriber.
type Event struct {
	Type     consts.EventType      `json:"type"`
	JobID    string                `json:"download_id,omitempty"`
	Progress float64               `json:"progress"`
	Status   consts.DownloadStatus `json:"status,omitempty"`
	Error    string                `json:"error,omitempty"`
	Kind     string                `json:"kind,omitempty"`
}
