package models

import "time"

// Metadata is the remote media information fetched once per submission.
type Metadata struct {
	Title       string     `json:"title"`
	Duration    float64    `json:"duration"`
	Thumbnail   string     `json:"thumbnail"`
	Uploader    string     `json:"uploader"`
	ViewCount   int64      `json:"view_count"`
	Description string     `json:"description"`
	UploadDate  *time.Time `json:"upload_date,omitempty"`
}
