package models

import "time"

// Artifact is a persisted output file.
//
// Its lifecycle is independent of the job that produced it.
type Artifact struct {
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size"`
	CreatedAt time.Time `json:"created"`
	URL       string    `json:"url"`
}
