package consts

// Database tables.
const (
	DBDownloads = "downloads"
)

// Download history columns.
const (
	QDLJobID      = "job_id"
	QDLURL        = "url"
	QDLFormat     = "format"
	QDLFilename   = "filename"
	QDLStatus     = "status"
	QDLPct        = "progress"
	QDLError      = "error"
	QDLCreatedAt  = "created_at"
	QDLFinishedAt = "finished_at"
)
