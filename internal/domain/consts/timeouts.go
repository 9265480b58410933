package consts

import "time"

// Process supervision
const (
	DefaultMetadataTimeout = 60 * time.Second
	DefaultTerminateGrace  = 5 * time.Second
	ShutdownTimeout        = 15 * time.Second
)

// Database
const (
	DatabaseTimeout   = 5 * time.Second
	DefaultMaxRetries = 3
	RetryBackoff      = 100 * time.Millisecond
)

// Broadcasting
const (
	DefaultSubscriberBuffer = 64
	HistoryBuffer           = 100
	DefaultHistoryLimit     = 50
	KeepAliveInterval       = 15 * time.Second
)
