// Package keys holds the viper keys used across fetcharr.
package keys

// Storage
const (
	DownloadDir string = "download-dir"
	DBPath      string = "db-path"
)

// External tool
const (
	YtdlpPath       string = "ytdlp-path"
	YtdlpExtraArgs  string = "ytdlp-extra-args"
	MetadataTimeout string = "metadata-timeout"
	TerminateGrace  string = "terminate-grace"
)

// Server
const (
	Listen           string = "listen"
	SubscriberBuffer string = "subscriber-buffer"
)

// Program
const (
	ConfigFile string = "config-file"
	DebugLevel string = "debug-level"
	LogJSON    string = "log-json"
	Format     string = "format"
	EnvPrefix  string = "FETCHARR"
)
