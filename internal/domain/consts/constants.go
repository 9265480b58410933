// Package consts holds various global, unchanging values.
package consts

// DownloadStatus holds constant download status strings.
type DownloadStatus string

const (
	DLStatusQueued      DownloadStatus = "queued"
	DLStatusDownloading DownloadStatus = "downloading"
	DLStatusCompleted   DownloadStatus = "completed"
	DLStatusFailed      DownloadStatus = "failed"
	DLStatusCancelled   DownloadStatus = "cancelled"
)

// IsTerminal reports whether no further transitions leave this status.
func (s DownloadStatus) IsTerminal() bool {
	return s == DLStatusCompleted || s == DLStatusFailed || s == DLStatusCancelled
}

// Format is the requested output kind.
type Format string

const (
	FormatAudio Format = "audio"
	FormatVideo Format = "video"
)

// Output extensions per format.
const (
	ExtAudio = "mp3"
	ExtVideo = "mp4"
)

// Ext returns the file extension (without dot) written for the format.
func (f Format) Ext() string {
	switch f {
	case FormatAudio:
		return ExtAudio
	case FormatVideo:
		return ExtVideo
	default:
		return ""
	}
}

// formatAliases maps accepted request values to formats.
//
// "mp3" and "mp4" are kept for older clients.
var formatAliases = map[string]Format{
	"audio": FormatAudio,
	"video": FormatVideo,
	"mp3":   FormatAudio,
	"mp4":   FormatVideo,
}

// ParseFormat returns the format for a request value.
func ParseFormat(s string) (Format, bool) {
	f, ok := formatAliases[s]
	return f, ok
}

// FallbackTitle is used when a sanitized title comes back empty.
const FallbackTitle = "untitled"

// DescriptionExcerptLen is the max description length kept in metadata.
const DescriptionExcerptLen = 200

// AllVidExtensions is a list of video file extensions.
var AllVidExtensions = [...]string{".3gp", ".avi", ".f4v", ".flv", ".m4v", ".mkv",
	".mov", ".mp4", ".mpeg", ".mpg", ".ogm", ".ogv",
	".ts", ".vob", ".webm", ".wmv"}

// AllAudioExtensions is a list of audio file extensions.
var AllAudioExtensions = [...]string{".aac", ".flac", ".m4a", ".mp3", ".ogg", ".opus", ".wav"}

// DefaultProbeURL is fetched by the tool self-test when the request names no URL.
const DefaultProbeURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

