// Package command holds yt-dlp command line tokens.
package command

// General
const (
	YTDLP     = "yt-dlp"
	Newline   = "--newline"
	Output    = "-o"
	FormatSel = "-f"
	Version   = "--version"
)

// Metadata only
const (
	DumpJSON   = "--dump-json"
	NoDownload = "--no-download"
)

// Audio extraction
const (
	BestAudio    = "bestaudio"
	ExtractAudio = "--extract-audio"
	AudioFormat  = "--audio-format"
)

// Video
const (
	BestMP4 = "best[ext=mp4]"
)
