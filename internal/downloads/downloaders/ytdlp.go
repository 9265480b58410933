package downloaders

import (
	"strconv"
	"strings"

	"fetcharr/internal/domain/regex"
	"fetcharr/internal/utils/logging"
)

const (
	ytdlpDownloadTag = "[download]"
)

// looseKeywords are matched case-insensitively when a line lacks the download tag.
var looseKeywords = [...]string{"downloading", "progress"}

// YtdlpProgress parses a percentage in [0,100] from a line of yt-dlp output.
//
// Lines tagged "[download]" are tried first. Otherwise a line holding a
// '%' and one of the loose keywords is accepted, which tolerates output
// drift between yt-dlp versions. ok is false for anything else.
func YtdlpProgress(line string) (pct float64, ok bool) {
	switch {
	case strings.Contains(line, ytdlpDownloadTag):
		return percentToken(line)

	case strings.Contains(line, "%"):
		lower := strings.ToLower(line)
		for _, kw := range looseKeywords {
			if strings.Contains(lower, kw) {
				logging.D(3, "Using loose progress match for line %q", line)
				return percentToken(line)
			}
		}
	}
	return 0, false
}

// percentToken extracts and clamps the first percentage token in the line.
func percentToken(line string) (float64, bool) {
	matches := regex.PercentCompile().FindStringSubmatch(line)
	if len(matches) != 2 {
		return 0, false
	}
	pct, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		logging.D(1, "Failed to parse percentage from line: %q", line)
		return 0, false
	}
	return min(max(pct, 0), 100), true
}
