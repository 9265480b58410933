package downloads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"fetcharr/internal/domain/command"
	"fetcharr/internal/domain/consts"
	"fetcharr/internal/models"
	"fetcharr/internal/utils/logging"

	"github.com/araddon/dateparse"
)

const unknownField = "Unknown"

// MetadataFetcher looks up remote media information.
type MetadataFetcher interface {
	Fetch(ctx context.Context, url string) (*models.Metadata, error)
}

// ytdlpInfo is the subset of yt-dlp's info JSON fetcharr reads.
type ytdlpInfo struct {
	Title       string  `json:"title"`
	Duration    float64 `json:"duration"`
	Thumbnail   string  `json:"thumbnail"`
	Uploader    string  `json:"uploader"`
	ViewCount   int64   `json:"view_count"`
	Description string  `json:"description"`
	UploadDate  string  `json:"upload_date"`
}

// Fetch runs a metadata-only yt-dlp lookup for url.
func (y *Ytdlp) Fetch(ctx context.Context, url string) (*models.Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, y.opts.MetadataTimeout)
	defer cancel()

	args := make([]string, 0, len(y.opts.ExtraArgs)+3)
	args = append(args, y.opts.ExtraArgs...)
	args = append(args, command.DumpJSON, command.NoDownload, url)

	out, err := exec.CommandContext(ctx, y.opts.Binary, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			logging.D(1, "Metadata lookup for %q exited %d: %s", url, exitErr.ExitCode(), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	}

	meta, err := ParseMetadata(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	}
	return meta, nil
}

// ParseMetadata converts yt-dlp info JSON into Metadata.
func ParseMetadata(data []byte) (*models.Metadata, error) {
	var info ytdlpInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("invalid info JSON: %w", err)
	}

	meta := &models.Metadata{
		Title:       orUnknown(info.Title),
		Duration:    info.Duration,
		Thumbnail:   info.Thumbnail,
		Uploader:    orUnknown(info.Uploader),
		ViewCount:   info.ViewCount,
		Description: excerpt(info.Description, consts.DescriptionExcerptLen),
	}

	if info.UploadDate != "" {
		if t, err := dateparse.ParseAny(info.UploadDate); err == nil {
			meta.UploadDate = &t
		} else {
			logging.D(2, "Could not parse upload date %q: %v", info.UploadDate, err)
		}
	}
	return meta, nil
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknownField
	}
	return s
}

// excerpt cuts s to n runes and marks it as an excerpt.
func excerpt(s string, n int) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r) + "..."
}
