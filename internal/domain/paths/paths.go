// Package paths initializes fetcharr's default filepaths and directories.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fetcharr/internal/domain/consts"
)

const (
	fDir         = ".fetcharr"
	fDBFile      = "fetcharr.db"
	downloadsDir = "Downloads"
	mediaDir     = "fetcharr"
)

// File and directory path strings.
var (
	HomeFetcharrDir    string
	DBFilePath         string
	DefaultDownloadDir string
)

// InitProgFilesDirs initializes necessary program directories and filepaths.
func InitProgFilesDirs() error {
	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		return errors.New("failed to get home directory")
	}

	// Home fetcharr dir ~/.fetcharr
	HomeFetcharrDir = filepath.Join(userHomeDir, fDir)
	if err := os.MkdirAll(HomeFetcharrDir, consts.PermsHomeProgDir); err != nil {
		return fmt.Errorf("failed to make directories: %w", err)
	}

	DBFilePath = filepath.Join(HomeFetcharrDir, fDBFile)
	DefaultDownloadDir = filepath.Join(userHomeDir, downloadsDir, mediaDir)
	return nil
}
