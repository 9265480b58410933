package cfg

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"fetcharr/internal/domain/keys"

	"github.com/spf13/viper"
)

// Settings is the resolved program configuration.
type Settings struct {
	DownloadDir string
	DBPath      string
	Listen      string

	YtdlpPath       string
	YtdlpExtraArgs  []string
	MetadataTimeout time.Duration
	TerminateGrace  time.Duration

	SubscriberBuffer int
}

// loadSettings resolves settings from v and validates them.
func loadSettings(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		DownloadDir:      strings.TrimSpace(v.GetString(keys.DownloadDir)),
		DBPath:           strings.TrimSpace(v.GetString(keys.DBPath)),
		Listen:           strings.TrimSpace(v.GetString(keys.Listen)),
		YtdlpPath:        strings.TrimSpace(v.GetString(keys.YtdlpPath)),
		YtdlpExtraArgs:   v.GetStringSlice(keys.YtdlpExtraArgs),
		MetadataTimeout:  v.GetDuration(keys.MetadataTimeout),
		TerminateGrace:   v.GetDuration(keys.TerminateGrace),
		SubscriberBuffer: v.GetInt(keys.SubscriberBuffer),
	}
	if err := validateSettings(s); err != nil {
		return nil, err
	}
	if err := validateDebugLevel(v.GetInt(keys.DebugLevel)); err != nil {
		return nil, err
	}
	return s, nil
}

// validateSettings checks settings that would fail later in less obvious ways.
func validateSettings(s *Settings) error {
	if s == nil {
		return errors.New("settings are nil")
	}

	var errs []error
	if s.DownloadDir == "" {
		errs = append(errs, fmt.Errorf("%s must be set", keys.DownloadDir))
	}
	if s.YtdlpPath == "" {
		errs = append(errs, fmt.Errorf("%s must be set", keys.YtdlpPath))
	}
	if s.MetadataTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", keys.MetadataTimeout, s.MetadataTimeout))
	}
	if s.TerminateGrace <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", keys.TerminateGrace, s.TerminateGrace))
	}
	if s.SubscriberBuffer < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", keys.SubscriberBuffer, s.SubscriberBuffer))
	}
	return errors.Join(errs...)
}

// validateDebugLevel checks the debug level range.
func validateDebugLevel(l int) error {
	if l < 0 || l > 5 {
		return fmt.Errorf("%s must be between 0 and 5, got %d", keys.DebugLevel, l)
	}
	return nil
}
