package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"fetcharr/internal/utils/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// loadConfigFile merges a viper-supported config file into the settings.
func loadConfigFile(file string) error {
	info, err := os.Stat(file)
	if err != nil {
		return fmt.Errorf("failed check for config file path: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("config file %q is a directory, should be a file", file)
	}

	viper.SetConfigFile(file)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %q: %w", file, err)
	}
	logging.D(1, "Loaded config file %q", file)
	return nil
}

// loadEnvFile loads KEY=value pairs into the environment. Variables already set win.
func loadEnvFile(file string) error {
	if err := godotenv.Load(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %q: %w", file, err)
	}
	return nil
}
