// Package cfg provides configuration and command-line interface setup for fetcharr.
package cfg

import (
	"context"
	"fmt"
	"os"
	"strings"

	"fetcharr/internal/domain/keys"
	"fetcharr/internal/utils/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:           "fetcharr",
	Short:         "fetcharr downloads media with yt-dlp and tracks the jobs.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadEnvFile(envFile); err != nil {
			return err
		}
		if configFile := viper.GetString(keys.ConfigFile); configFile != "" {
			if err := loadConfigFile(configFile); err != nil {
				return fmt.Errorf("failed loading config file: %w", err)
			}
		}

		logging.Setup(os.Stderr, viper.GetInt(keys.DebugLevel), viper.GetBool(keys.LogJSON))
		return nil
	},
}

// InitCommands initializes all commands and their flags.
func InitCommands(ctx context.Context) error {
	viper.SetEnvPrefix(keys.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_")) // "download-dir" reads FETCHARR_DOWNLOAD_DIR
	viper.AutomaticEnv()

	if err := initProgramFlags(rootCmd); err != nil {
		return err
	}

	serveCmd, err := initServeCmd(ctx)
	if err != nil {
		return err
	}
	getCmd, err := initGetCmd(ctx)
	if err != nil {
		return err
	}

	rootCmd.AddCommand(serveCmd, getCmd, initListCmd())
	return nil
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
