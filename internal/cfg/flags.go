package cfg

import (
	"fmt"

	"fetcharr/internal/domain/consts"
	"fetcharr/internal/domain/keys"
	"fetcharr/internal/domain/paths"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envFile is loaded into the environment before flags are resolved.
const envFile = ".env"

// initProgramFlags initializes the flags shared by every command.
func initProgramFlags(cmd *cobra.Command) error {
	pf := cmd.PersistentFlags()

	// Program
	pf.String(keys.ConfigFile, "", "Config file (toml, yaml or json)")
	pf.Int(keys.DebugLevel, 0, "Debug level (0-5)")
	pf.Bool(keys.LogJSON, false, "Log JSON lines instead of console output")

	// Storage
	pf.String(keys.DownloadDir, paths.DefaultDownloadDir, "Directory downloads are written to")
	pf.String(keys.DBPath, paths.DBFilePath, "Download history database")

	// External tool
	pf.String(keys.YtdlpPath, "yt-dlp", "yt-dlp executable")
	pf.StringSlice(keys.YtdlpExtraArgs, nil, "Arguments placed before every yt-dlp invocation")
	pf.Duration(keys.MetadataTimeout, consts.DefaultMetadataTimeout, "Max time to wait for video info")
	pf.Duration(keys.TerminateGrace, consts.DefaultTerminateGrace, "Time a cancelled download gets to exit before it is killed")

	// Events
	pf.Int(keys.SubscriberBuffer, consts.DefaultSubscriberBuffer, "Events buffered per push-channel subscriber")

	return bindFlags(pf)
}

// bindFlags binds every flag in fs to the viper key of the same name.
func bindFlags(fs *pflag.FlagSet) (err error) {
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		if bindErr := viper.BindPFlag(f.Name, f); bindErr != nil {
			err = fmt.Errorf("failed to bind flag %q: %w", f.Name, bindErr)
		}
	})
	return err
}
