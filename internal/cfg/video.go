package cfg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"fetcharr/internal/artifacts"
	"fetcharr/internal/domain/consts"
	"fetcharr/internal/domain/keys"
	"fetcharr/internal/events"
	"fetcharr/internal/models"
	"fetcharr/internal/utils/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// initGetCmd returns the command downloading a single URL in-process.
func initGetCmd(ctx context.Context) (*cobra.Command, error) {
	getCmd := &cobra.Command{
		Use:   "get <url>",
		Short: "Download one URL",
		Long:  "Download a single URL, printing progress until the job finishes. Exits nonzero unless the download completes.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(viper.GetViper())
			if err != nil {
				return err
			}
			return runGet(ctx, s, args[0], viper.GetString(keys.Format), cmd.OutOrStdout())
		},
	}

	getCmd.Flags().StringP(keys.Format, "f", string(consts.FormatVideo), "Output format (audio or video)")
	if err := bindFlags(getCmd.Flags()); err != nil {
		return nil, err
	}
	return getCmd, nil
}

// runGet submits one job and follows its events until it finishes.
func runGet(ctx context.Context, s *Settings, rawURL, format string, out io.Writer) (err error) {
	a, err := newApp(ctx, s, true)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), consts.ShutdownTimeout)
		defer cancel()
		if closeErr := a.close(shutdownCtx); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	// Subscribe first so no event for the job is missed
	sub := a.events.Subscribe()
	defer a.events.Unsubscribe(sub)

	res, err := a.controller.Submit(ctx, rawURL, format)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Downloading %q to %s\n", res.Metadata.Title, res.Filename)

	return followJob(ctx, sub, res.JobID, out)
}

// followJob prints progress for one job until its terminal event.
func followJob(ctx context.Context, sub *events.Subscription, jobID string, out io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-sub.C():
			if !ok {
				return errors.New("event stream closed before the download finished")
			}
			if ev.JobID != jobID {
				continue
			}

			switch ev.Type {
			case consts.EventProgress:
				fmt.Fprintf(out, "\r[download] %5.1f%%", ev.Progress*100)
			case consts.EventComplete:
				fmt.Fprintln(out, "\r[download] 100.0%")
				logging.S("Download %s completed", jobID)
				return nil
			case consts.EventError:
				fmt.Fprintln(out)
				return fmt.Errorf("download %s %s: %s", jobID, ev.Status, ev.Error)
			}
		}
	}
}

// initListCmd returns the command listing downloaded files.
func initListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List downloaded files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(viper.GetViper())
			if err != nil {
				return err
			}
			store, err := artifacts.NewStore(s.DownloadDir)
			if err != nil {
				return err
			}
			list, err := store.List()
			if err != nil {
				return err
			}
			return printArtifacts(cmd.OutOrStdout(), list)
		},
	}
}

// printArtifacts writes a table of files, newest first.
func printArtifacts(out io.Writer, list []models.Artifact) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(out, "No downloads found.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILENAME\tSIZE\tCREATED")
	for _, a := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Filename, humanSize(a.SizeBytes), a.CreatedAt.Format(time.DateTime))
	}
	return tw.Flush()
}

// humanSize formats a byte count with a binary unit.
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
