package cfg

import (
	"context"
	"fmt"

	"fetcharr/internal/domain/consts"
	"fetcharr/internal/domain/keys"
	"fetcharr/internal/server"
	"fetcharr/internal/utils/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// initServeCmd returns the command running the web server.
func initServeCmd(ctx context.Context) (*cobra.Command, error) {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Serve the download API, the event stream and Prometheus metrics until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			s, err := loadSettings(viper.GetViper())
			if err != nil {
				return err
			}
			return runServer(ctx, s)
		},
	}

	serveCmd.Flags().String(keys.Listen, server.DefaultListen, "Address to listen on")
	if err := bindFlags(serveCmd.Flags()); err != nil {
		return nil, err
	}
	return serveCmd, nil
}

// runServer serves until ctx is done, then stops every running job.
func runServer(ctx context.Context, s *Settings) (err error) {
	a, err := newApp(ctx, s, true)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), consts.ShutdownTimeout)
		defer cancel()
		if closeErr := a.close(shutdownCtx); closeErr != nil {
			logging.E("Shutdown incomplete: %v", closeErr)
			if err == nil {
				err = closeErr
			}
		}
	}()

	cfg := server.Config{
		Downloads: a.controller,
		Events:    a.events,
		Prober:    a.ytdlp,
		Metrics:   a.metrics.Handler(),
	}
	if a.history != nil {
		cfg.History = a.history
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.ListenAndServe(ctx, s.Listen)
}
