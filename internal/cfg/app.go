package cfg

import (
	"context"
	"errors"
	"fmt"

	"fetcharr/internal/artifacts"
	"fetcharr/internal/database"
	"fetcharr/internal/database/repo"
	"fetcharr/internal/downloads"
	"fetcharr/internal/events"
	"fetcharr/internal/metrics"
	"fetcharr/internal/utils/logging"
)

// app holds the wired components of a running fetcharr.
type app struct {
	settings   *Settings
	controller *downloads.Controller
	events     *events.Broadcaster
	ytdlp      *downloads.Ytdlp
	metrics    *metrics.Metrics

	// Nil when history is disabled
	db      *database.DBControl
	history *repo.DownloadStore
	tracker *downloads.DownloadTracker
}

// newApp wires the controller and its collaborators from settings.
func newApp(ctx context.Context, s *Settings, withHistory bool) (_ *app, err error) {
	store, err := artifacts.NewStore(s.DownloadDir)
	if err != nil {
		return nil, err
	}

	a := &app{
		settings: s,
		events:   events.NewBroadcaster(s.SubscriberBuffer),
		metrics:  metrics.New(),
		ytdlp: downloads.NewYtdlp(downloads.Options{
			Binary:          s.YtdlpPath,
			ExtraArgs:       s.YtdlpExtraArgs,
			MetadataTimeout: s.MetadataTimeout,
			TerminateGrace:  s.TerminateGrace,
		}),
	}
	a.events.OnDrop(a.metrics.EventDropped)
	a.metrics.WatchSubscribers(a.events.Subscribers)

	defer func() {
		if err != nil {
			a.closeStorage()
		}
	}()

	dcfg := downloads.Config{
		Registry: downloads.NewRegistry(),
		Runner:   a.ytdlp,
		Metadata: a.ytdlp,
		Events:   a.events,
		Store:    store,
		Metrics:  a.metrics,
	}

	if withHistory && s.DBPath != "" {
		if a.db, err = database.InitDB(s.DBPath); err != nil {
			return nil, err
		}
		a.history = repo.InitStores(a.db.DB).DownloadStore()
		a.tracker = downloads.NewDownloadTracker(a.history)
		a.tracker.Start(ctx)
		dcfg.History = a.tracker
	}

	if a.controller, err = downloads.NewController(ctx, dcfg); err != nil {
		return nil, err
	}

	logging.D(1, "Downloads in %q, history in %q", store.Dir(), s.DBPath)
	return a, nil
}

// close stops running jobs and releases storage.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if err := a.controller.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	a.events.Close()
	if err := a.closeStorage(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// closeStorage flushes history and closes the database.
func (a *app) closeStorage() error {
	if a.tracker != nil {
		a.tracker.Stop()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
