// Package server exposes the download controller over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"fetcharr/internal/domain/consts"
	"fetcharr/internal/events"
	"fetcharr/internal/models"
	"fetcharr/internal/utils/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultListen is the default listen address.
const DefaultListen = ":5000"

// Downloads is the set of controller operations served over HTTP.
type Downloads interface {
	Submit(ctx context.Context, rawURL, format string) (*models.SubmitResult, error)
	Metadata(ctx context.Context, rawURL string) (*models.Metadata, error)
	Status(id string) (models.StatusReport, error)
	Cancel(id string) error
	ListArtifacts() ([]models.Artifact, error)
	OpenArtifact(filename string) (*os.File, os.FileInfo, error)
	DeleteArtifact(filename string) error
}

// Subscriber hands out push-channel subscriptions.
type Subscriber interface {
	Subscribe() *events.Subscription
	Unsubscribe(sub *events.Subscription)
}

// History reads finished jobs.
type History interface {
	Latest(ctx context.Context, limit uint64) ([]models.HistoryRecord, error)
}

// VersionProber reports the download tool's version.
type VersionProber interface {
	Version(ctx context.Context) (string, error)
}

// Config holds the server's collaborators.
type Config struct {
	Downloads Downloads
	Events    Subscriber

	// Optional
	History History
	Prober  VersionProber
	Metrics http.Handler

	// ProbeURL is used by the self-test when the request names none.
	ProbeURL string
}

// Server serves the HTTP API.
type Server struct {
	dl       Downloads
	events   Subscriber
	history  History
	prober   VersionProber
	metrics  http.Handler
	probeURL string
}

// New returns a server for cfg.
func New(cfg Config) (*Server, error) {
	if cfg.Downloads == nil {
		return nil, errors.New("server needs a download controller")
	}
	if cfg.Events == nil {
		return nil, errors.New("server needs an event source")
	}
	if cfg.ProbeURL == "" {
		cfg.ProbeURL = consts.DefaultProbeURL
	}
	return &Server{
		dl:       cfg.Downloads,
		events:   cfg.Events,
		history:  cfg.History,
		prober:   cfg.Prober,
		metrics:  cfg.Metrics,
		probeURL: cfg.ProbeURL,
	}, nil
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Range"},
		ExposedHeaders: []string{"Content-Length", "Content-Range"},
	}))

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api/video", func(r chi.Router) {
		r.Post("/info", s.handleInfo)
		r.Post("/download", s.handleDownload)
		r.Get("/status/{id}", s.handleStatus)
		r.Post("/cancel/{id}", s.handleCancel)
		r.Get("/list", s.handleList)
		r.Get("/stream/{filename}", s.handleStream)
		r.Delete("/delete/{filename}", s.handleDelete)
		r.Get("/events", s.handleEvents)
		r.Post("/test", s.handleTest)
		r.Get("/history", s.handleHistory)
	})

	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultListen
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logging.S("fetcharr web server running on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), consts.ShutdownTimeout)
	defer cancel()

	logging.I("Shutting down web server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
