package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tutortoise/fracture-detection-service/config"
	"github.com/Tutortoise/fracture-detection-service/detections"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		newLogger(false).Fatalf("Invalid configuration: %v", err)
	}
	logger := newLogger(cfg.Debug)

	engine, err := detections.NewEngine(cfg.ConfidenceThreshold, cfg.InferenceTimeout)
	if err != nil {
		logger.Fatalf("Failed to create detection engine: %v", err)
	}

	provider := detections.NewProvider(cfg.ModelPath, func() (detections.Model, error) {
		model, err := detections.OpenYOLO(detections.YOLOConfig{
			ModelPath:      cfg.ModelPath,
			LabelsPath:     cfg.LabelsPath,
			RuntimeLibrary: cfg.RuntimeLibrary,
			InputSize:      cfg.InputSize,
			IoUThreshold:   cfg.IoUThreshold,
			PoolSize:       cfg.PoolSize,
			Logger:         logger,
		})
		if err != nil {
			return nil, err
		}
		return model, nil
	})

	// a missing or broken model stops startup
	if _, err := provider.Get(); err != nil {
		logger.WithError(err).Fatal("Failed to load detection model")
	}
	defer provider.Close()

	state := &AppState{
		Config:   cfg,
		Provider: provider,
		Engine:   engine,
		Logger:   logger,
	}

	srv := &http.Server{
		Handler:      state.routes(),
		Addr:         cfg.Addr,
		WriteTimeout: cfg.InferenceTimeout + 30*time.Second,
		ReadTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		logger.Errorf("Failed to listen on %s: %v", srv.Addr, err)
		return
	}

	logger.Infof("Starting server on %s", srv.Addr)
	if err := serve(ctx, srv, ln, shutdownTimeout); err != nil {
		logger.Errorf("Server failed: %v", err)
		return
	}
	logger.Info("Server stopped")
}

// serve runs srv on ln until ctx is done, then shuts it down. It returns
// only after in-flight requests have finished or grace has elapsed.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, grace time.Duration) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
