package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voiceforge/voiceforge/internal/platform/config"
	"github.com/voiceforge/voiceforge/internal/platform/logging"
	"github.com/voiceforge/voiceforge/internal/storage"
	httptransport "github.com/voiceforge/voiceforge/internal/transport/http"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "voiceforge failed: %v\n", err)
		os.Exit(1)
	}
}

func run(rootCtx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel})

	store, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	service := httptransport.NewService(store, logger, cfg.MaxUploadBytes())
	engine := httptransport.Build(httptransport.Options{
		Logger:         logger,
		Service:        service,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Debug:          cfg.LogLevel == "debug",
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return <-errCh
}
