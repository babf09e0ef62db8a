package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sheet-image-fetcher/internal/api"
	"sheet-image-fetcher/internal/api/handler"
	"sheet-image-fetcher/pkg/router"
	"sheet-image-fetcher/pkg/utils"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := log.Default()

	for _, dir := range []string{cfg.UploadDir, cfg.DownloadDir} {
		if err := utils.NewFolderManager(dir).EnsureRoot(); err != nil {
			return err
		}
	}

	opts := handler.Options{MaxUploadSize: cfg.MaxUploadSize, Logger: logger}
	history, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
		opts.Recorder = history
		logger.Printf("🗄️ Recording batches with %s", cfg.History.Driver)
	}

	h := handler.New(newIngest(cfg, logger), newFetcher(cfg, logger), opts)

	r := router.New(logger)
	api.RegisterRoutes(r, h)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := r.Server(cfg.Addr())
	errCh := make(chan error, 1)
	go func() {
		logger.Printf("🚀 Server started on http://%s", cfg.Addr())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Printf("🛑 Shutting down (in-flight batches are abandoned)")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
