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

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Brownie44l1/screen-detect/internal/config"
	"github.com/Brownie44l1/screen-detect/internal/handlers"
	"github.com/Brownie44l1/screen-detect/internal/inference"
	"github.com/Brownie44l1/screen-detect/internal/logging"
	"github.com/Brownie44l1/screen-detect/internal/model"
)

var (
	configPath string
	verbose    bool
	eager      bool
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve real-photo vs screen-photo predictions over HTTP",
	Long: `Serves the screen detector.

Endpoints:
  GET  /health          - model availability (no inference)
  POST /predict         - multipart upload, field "file"
  POST /predict/tensor  - preprocessed input as JSON {"input": [...]}

The model is loaded on the first request unless --eager is set.`,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.Flags().BoolVar(&eager, "eager", false, "load the model before accepting requests")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	// A missing .env is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging, verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	meta := cfg.Model.Metadata
	if cfg.Model.MetadataPath != "" {
		if meta, err = model.LoadMetadata(cfg.Model.MetadataPath, meta); err != nil {
			return err
		}
	}

	registry := model.NewRegistry(cfg.Model.Path,
		model.NewONNXLoader(meta, cfg.Model.SharedLibraryPath), logger.Named("registry"))
	defer registry.Close()

	if eager {
		if _, err := registry.Acquire(); err != nil {
			return fmt.Errorf("failed to load model: %w", err)
		}
	}

	handler := handlers.NewHandler(
		inference.NewService(registry, meta, logger.Named("inference")).WithMaxPixels(cfg.Server.MaxImagePixels),
		inference.NewHealthCheck(registry),
		logger.Named("http"),
		cfg.Server.MaxUploadBytes)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handlers.NewRouter(handler),
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("model", cfg.Model.Path),
			zap.Int("image_size", meta.ImageSize),
			zap.String("layout", meta.Layout))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
