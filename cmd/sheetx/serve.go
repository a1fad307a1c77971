package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/sheet-extractor/internal/auth"
	"github.com/joseph-ayodele/sheet-extractor/internal/export"
	"github.com/joseph-ayodele/sheet-extractor/internal/ingest"
	"github.com/joseph-ayodele/sheet-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/sheet-extractor/internal/pipeline"
	"github.com/joseph-ayodele/sheet-extractor/internal/repository"
	"github.com/joseph-ayodele/sheet-extractor/internal/server"
	"github.com/joseph-ayodele/sheet-extractor/internal/session"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	images := ingest.NewIngestor(cfg.Storage.ImagesDir, logger)
	if err := images.EnsureDir(); err != nil {
		return err
	}
	exporter := export.NewService(cfg.Storage.SheetsDir, logger)
	if err := exporter.EnsureDir(); err != nil {
		return err
	}

	ledger, closeLedger, err := repository.OpenLedger(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to open ledger", "driver", cfg.Storage.LedgerDriver, "error", err)
		return err
	}
	defer closeLedger()

	var (
		materials *repository.MaterialRegistry
		source    pipeline.MaterialSource
	)
	if cfg.Features.Materials {
		materials = repository.NewMaterialRegistry(cfg.Storage.MaterialsPath, logger)
		if _, err := materials.Load(); err != nil {
			return err
		}
		source = materials
	}

	client := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	processor := pipeline.NewProcessor(logger, client, exporter, ledger, images, source)

	srv, err := server.New(server.Deps{
		Config:    cfg,
		Gate:      auth.NewGate(cfg.Auth.Username, cfg.Auth.Password, logger),
		Sessions:  session.NewManager(cfg.Session.Secret, cfg.Session.CookieName, cfg.Session.Secure, logger),
		Images:    images,
		Exporter:  exporter,
		Ledger:    ledger,
		Materials: materials,
		Processor: processor,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("sheetx listening",
			"addr", cfg.Server.Addr,
			"ledger", cfg.Storage.LedgerDriver,
			"materials", cfg.Features.Materials,
			"persist_image", cfg.Features.PersistImage,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", "error", err)
			return err
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}
