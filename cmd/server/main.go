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

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"parlsync/internal/app/server/api"
	"parlsync/internal/app/server/config"
	"parlsync/internal/domain/resource"
	"parlsync/internal/infrastructure/migration"
	"parlsync/internal/infrastructure/storage"
	"parlsync/internal/utils/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var addr string

	root := &cobra.Command{
		Use:          "parlstore",
		Short:        "Хранилище ресурсов с протоколом конвертов (_status, _items, _meta, _links)",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.RunAddress = addr
			}
			log := logger.WithLevel(cfg.Env, cfg.Logger.LogLevel)
			return serve(cmd.Context(), cfg, log)
		},
	}
	root.Flags().StringVarP(&addr, "addr", "a", "", "адрес сервера (переопределяет RUN_ADDRESS)")

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Накатить миграции схемы postgres и выйти",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DB.DatabaseURI == "" {
				return errors.New("DATABASE_URI is required for migrate")
			}
			mg := migration.NewMigration(cfg, migration.DefaultEngine)
			if err := mg.Up(); err != nil {
				return fmt.Errorf("migration error: %w", err)
			}
			version, err := mg.Version()
			if err != nil {
				return err
			}
			fmt.Printf("✅ Схема актуальна, версия %d\n", version)
			return nil
		},
	})

	return root
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("close storage", "error", err)
		}
	}()

	service := resource.NewService(store.Resources(), log, resource.WithPaging(cfg.Store.PageSize, cfg.Store.PageLimit))
	mux, err := api.New(cfg, service, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.RunAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("parlstore started", "addr", cfg.Server.RunAddress, "backend", cfg.Store.Backend, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
