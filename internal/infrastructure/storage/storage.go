package storage

import (
	"context"
	"fmt"

	"golang.org/x/exp/slog"

	"parlsync/internal/app/server/config"
	"parlsync/internal/domain/resource"
	"parlsync/internal/infrastructure/storage/memory"
	"parlsync/internal/infrastructure/storage/postgres"
)

type Storage interface {
	// Ресурсы
	Resources() resource.Repository

	Close() error
}

// New открывает хранилище, выбранное STORE_BACKEND
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (Storage, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		return postgres.New(ctx, cfg, log)
	case config.BackendMemory, "":
		return &memoryStorage{resources: memory.NewResourceRepository(log)}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

type memoryStorage struct {
	resources *memory.ResourceRepository
}

func (s *memoryStorage) Resources() resource.Repository {
	return s.resources
}

func (s *memoryStorage) Close() error {
	return nil
}
