package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"parlsync/internal/app/server/config"
	"parlsync/internal/domain/resource"
	"parlsync/internal/infrastructure/migration"
)

type Storage struct {
	pool      *pgxpool.Pool
	resources *ResourceRepository
}

// New открывает пул соединений и накатывает миграции схемы
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Storage, error) {
	pool, err := pgxpool.New(ctx, cfg.DB.DatabaseURI)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	mg := migration.NewMigration(cfg, migration.DefaultEngine)
	if err := mg.Up(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return &Storage{
		pool:      pool,
		resources: NewResourceRepository(pool, log),
	}, nil
}

func (s *Storage) Resources() resource.Repository {
	return s.resources
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

