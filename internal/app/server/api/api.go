// GET    /api/v1/health               # Проверка хранилища (публичный)
// GET    /{collection}                # Поиск: where, sort, max_results, page (auth)
// POST   /{collection}                # Создать документ или список документов (auth)
// GET    /{collection}/{id}           # Получить документ (auth)
// PATCH  /{collection}/{id}           # Частично обновить документ (auth)
// PUT    /{collection}/{id}           # Заменить документ (auth)
// DELETE /{collection}/{id}           # Удалить документ (auth)

package api

import (
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	"parlsync/internal/app/server/api/http/envelope"
	healthAPI "parlsync/internal/app/server/api/http/health"
	"parlsync/internal/app/server/api/http/middleware"
	"parlsync/internal/app/server/api/http/middleware/auth"
	"parlsync/internal/app/server/api/http/middleware/logger"
	resourceAPI "parlsync/internal/app/server/api/http/resource"
	"parlsync/internal/app/server/config"
	"parlsync/internal/domain/resource"
)

type Handlers struct {
	Health   *healthAPI.Handler
	Resource *resourceAPI.Handler
}

// New создает *chi.Mux с ВСЕМИ операциями через huma.Register
func New(cfg *config.Config, service resource.Servicer, log *slog.Logger) (*chi.Mux, error) {
	// ошибки huma (разбор параметров) отдаются в том же конверте, что и ошибки хранилища
	huma.NewError = envelope.NewError

	mux := chi.NewMux()

	humaConfig := huma.DefaultConfig("Parlstore API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basic": {Type: "http", Scheme: "basic"},
	}

	API := humachi.New(mux, humaConfig)

	h, err := handlers(cfg, service, log)
	if err != nil {
		return nil, err
	}
	h.Health.SetupRoutes(API)
	h.Resource.SetupRoutes(API)

	return mux, nil
}

func handlers(cfg *config.Config, service resource.Servicer, log *slog.Logger) (*Handlers, error) {
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(service, cfg.Store.Backend, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	if cfg.Auth.User != "" {
		authMW, err := auth.New(cfg.Auth.User, cfg.Auth.Password, log)
		if err != nil {
			return nil, fmt.Errorf("auth middleware: %w", err)
		}
		middlewares.Add(authMW.Middleware())
	} else {
		log.Warn("STORE_USER is empty, collections are served without authentication")
	}
	resourceHandler := resourceAPI.NewHandler(service, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:   healthHandler,
		Resource: resourceHandler,
	}, nil
}
