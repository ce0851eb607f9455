package health

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"parlsync/internal/app/server/api/http/envelope"
)

// Pinger - хранилище, доступность которого проверяет health check
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	store      Pinger
	backend    string
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(store Pinger, backend string, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		store:      store,
		backend:    backend,
		log:        log.With("component", "health_handler"),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

func (h *Handler) healthCheck(ctx context.Context, _ *Input) (*Output, error) {
	h.log.Debug("health check request received")

	if err := h.store.Ping(ctx); err != nil {
		h.log.Error("storage is unavailable", "backend", h.backend, "error", err)
		return nil, envelope.New(http.StatusServiceUnavailable, "storage is unavailable")
	}

	return &Output{
		Body: Response{
			Status:  "OK",
			Backend: h.backend,
			Time:    time.Now().UTC().Format(http.TimeFormat),
		},
	}, nil
}
