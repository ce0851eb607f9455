package logger

import (
	"os"

	"golang.org/x/exp/slog"
)

const (
	envLocal = "local"
	envDev   = "dev"
)

// New создает логгер для окружения: local - цветной текст, dev - JSON с debug,
// prod - JSON с info. Неизвестное окружение считается prod.
func New(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal, "":
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

// WithLevel переопределяет уровень логгера, если он задан явно (LOG_LEVEL)
func WithLevel(env, level string) *slog.Logger {
	var lvl slog.Level
	if level == "" || lvl.UnmarshalText([]byte(level)) != nil {
		return New(env)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if env == envLocal || env == "" {
		return slog.New(PrettyHandlerOptions{SlogOpts: opts}.NewPrettyHandler(os.Stdout))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func setupPrettySlog() *slog.Logger {
	opts := PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
