package logger

import (
	"io"
	"log/slog"
	"os"
)

// New JSON в stdout; в dev читаемый текст и debug-уровень.
func New(env string) *slog.Logger {
	return NewWithWriter(env, os.Stdout)
}

func NewWithWriter(env string, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	var h slog.Handler
	if env == "dev" {
		level = slog.LevelDebug
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(h).With("service", "mod-bot", "env", env)
}
