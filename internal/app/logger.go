package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production deployments log JSON;
// development keeps the readable text handler. Debug level outside
// production makes SQL-adjacent warnings visible while iterating.
func NewLogger(cfg *Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && !cfg.IsProduction() {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
