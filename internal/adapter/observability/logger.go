package observability

import (
	"io"
	"log/slog"
	"os"

	"github.com/fairyhunter13/ai-mock-interview/internal/config"
)

// SetupLogger configures a JSON slog logger with environment fields.
func SetupLogger(cfg config.Config) *slog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{}
	// In dev, show debug level; in prod, default to info
	if cfg.IsDev() {
		opts.Level = slog.LevelDebug
	}
	if cfg.IsTest() {
		opts.Level = slog.LevelWarn
	}
	return slog.New(slog.NewJSONHandler(w, opts)).With(
		slog.String("service", cfg.OTELServiceName),
		slog.String("env", cfg.AppEnv),
	)
}
