package app

import (
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vk/queryplango/internal/config"
	"github.com/vk/queryplango/internal/executor"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	logger *slog.Logger
	cfg    *config.Config

	// mu guards the fields below, which exist only while a run is active.
	mu         sync.Mutex
	exec       *executor.Executor
	httpServer *http.Server
}

// New is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger writing to outW.
func New(outW io.Writer, cfg *config.Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	return &App{
		logger: logger,
		cfg:    cfg,
	}
}

// newLogger creates and configures a new slog.Logger instance. It does not
// set the global logger, allowing for isolated logger instances.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "text" {
		handler = slog.NewTextHandler(outW, opts)
	} else {
		handler = slog.NewJSONHandler(outW, opts)
	}

	return slog.New(handler)
}

func (a *App) setExecutor(exec *executor.Executor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.exec = exec
}

func (a *App) currentExecutor() *executor.Executor {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.exec
}
