package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rocketscienceinc/tictactoe-agent/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

type trainer interface {
	Start(ctx context.Context) bool
	Stop()
	Progress() usecase.Progress
}

type Server struct {
	logger  *slog.Logger
	trainer trainer
}

func New(logger *slog.Logger, trainer trainer) *Server {
	return &Server{
		logger:  logger.With("component", "rest"),
		trainer: trainer,
	}
}

// Handler builds the routes. Training started over HTTP lives as long as ctx, not the request.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", that.pingHandler)
	mux.HandleFunc("GET /training", that.progressHandler)
	mux.HandleFunc("POST /training/start", func(w http.ResponseWriter, r *http.Request) {
		that.startHandler(ctx, w, r)
	})
	mux.HandleFunc("POST /training/stop", that.stopHandler)

	return mux
}

// Start serves until ctx is cancelled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Handler(ctx),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
