package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rocketscienceinc/kittycard-backend/internal/entity"
	"github.com/rocketscienceinc/kittycard-backend/internal/usecase"
)

type sessionUseCase interface {
	CreateSession(ctx context.Context, playerName string) (*usecase.SessionTicket, error)
	JoinSession(ctx context.Context, sessionID, playerName string) (*usecase.SessionTicket, error)
	GetResult(ctx context.Context, sessionID string) (*entity.MatchResult, error)
}

// Server handles the request/response side of the protocol: session
// creation and join, late result queries and the health probe.
type Server struct {
	logger   *slog.Logger
	sessions sessionUseCase
}

func New(logger *slog.Logger, sessions sessionUseCase) *Server {
	return &Server{
		logger:   logger,
		sessions: sessions,
	}
}

// Start - starts the HTTP server and shuts it down when ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", that.handlePing)
	mux.HandleFunc("POST /createGame", that.handleCreateGame)
	mux.HandleFunc("POST /joinGame", that.handleJoinGame)
	mux.HandleFunc("GET /result", that.handleResult)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down HTTP server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
