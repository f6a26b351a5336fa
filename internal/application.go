package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/kittycard-backend/internal/config"
	"github.com/rocketscienceinc/kittycard-backend/internal/repository"
	"github.com/rocketscienceinc/kittycard-backend/internal/repository/storage"
	"github.com/rocketscienceinc/kittycard-backend/internal/usecase"
	"github.com/rocketscienceinc/kittycard-backend/transport/rest"
	"github.com/rocketscienceinc/kittycard-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisClient, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisClient.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	sessionRepo := repository.NewSessionRepository()
	resultRepo := repository.NewResultRepository(redisClient)
	sessionManager := usecase.NewSessionManager(logger, sessionRepo, resultRepo)

	go sessionManager.RunReaper(ctx, conf.Session.ReapInterval, usecase.ReapPolicy{
		WaitingTimeout:    conf.Session.WaitingTimeout,
		AbandonedGrace:    conf.Session.AbandonedGrace,
		FinishedRetention: conf.Session.FinishedRetention,
	})

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		restServer := rest.New(logger, sessionManager)
		if httpErr := restServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, sessionManager)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
