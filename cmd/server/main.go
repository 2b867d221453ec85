package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Tushar2380/docuAi/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := bootstrap.New(ctx)
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("bootstrap failed", zap.Error(err))
	}
	defer application.Close()

	logger := application.Logger
	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Server.Start()
	}()
	logger.Info("server listening", zap.String("addr", application.Config.HTTPAddr()))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.Server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}
