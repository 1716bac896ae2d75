package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartpos/internal/config"
	"smartpos/internal/domain"
	"smartpos/internal/gateway"
	"smartpos/internal/logging"

	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.MustNew("gateway")
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	target, err := url.Parse(cfg.BackendURL)
	if err != nil {
		logger.Fatal("parse backend url", zap.Error(err))
	}

	clients := map[domain.Space]gateway.IdentityClient{
		domain.SpaceUser:     gateway.NewHTTPIdentityClient(cfg.UserServiceURL, "/user", 5*time.Second),
		domain.SpaceCustomer: gateway.NewHTTPIdentityClient(cfg.CustomerServiceURL, "/customer", 5*time.Second),
	}

	pipeline := gateway.New(target, clients, gateway.DefaultRoutes(), logger)

	server := &http.Server{
		Addr:              cfg.GatewayAddr,
		Handler:           pipeline.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("gateway listening",
			zap.String("addr", cfg.GatewayAddr),
			zap.String("backend", cfg.BackendURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
