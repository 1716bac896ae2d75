package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"smartpos/internal/config"
	"smartpos/internal/db"
	"smartpos/internal/domain"
	"smartpos/internal/events"
	"smartpos/internal/httpserver"
	"smartpos/internal/logging"
	billrepo "smartpos/internal/repository/bill"
	cartrepo "smartpos/internal/repository/cartline"
	principalrepo "smartpos/internal/repository/principal"
	productrepo "smartpos/internal/repository/product"
	sessionrepo "smartpos/internal/repository/session"
	cartsvc "smartpos/internal/service/cart"
	"smartpos/internal/service/identity"
	"smartpos/internal/service/ledger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.MustNew("api")
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()

	publisher := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	principals := principalrepo.NewPostgres(pool)
	sessions := sessionrepo.NewPostgres(pool)
	products := productrepo.NewPostgres(pool)
	cartLines := cartrepo.NewPostgres(pool)
	bills := billrepo.NewPostgres(pool)

	identityOpts := identity.Options{
		AccessTTL:         cfg.AccessTTL,
		RefreshTTL:        cfg.RefreshTTL,
		InactivityWindow:  cfg.InactivityWindow,
		StatelessValidate: cfg.StatelessValidate,
	}
	userIdentity := identity.New(domain.SpaceUser, principals, sessions, cfg.JWTSecret, publisher, logger, identityOpts)
	customerIdentity := identity.New(domain.SpaceCustomer, principals, sessions, cfg.JWTSecret, publisher, logger, identityOpts)

	var backup ledger.BackupClient
	if cfg.BackupServiceURL != "" {
		backup = ledger.NewHTTPBackupClient(cfg.BackupServiceURL, 0)
	}
	billLedger := ledger.New(bills, backup, publisher, logger)
	cart := cartsvc.New(cartLines, products, billLedger, logger)

	server := httpserver.New(cfg.HTTPAddr, logger, pool, httpserver.Deps{
		UserIdentity:     userIdentity,
		CustomerIdentity: customerIdentity,
		Cart:             cart,
		Ledger:           billLedger,
		Catalog:          products,
	})

	go func() {
		logger.Info("api listening", zap.String("addr", cfg.HTTPAddr))
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
