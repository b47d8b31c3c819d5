package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"github.com/sevalabs/gramseva-backend/api/routes"
	"github.com/sevalabs/gramseva-backend/internal/auth"
	"github.com/sevalabs/gramseva-backend/internal/commission"
	"github.com/sevalabs/gramseva-backend/internal/locations"
	"github.com/sevalabs/gramseva-backend/internal/notifications"
	"github.com/sevalabs/gramseva-backend/internal/policies"
	"github.com/sevalabs/gramseva-backend/internal/requests"
	"github.com/sevalabs/gramseva-backend/internal/users"
	"github.com/sevalabs/gramseva-backend/internal/wallet"
	"github.com/sevalabs/gramseva-backend/pkg/config"
	"github.com/sevalabs/gramseva-backend/pkg/db"
	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/logger"
	"github.com/sevalabs/gramseva-backend/pkg/metrics"
	"github.com/sevalabs/gramseva-backend/pkg/migrate"
	"github.com/sevalabs/gramseva-backend/pkg/outbox"
	"github.com/sevalabs/gramseva-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

// walletBridge adapts the wallet service to the commission ledger's creditor
// interface.
type walletBridge struct {
	wallet wallet.Service
}

func (b walletBridge) CreditTx(ctx context.Context, tx *gorm.DB, input commission.WalletCredit) (*models.WalletTransaction, error) {
	return b.wallet.CreditTx(ctx, tx, wallet.MovementInput{
		UserID:      input.UserID,
		Amount:      input.Amount,
		ServiceType: input.ServiceType,
		Description: input.Description,
	})
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	lifecycleMetrics := metrics.NewLifecycleMetrics(registry)

	userRepo := users.NewRepository(dbClient.DB())
	requestRepo := requests.NewRepository(dbClient.DB())
	commissionRepo := commission.NewRepository(dbClient.DB())
	policyRepo := policies.NewRepository(dbClient.DB())
	walletRepo := wallet.NewRepository(dbClient.DB())
	notificationRepo := notifications.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:  userRepo,
		JWTConfig: cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	if err := registerService.EnsureBootstrapAdmin(context.Background(), cfg.Bootstrap); err != nil {
		logg.Error(context.Background(), "failed to seed bootstrap admin", err)
		os.Exit(1)
	}

	locationService, err := locations.NewService(locations.ServiceParams{
		UserRepo: userRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create location resolver", err)
		os.Exit(1)
	}

	policyService, err := policies.NewService(policies.ServiceParams{
		TxRunner: dbClient,
		Repo:     policyRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create policies service", err)
		os.Exit(1)
	}

	walletService, err := wallet.NewService(wallet.ServiceParams{
		TxRunner: dbClient,
		Repo:     walletRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	commissionService, err := commission.NewService(commission.ServiceParams{
		TxRunner: dbClient,
		Repo:     commissionRepo,
		Requests: requestRepo,
		Policies: policyRepo,
		Admins:   userRepo,
		Wallet:   walletBridge{wallet: walletService},
		Outbox:   outboxService,
		Metrics:  lifecycleMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create commission service", err)
		os.Exit(1)
	}

	requestService, err := requests.NewService(requests.ServiceParams{
		TxRunner:    dbClient,
		Repo:        requestRepo,
		Resolver:    locationService,
		Users:       userRepo,
		Distributor: commissionService,
		Outbox:      outboxService,
		Metrics:     lifecycleMetrics,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create requests service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notificationRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Registry:      registry,
			Auth:          authService,
			Register:      registerService,
			Requests:      requestService,
			Commission:    commissionService,
			Policies:      policyService,
			Wallet:        walletService,
			Notifications: notificationService,
		}),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(timeoutCtx); err != nil {
			logg.Error(ctx, "api server shutdown error", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server stopped")
}
