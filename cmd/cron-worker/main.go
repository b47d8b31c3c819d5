package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/sevalabs/gramseva-backend/internal/commission"
	"github.com/sevalabs/gramseva-backend/internal/cron"
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

const lockKeyFormat = "gs:cron-worker:lock:%s"

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
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	lifecycleMetrics := metrics.NewLifecycleMetrics(prometheus.DefaultRegisterer)
	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	userRepo := users.NewRepository(dbClient.DB())
	requestRepo := requests.NewRepository(dbClient.DB())
	commissionRepo := commission.NewRepository(dbClient.DB())
	policyRepo := policies.NewRepository(dbClient.DB())
	walletRepo := wallet.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

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

	retryJob, err := cron.NewCommissionRetryJob(cron.CommissionRetryJobParams{
		Logger:  logg,
		Retrier: commissionService,
		Batch:   cfg.Sweep.PendingCreditBatch,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pending credit job", err)
		os.Exit(1)
	}

	stuckCreditJob, err := cron.NewStuckCreditJob(cron.StuckCreditJobParams{
		Logger:  logg,
		DB:      dbClient,
		Entries: commissionRepo,
		Outbox:  outboxService,
		Batch:   cfg.Sweep.PendingCreditBatch,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stuck credit job", err)
		os.Exit(1)
	}

	stuckRequestJob, err := cron.NewStuckRequestJob(cron.StuckRequestJobParams{
		Logger:   logg,
		Requests: requestRepo,
		Age:      cfg.Sweep.StuckRequestAge,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stuck request job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(retryJob, stuckCreditJob, stuckRequestJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Sweep.PendingCreditInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
