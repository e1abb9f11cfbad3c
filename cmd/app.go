package cmd

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/alert"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/factory"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/locker"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/provider"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/repository"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/service"
	"github.com/vibast-solutions/ms-go-lesson-payments/config"
)

type application struct {
	cfg         *config.Config
	purchases   *service.PurchaseService
	reconciler  *service.Reconciler
	ledger      *service.PromoLedger
	withdrawals *service.WithdrawService
	finance     *service.FinanceAggregator
	audit       *service.AuditTrail
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	return cfg
}

func mustOpenDB(cfg *config.Config) *sql.DB {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}
	return db
}

// mustCreateApplication wires every service over MySQL. Redis and Kafka are optional;
// without them sweeps run unlocked and alerts only reach the log.
func mustCreateApplication() (*application, func()) {
	cfg := mustLoadConfig()
	db := mustOpenDB(cfg)
	closers := []func(){
		func() {
			if err := db.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close database")
			}
		},
	}

	var lock locker.Locker = locker.NoopLocker{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		lock = locker.NewRedisLocker(rdb, cfg.Redis.LockTTL)
		closers = append(closers, func() { _ = rdb.Close() })
		logrus.WithField("addr", cfg.Redis.Addr).Info("Sweep lock backed by redis")
	}

	var alerter alert.Alerter = alert.NewLogAlerter(factory.NewModuleLogger("alerts"))
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaAlerter, err := alert.NewKafkaAlerter(cfg.Kafka.Brokers, cfg.Kafka.AlertsTopic, cfg.Kafka.ClientID)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize kafka alerter")
		}
		alerter = kafkaAlerter
		closers = append(closers, kafkaAlerter.Close)
		logrus.WithField("topic", cfg.Kafka.AlertsTopic).Info("Operator alerts published to kafka")
	}

	purchaseRepo := repository.NewPurchaseRepository(db)
	withdrawRepo := repository.NewWithdrawRequestRepository(db)
	registry := provider.NewRegistry(provider.NewStarsProvider(cfg.Provider))

	audit := service.NewAuditTrail(repository.NewAuditEntryRepository(db), cfg.Purchases.StoreTimeout)
	ledger := service.NewPromoLedger(repository.NewPromoCodeRepository(db), cfg.Promo, cfg.Purchases, lock)
	finance := service.NewFinanceAggregator(purchaseRepo, withdrawRepo, cfg.Finance, cfg.Provider, cfg.Purchases)

	app := &application{
		cfg: cfg,
		purchases: service.NewPurchaseService(
			purchaseRepo,
			repository.NewCatalogRepository(db),
			ledger,
			audit,
			registry,
			cfg.Purchases,
			cfg.Provider,
			lock,
		),
		reconciler: service.NewReconciler(
			purchaseRepo,
			repository.NewProviderNotificationRepository(db),
			ledger,
			audit,
			alerter,
			registry,
			cfg.Purchases,
		),
		ledger:      ledger,
		withdrawals: service.NewWithdrawService(withdrawRepo, finance, audit, cfg.Withdraw, cfg.Purchases),
		finance:     finance,
		audit:       audit,
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return app, cleanup
}
