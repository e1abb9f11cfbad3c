package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-lesson-payments/config"
)

var (
	workerMode bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run cleanup sweeps",
}

var sweepPurchasesCmd = &cobra.Command{
	Use:   "purchases",
	Short: "Cancel purchases left in CREATED past the intent timeout",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"sweep_purchases",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ExpirePurchasesInterval },
			func(app *application, ctx context.Context) error {
				return app.purchases.RunExpireCreatedBatch(ctx)
			},
		)
	},
}

var sweepPromoCodesCmd = &cobra.Command{
	Use:   "promocodes",
	Short: "Deactivate expired promo codes",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"sweep_promocodes",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ExpirePromoCodesInterval },
			func(app *application, ctx context.Context) error {
				return app.ledger.RunExpirePromoCodesBatch(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.AddCommand(sweepPurchasesCmd)
	sweepCmd.AddCommand(sweepPromoCodesCmd)

	sweepCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(app *application, ctx context.Context) error,
) {
	app, cleanup := mustCreateApplication()
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if workerMode {
		runWorker(ctx, name, intervalResolver(app.cfg), func(ctx context.Context) error { return fn(app, ctx) })
		return
	}

	runJob(name, func() error { return fn(app, ctx) })
}

func runWorker(ctx context.Context, name string, interval time.Duration, fn func(ctx context.Context) error) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runJob(name, func() error { return fn(ctx) })

	for {
		select {
		case <-ctx.Done():
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
