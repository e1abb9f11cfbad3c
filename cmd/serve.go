package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/controller"
	paymentgrpc "github.com/vibast-solutions/ms-go-lesson-payments/app/grpc"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/types"
	"github.com/vibast-solutions/ms-go-lesson-payments/config"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start both HTTP (Echo) and gRPC servers for the lesson payments service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type httpControllers struct {
	purchases   *controller.PurchaseController
	webhooks    *controller.WebhookController
	promos      *controller.PromoCodeController
	withdrawals *controller.WithdrawController
	finance     *controller.FinanceController
	audit       *controller.AuditController
}

func runServe(_ *cobra.Command, _ []string) {
	app, cleanup := mustCreateApplication()
	defer cleanup()
	cfg := app.cfg

	controllers := httpControllers{
		purchases:   controller.NewPurchaseController(app.purchases),
		webhooks:    controller.NewWebhookController(app.reconciler),
		promos:      controller.NewPromoCodeController(app.ledger),
		withdrawals: controller.NewWithdrawController(app.withdrawals),
		finance:     controller.NewFinanceController(app.finance),
		audit:       controller.NewAuditController(app.audit),
	}
	grpcPaymentServer := paymentgrpc.NewServer(app.purchases, app.reconciler, app.ledger, app.withdrawals, app.finance)

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}
	defer authGRPCClient.Close()

	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	echoInternalAuthMiddleware := authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)
	grpcInternalAuthMiddleware := authmiddleware.NewGRPCInternalAuthMiddleware(internalAuthService)

	e := setupHTTPServer(cfg, controllers, echoInternalAuthMiddleware)
	grpcSrv, lis := setupGRPCServer(cfg, grpcPaymentServer, grpcInternalAuthMiddleware)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logrus.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("HTTP shutdown error")
		}
		grpcSrv.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Error("Server error")
		return
	}
	logrus.Info("Server stopped")
}

func setupHTTPServer(
	cfg *config.Config,
	c httpControllers,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			entry := logrus.WithFields(logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"request_id": v.RequestID,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			})
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(requireRequestID())
	e.Use(internalAuthMiddleware.RequireInternalAccess(cfg.App.ServiceName))

	e.GET("/health", c.purchases.Health)

	purchases := e.Group("/purchases")
	purchases.POST("", c.purchases.CreatePurchaseIntent)
	purchases.GET("", c.purchases.ListPurchases)
	purchases.GET("/:id", c.purchases.GetPurchase)

	webhooks := e.Group("/webhooks/providers", webhookRateLimiter(cfg.Webhooks))
	webhooks.POST("/:provider/precheck", c.webhooks.PreCheck)
	webhooks.POST("/:provider/completed", c.webhooks.Completed)

	promos := e.Group("/promocodes")
	promos.POST("/validate", c.promos.ValidatePromoCode)
	promos.POST("", c.promos.CreatePromoCode)
	promos.GET("", c.promos.ListPromoCodes)
	promos.GET("/:code", c.promos.GetPromoCode)
	promos.POST("/:code/deactivate", c.promos.DeactivatePromoCode)

	withdrawals := e.Group("/withdrawals")
	withdrawals.POST("", c.withdrawals.CreateWithdrawRequest)
	withdrawals.GET("", c.withdrawals.ListWithdrawRequests)
	withdrawals.GET("/:id", c.withdrawals.GetWithdrawRequest)
	withdrawals.POST("/:id/approve", c.withdrawals.Approve)
	withdrawals.POST("/:id/reject", c.withdrawals.Reject)
	withdrawals.POST("/:id/complete", c.withdrawals.Complete)

	finance := e.Group("/finance")
	finance.GET("/daily", c.finance.DailyRevenue)
	finance.GET("/monthly", c.finance.MonthlyRevenue)
	finance.GET("/top", c.finance.TopItems)
	finance.GET("/balance", c.finance.Balance)
	finance.GET("/report", c.finance.RevenueReport)

	e.GET("/audit/:subjectType/:subjectId", c.audit.ListEntries)

	return e
}

// webhookRateLimiter limits provider notifications per remote IP.
func webhookRateLimiter(cfg config.WebhooksConfig) echo.MiddlewareFunc {
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.RateLimit),
		Burst:     cfg.Burst,
		ExpiresIn: 3 * time.Minute,
	})
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, _ error) error {
			return ctx.JSON(http.StatusForbidden, &types.ErrorResponse{Error: "unable to identify caller"})
		},
		DenyHandler: func(ctx echo.Context, _ string, _ error) error {
			return ctx.JSON(http.StatusTooManyRequests, &types.ErrorResponse{Error: "too many requests"})
		},
	})
}

func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

func setupGRPCServer(
	cfg *config.Config,
	paymentServer *paymentgrpc.Server,
	internalAuthMiddleware *authmiddleware.GRPCInternalAuthMiddleware,
) (*grpc.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			paymentgrpc.RecoveryInterceptor(),
			paymentgrpc.RequestIDInterceptor(),
			paymentgrpc.LoggingInterceptor(),
			internalAuthMiddleware.UnaryRequireInternalAccess(cfg.App.ServiceName),
		),
	)
	paymentgrpc.RegisterPaymentsServiceServer(grpcSrv, paymentServer)

	return grpcSrv, lis
}
