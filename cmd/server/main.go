package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"clinic-booking-api/internal/account"
	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/booking"
	"clinic-booking-api/internal/config"
	"clinic-booking-api/internal/handler"
	"clinic-booking-api/internal/health"
	"clinic-booking-api/internal/logger"
	"clinic-booking-api/internal/metrics"
	"clinic-booking-api/internal/middleware"
	"clinic-booking-api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	log, err := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("db")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.WithError(err).Fatal("db ping")
	}
	log.Info("connected to postgres")

	if cfg.MigrateOnStart {
		if err := store.Migrate(cfg.DatabaseURL); err != nil {
			log.WithError(err).Fatal("migrations")
		}
		log.Info("migrations applied")
	}

	st := store.New(pool)

	// metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// services
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	accounts := account.NewService(st, auth.NewHasher(cfg.BcryptCost), issuer, account.Options{
		MinPasswordLen: cfg.MinPasswordLen,
		RefreshTTL:     cfg.RefreshTTL,
		SignupTokens: account.SignupTokenPolicy{
			Practitioner: true,
			Patient:      cfg.IssuePatientSignupToken,
		},
	}, log)
	bookings := booking.NewService(st, collector, log)

	rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	rl.OnLimited = collector.RecordRateLimited
	defer rl.Stop()

	checker := health.NewChecker(st, log)
	go checker.Run(ctx, 10*time.Second)

	// grpc health on TCP
	grpcSrv := grpc.NewServer()
	checker.Register(grpcSrv)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.WithError(err).Fatal("listen")
	}
	go func() {
		log.Infof("grpc health on :%s", cfg.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			log.WithError(err).Error("grpc")
		}
	}()

	httpSrv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: handler.NewRouter(handler.Deps{
			Accounts:    accounts,
			Bookings:    bookings,
			Issuer:      issuer,
			Log:         log,
			RequireAuth: cfg.RequireAuth,
			Limiter:     rl,
			HTTPMetrics: collector,
			Metrics:     metrics.Handler(reg),
			Health:      checker,
			CORSOrigins: cfg.CORSAllowedOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		log.WithFields(logrus.Fields{
			"port":         cfg.HTTPPort,
			"require_auth": cfg.RequireAuth,
		}).Info("http listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http")
			stop()
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	grpcSrv.GracefulStop()
}
