// Command server starts the secret exchange HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"secretburner/internal/app"
	"secretburner/internal/config"
	"secretburner/internal/mail"
	"secretburner/internal/service"
	"secretburner/internal/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal("parse redis url", zap.Error(err))
	}
	opt.PoolSize = cfg.RedisPoolSize
	opt.MinIdleConns = cfg.RedisMinIdle
	rdb := redis.NewClient(opt)
	defer func() { _ = rdb.Close() }()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("connect to redis", zap.Error(err))
	}

	renderer, err := mail.NewRenderer()
	if err != nil {
		logger.Fatal("load email templates", zap.Error(err))
	}
	mailer, err := mail.NewMailer(mail.ProviderConfig{
		Provider:     cfg.MailProvider,
		SMTPAddr:     cfg.SMTPAddr,
		SMTPUsername: cfg.SMTPUsername,
		SMTPPassword: cfg.SMTPPassword,
	}, logger)
	if err != nil {
		logger.Fatal("build mailer", zap.Error(err))
	}

	secretRepo := store.NewRedisSecretRepository(rdb)
	verificationRepo := store.NewRedisVerificationRepository(rdb)

	verificationSvc, err := service.NewVerificationService(
		verificationRepo, renderer, mailer,
		cfg.MailerFromEmail, cfg.AllowEmail, cfg.VerificationExpirySeconds, logger)
	if err != nil {
		logger.Fatal("build verification service", zap.Error(err))
	}
	notifier := service.NewNotifier(
		verificationSvc, renderer, mailer, cfg.MailerFromEmail, cfg.AllowEmail, logger)
	secretSvc := service.NewSecretService(secretRepo, notifier, service.LinkBuilder{
		UIHostname:       cfg.UIHostname,
		ViewSecretURL:    cfg.UIViewSecretURL,
		FulfilRequestURI: cfg.UIFulfilRequestURI,
	}, logger)

	handler := app.NewHandler(secretSvc, verificationSvc, logger)
	limiter := app.NewRateLimiter(rdb, app.DefaultRateLimitConfig(), logger)
	router := app.NewRouter(handler, app.RouterConfig{
		RequireHTTPS: cfg.RequireHTTPS,
		RateLimiter:  limiter,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}

	logger.Info("shutdown complete")
}
