package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/newsletter/internal/api"
	"github.com/ignite/newsletter/internal/config"
	"github.com/ignite/newsletter/internal/email"
	"github.com/ignite/newsletter/internal/newsletter"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/subscription"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("loading configuration", "error", err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("opening database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	err = db.PingContext(pingCtx)
	pingCancel()
	if err != nil {
		logger.Error("database unreachable", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("connected to database")

	sender, err := buildSender(ctx, cfg)
	if err != nil {
		logger.Error("configuring email provider", "provider", cfg.Email.Provider, "error", err.Error())
		os.Exit(1)
	}

	subscriptions := subscription.NewService(db, sender, cfg.App.BaseURL)
	dispatcher := newsletter.NewDispatcher(subscription.NewSubscriberStore(db), sender)
	handlers := api.NewHandlers(subscriptions, dispatcher)

	var limiter *api.RateLimiter
	if cfg.RateLimit.Enabled {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		defer redisClient.Close()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			// The limiter fails open anyway; a dead Redis should not block boot.
			logger.Warn("redis unreachable, rate limiting degraded", "addr", cfg.RateLimit.RedisAddr, "error", err.Error())
		}
		limiter = api.NewRateLimiter(redisClient, cfg.RateLimit.PerMinute)
		logger.Info("rate limiting enabled", "per_minute", cfg.RateLimit.PerMinute)
	}

	server := api.NewServer(api.SetupRoutes(handlers, cfg.Admin.APIToken, limiter))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := cfg.Server.Addr()
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err.Error())
	}
	logger.Info("server stopped")
}

func buildSender(ctx context.Context, cfg *config.Config) (subscription.EmailSender, error) {
	switch cfg.Email.Provider {
	case "postmark":
		return email.NewPostmarkClient(cfg.Email.Postmark, cfg.Email.Sender)
	case "ses":
		return email.NewSESClient(ctx, cfg.Email.SES, cfg.Email.Sender)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Email.Provider)
	}
}
