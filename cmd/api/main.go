package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"suno-relay/internal/callbacks"
	"suno-relay/internal/server"
	"suno-relay/internal/shared"
	"suno-relay/internal/upstream"

	"github.com/manifold-inc/manifold-sdk/lib/eflag"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Flags / ENV Variables
	port := flag.Int("port", shared.DefaultPort, "Port to bind")
	sunoBaseURL := flag.String("suno-base-url", shared.DefaultSunoBaseURL, "Suno API base url")
	debug := flag.Bool("debug", false, "Debug enabled")
	metricsAPIKey := flag.String("metrics-api-key", "", "Metrics api key, leave empty for open /metrics")
	redisAddr := flag.String("redis-addr", "", "Redis host:port for callback notifications (optional)")
	redisChannel := flag.String("redis-channel", shared.DefaultRedisChannel, "Redis pub/sub channel for callback notifications")

	err := eflag.SetFlagsFromEnvironment()
	if err != nil {
		panic(err)
	}
	flag.Parse()

	var logger *zap.Logger
	if !*debug {
		logger, err = zap.NewProduction()
		if err != nil {
			panic("Failed init logger")
		}
	}
	if *debug {
		logger, err = zap.NewDevelopment()
		if err != nil {
			panic("Failed init logger")
		}
	}
	log := logger.Sugar()
	defer func() {
		_ = log.Sync()
	}()

	var notifier callbacks.Notifier = callbacks.NopNotifier{}
	if *redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     *redisAddr,
			Password: "",
			DB:       0,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			panic(fmt.Sprintf("failed ping to redis db: %s", err))
		}
		redisNotifier := callbacks.NewRedisNotifier(redisClient, *redisChannel)
		defer func() {
			_ = redisNotifier.Close()
		}()
		notifier = redisNotifier
		log.Infow("Publishing callbacks to redis", "channel", *redisChannel)
	}

	e := server.New(server.Config{
		SunoBaseURL:   *sunoBaseURL,
		MetricsAPIKey: *metricsAPIKey,
	}, server.Deps{
		Upstream: upstream.NewClient(*sunoBaseURL, log),
		Store:    callbacks.NewStore(),
		Notifier: notifier,
		Log:      log,
	})

	addr := fmt.Sprintf("0.0.0.0:%d", *port)
	go func() {
		log.Infow("Starting server", "addr", addr, "upstream", *sunoBaseURL)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalw("shutting down the server", "error", err)
		}
	}()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), shared.DefaultShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Errorw("Failed graceful shutdown", "error", err)
	}
}
