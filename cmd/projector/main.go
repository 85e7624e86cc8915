package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-hotel-desk/internal/config"
	"github.com/ariefcatur/go-hotel-desk/internal/hotel"
	"github.com/ariefcatur/go-hotel-desk/internal/httpx"
	kafkax "github.com/ariefcatur/go-hotel-desk/internal/kafka"
	"github.com/ariefcatur/go-hotel-desk/internal/logging"
	"github.com/ariefcatur/go-hotel-desk/internal/projector"
	"github.com/ariefcatur/go-hotel-desk/internal/redisx"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName+"-projector")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if !cfg.PublishEvents() {
		log.Fatal("KAFKA_BROKERS is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("redis ping", zap.Error(err))
	}

	svc := &projector.Service{Redis: rdb, ServiceName: cfg.ServiceName + "-projector", Log: log}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ProjectorGroup, hotel.TopicRoomEvents, cfg.ProjectorWorkers, log)
	cons.MaxAttempts = cfg.ProjectorMaxAttempts

	router := httpx.NewRouter(log)
	(&httpx.ProjectionHandler{View: svc}).Register(router)
	srv := &http.Server{Addr: cfg.ProjectorHTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("projection http listening", zap.String("addr", cfg.ProjectorHTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("projection http", zap.Error(err))
			stop()
		}
	}()

	log.Info("projector consumer started",
		zap.String("group", cfg.ProjectorGroup),
		zap.String("topic", hotel.TopicRoomEvents),
		zap.Int("workers", cfg.ProjectorWorkers))
	consErr := cons.Start(ctx, svc.HandleRoomEvent)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	if consErr != nil {
		log.Error("consumer exit", zap.Error(consErr))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("projector stopped")
}
