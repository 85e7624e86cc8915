package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-hotel-desk/internal/config"
	"github.com/ariefcatur/go-hotel-desk/internal/console"
	"github.com/ariefcatur/go-hotel-desk/internal/frontdesk"
	"github.com/ariefcatur/go-hotel-desk/internal/logging"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	desk, closeDesk, err := frontdesk.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("open desk", zap.Error(err))
	}
	defer closeDesk()

	if err := console.New(desk, os.Stdin, os.Stdout).Run(ctx); err != nil {
		log.Error("session ended", zap.Error(err))
	}
}
