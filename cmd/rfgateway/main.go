// Command rfgateway serves the node's commands over HTTP and relays them on
// the nRF24 link (or a simulated node when radio.backend is "sim").
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"rfnode-go/services/gateway"
)

func main() {
	cfgPath := flag.String("config", "", "config file (default $RFGW_CONFIG or configs/rfgateway.yaml)")
	flag.Parse()

	// 1) config
	cfg, err := gateway.LoadConfig(*cfgPath)
	if err != nil {
		panic(err)
	}

	// 2) logging
	logger, err := gateway.NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	log := zap.L()

	// 3) radio, stores, http
	app, err := gateway.New(cfg, log)
	if err != nil {
		log.Fatal("gateway init", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("rfgateway starting",
		zap.String("env", cfg.App.Env),
		zap.String("backend", cfg.Radio.Backend),
		zap.String("addr", cfg.HTTP.Addr))
	if err := app.Run(ctx); err != nil {
		log.Error("gateway stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	log.Info("rfgateway stopped")
}
