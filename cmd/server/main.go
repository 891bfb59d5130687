package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"taskloop-sync/internal/bootstrap"
	"taskloop-sync/internal/config"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default ~/.taskloop/config.yaml)")
	flag.Parse()
	if *configPath == "" {
		*configPath = config.DefaultPath()
	}

	app, err := bootstrap.NewApp(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to initialize bridge: %v", err)
	}
	app.Log.WithFields(logrus.Fields{
		"config":        *configPath,
		"store_backend": app.Config.Store.Backend,
		"api":           app.Config.API.BaseURL,
		"poll_interval": app.Config.Sync.PollInterval,
	}).Info("Bridge configured")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.Start()
	<-ctx.Done()
	app.Log.Info("Shutdown signal received, closing room controllers")
	app.Shutdown()
}
