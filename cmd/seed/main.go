package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"tweeter/internal/app"
	"tweeter/internal/config"
	"tweeter/internal/seed"
)

func main() {
	users := flag.Int("users", seed.DefaultUsers, "number of users to generate")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("build app: %v", err)
	}
	defer application.Close()

	if err := seed.New(application.Users, application.Tweets, nil, logger).Run(ctx, *users); err != nil {
		logger.Errorf("seed: %v", err)
		return
	}
	logger.Info("seeding finished")
}
