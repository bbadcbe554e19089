// Command activity-feed consumes activity events from RabbitMQ and appends
// them to a plain-text log file.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rehanisg222/deploymentcrm/internal/config"
	"github.com/rehanisg222/deploymentcrm/internal/logger"
	"github.com/rehanisg222/deploymentcrm/internal/queue"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadFeed()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "activity-feed")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := queue.NewConsumer(cfg.AMQPURL, cfg.Queue, cfg.Dir, log)
	log.Info("consuming", zap.String("queue", cfg.Queue), zap.String("dir", cfg.Dir))
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("consumer stopped", zap.Error(err))
	}
}
