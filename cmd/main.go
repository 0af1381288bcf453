package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/fathima-sithara/webhook-service/internal/api"
	"github.com/fathima-sithara/webhook-service/internal/config"
	"github.com/fathima-sithara/webhook-service/internal/events"
	"github.com/fathima-sithara/webhook-service/internal/logger"
	"github.com/fathima-sithara/webhook-service/internal/repository"
	"github.com/fathima-sithara/webhook-service/internal/service"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zl, err := logger.New(cfg.App.Env == "development")
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	sugar := zl.Sugar()

	mc, err := repository.NewMongoClient(cfg.Mongo.URI)
	if err != nil {
		sugar.Fatalw("mongo init", "err", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()

	store := repository.NewMongoStore(mc.Database(cfg.Mongo.DB).Collection("messages"))

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}

	pub := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, sugar)
	defer func() { _ = pub.Close() }()

	sim := service.NewSimulator(store, sugar, cfg.Simulator.DeliverAfter, cfg.Simulator.ReadAfter)
	defer sim.Close()

	ing := service.NewIngestor(store, sim, pub, sugar, cfg.Webhook.SelfAddress)
	qry := service.NewQuery(store, rdb, sugar)

	app := api.NewServer(cfg, ing, qry, sugar)

	go func() {
		if err := app.Listen(":" + cfg.App.PortString()); err != nil {
			sugar.Fatalw("server listen", "err", err)
		}
	}()
	sugar.Infow("webhook-service started", "port", cfg.App.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = app.ShutdownWithContext(ctx)
	sugar.Info("webhook-service stopped")
}
