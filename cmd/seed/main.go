package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sales_leads_backend/internal/leads/seed"
	"sales_leads_backend/platform/config"
	"sales_leads_backend/platform/db"
	"sales_leads_backend/platform/logger"
)

func main() {
	count := flag.Int("n", seed.DefaultCount, "number of leads to generate")
	reset := flag.Bool("clear", false, "delete existing leads before seeding")
	randSeed := flag.Int64("seed", 0, "faker seed (0 picks a random seed)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting lead seed", "count", *count, "clear", *reset)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	if _, err := db.RunMigrations(ctx, pool, cfg.GetMigrationsDir()); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}

	leads := seed.NewGenerator(*randSeed, time.Now).Generate(*count)
	inserted, err := seed.NewSeeder(pool, log).Run(ctx, leads, *reset)
	if err != nil {
		log.Error("seed failed", "error", err, "inserted", inserted)
		os.Exit(1)
	}

	log.Info("seed complete", "inserted", inserted)
}
