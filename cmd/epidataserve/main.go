// Command epidataserve keeps the population datasets fresh on a daily
// schedule and serves the generated artifacts over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nicaras/memilio/config"
	"github.com/Nicaras/memilio/epidata"
	"github.com/Nicaras/memilio/logging"
	"github.com/Nicaras/memilio/population"
	"github.com/Nicaras/memilio/scheduler"
	"github.com/Nicaras/memilio/server"
	"github.com/joho/godotenv"
)

// populationRefresher adapts the population pipeline to the scheduler.
type populationRefresher struct {
	pipeline *population.Pipeline
	flags    *epidata.RunFlags
}

func (p populationRefresher) Refresh() error {
	return p.pipeline.Run(p.flags)
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogDir, cfg.LogLevel)

	flags, err := epidata.ParseFlags("population", os.Args[1:], cfg.OutFolder)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	refresher := scheduler.New(populationRefresher{
		pipeline: population.New(cfg),
		flags:    flags,
	}, cfg.RefreshTimes)
	if err := refresher.Start(); err != nil {
		logging.Error("Failed to start dataset refresh", "error", err)
		os.Exit(1)
	}
	defer refresher.Stop()

	srv := server.New(cfg, refresher)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logging.Info("Starting server", "addr", cfg.Address+":"+cfg.Port)
		if err := srv.Start(); err != nil {
			logging.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	logging.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	} else {
		logging.Info("Server exited gracefully")
	}
}
