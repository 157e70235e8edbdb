package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snow-ghost/wolfpack/config"
	"github.com/snow-ghost/wolfpack/worker"
)

func main() {
	configPath := flag.String("config", os.Getenv("WOLFPACK_CONFIG"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath, config.Default())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	svc, err := worker.NewService(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := svc.Logger
	svc.Solver.Telemetry.Publish("wolfpack")

	server := &http.Server{
		Addr:              ":" + cfg.Worker.Port,
		Handler:           worker.NewHandler(svc.Solver, svc.Limiter, svc.Registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("worker starting", "port", cfg.Worker.Port, "store", cfg.StorePath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("worker shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err.Error())
	}
	if err := svc.Close(shutdownCtx); err != nil {
		logger.Error("close failed", "error", err.Error())
	}
}
