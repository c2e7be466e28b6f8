package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ordering-platform/internal/auth"
	"ordering-platform/internal/bridge"
	"ordering-platform/internal/config"
	"ordering-platform/internal/handler"
	"ordering-platform/internal/logger"
	"ordering-platform/internal/publisher"
	"ordering-platform/internal/repository"
	"ordering-platform/internal/service"
	"ordering-platform/internal/ws"
)

func main() {
	cfg := config.New()
	lg := logger.New("orders-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := repository.Connect(ctx, cfg.DatabaseURI)
	if err != nil {
		lg.Error("db_connect_failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repository.InitSchema(ctx, pool); err != nil {
		lg.Error("schema_init_failed", "error", err)
		os.Exit(1)
	}

	pub, err := publisher.Dial(cfg.RabbitURL)
	if err != nil {
		lg.Error("rabbitmq_connect_failed", "error", err)
		os.Exit(1)
	}
	defer pub.Close()

	guard := auth.NewGuard(cfg.JWTSecret)
	repo := repository.NewOrdersPG(pool)
	orderSvc := service.NewOrderService(repo, pub, guard, lg)
	orderSvc.SimulateDelay = cfg.SimulateDelay

	hub := ws.NewHub(lg)
	go hub.Run(ctx)

	br := bridge.New(cfg.RabbitURL, hub, lg)
	go func() {
		if err := br.Run(ctx); err != nil {
			lg.Error("bridge_stopped", "error", err)
		}
	}()

	wsHandler := ws.NewHandler(hub, guard, orderSvc)
	orderHandler := handler.NewOrderHandler(orderSvc, lg)
	router := handler.Router(orderHandler, wsHandler.ServeWS, guard)

	srv := handler.NewServer(cfg.RunAddress, router)
	lg.Info("service_started", "addr", cfg.RunAddress)
	if err := srv.Run(ctx); err != nil {
		lg.Error("server_failed", "error", err)
		os.Exit(1)
	}
	lg.Info("server_stopped")
}
