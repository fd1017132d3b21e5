package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/app"
	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/clock"
	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/config"
	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/storage/postgres"
	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/storage/redisx"
	"github.com/ZekromNguyen/Block-Ticket-sub004/migrations"
)

const startupTimeout = 5 * time.Second

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load(logger)

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("connect to db")
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.WithError(err).Fatal("db ping")
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.WithError(err).Fatal("apply migrations")
	}

	clk := clock.NewSystem()

	seatRepo := postgres.NewSeatRepository(pool, clk)
	var locks app.SeatLockManager = seatRepo
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(startupCtx).Err(); err != nil {
			logger.WithError(err).Fatal("redis ping")
		}
		defer client.Close()
		locks = redisx.NewSeatLockManager(client)
		logger.WithField("addr", cfg.RedisAddr).Info("seat locks backed by redis")
	}

	inventoryRepo := postgres.NewInventoryRepository(pool)
	inventorySvc := app.NewInventoryService(inventoryRepo, clk)
	reservationRepo := postgres.NewReservationRepository(pool)
	reservationSvc := app.NewReservationService(
		reservationRepo, inventorySvc, locks, seatRepo, clk,
		app.WithReservationTTL(cfg.ReservationTTL),
	)
	sweeper := app.NewSweeper(
		reservationSvc, reservationRepo, seatRepo, clk, logger,
		app.WithSweepInterval(cfg.SweepInterval),
		app.WithSweepBatchSize(cfg.SweepBatch),
	)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.WithFields(logrus.Fields{
		"sweep_interval":  cfg.SweepInterval.String(),
		"sweep_batch":     cfg.SweepBatch,
		"reservation_ttl": cfg.ReservationTTL.String(),
	}).Info("reservationd started")

	sweeper.Run(runCtx)

	logger.Info("shutdown signal received, stopping")
}
