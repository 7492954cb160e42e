package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/Compras-api/internal/application/transfer"
	"github.com/jhoicas/Compras-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Compras-api/pkg/clock"
	"github.com/jhoicas/Compras-api/pkg/config"
	"github.com/jhoicas/Compras-api/pkg/logger"
)

// Lote máximo de reservas liberadas por pasada del barrido.
const sweepBatch = 500

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando worker de reservas")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	clk := clock.System{}
	reservations := transfer.NewReservationManager(
		postgres.NewReservationRepository(pool),
		postgres.NewStockLevelRepository(pool),
		postgres.NewTransferRepository(pool),
		clk, clk, log,
	)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	go runSweeper(sweepCtx, reservations, log, cfg.Procurement.SweepInterval)

	log.Info().
		Dur("reservation_ttl", cfg.Procurement.ReservationTTL).
		Dur("sweep_interval", cfg.Procurement.SweepInterval).
		Msg("barrido de reservas en marcha")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("apagando worker")
	stopSweep()
}

// runSweeper libera reservas vencidas cada interval hasta que el contexto se
// cancele.
func runSweeper(ctx context.Context, reservations *transfer.ReservationManager, log *logger.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			released, err := reservations.SweepExpired(ctx, sweepBatch)
			if err != nil {
				log.Error().Err(err).Msg("barrido de reservas")
				continue
			}
			if released > 0 {
				log.Info().Int("released", released).Msg("reservas vencidas liberadas")
			}
		}
	}
}
