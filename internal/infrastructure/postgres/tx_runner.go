package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	appalloc "github.com/jhoicas/Compras-api/internal/application/allocation"
	"github.com/jhoicas/Compras-api/internal/application/purchaseorder"
	"github.com/jhoicas/Compras-api/internal/application/transfer"
	"github.com/jhoicas/Compras-api/internal/domain/repository"
)

// Ensure TxRunner implementa los puertos transaccionales de cada área.
var _ purchaseorder.TxRunner = (*POTxRunner)(nil)
var _ transfer.TxRunner = (*TransferTxRunner)(nil)
var _ appalloc.TxRunner = (*AllocationTxRunner)(nil)

// POTxRunner ejecuta el flujo de órdenes de compra dentro de una transacción:
// cambio de estado, historial de precios y auditoría se confirman juntos.
type POTxRunner struct {
	pool *pgxpool.Pool
}

// NewPOTxRunner construye el runner con el pool.
func NewPOTxRunner(pool *pgxpool.Pool) *POTxRunner {
	return &POTxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *POTxRunner) Run(ctx context.Context, fn func(
	poRepo repository.PurchaseOrderRepository,
	itemRepo repository.POItemRepository,
	priceRepo repository.POPriceHistoryRepository,
	auditRepo repository.AuditLogRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(
		NewPurchaseOrderRepository(tx),
		NewPOItemRepository(tx),
		NewPOPriceHistoryRepository(tx),
		NewAuditLogRepository(tx),
	); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// TransferTxRunner transacción para el flujo de traslados: estado, stock,
// reservas y auditoría.
type TransferTxRunner struct {
	pool *pgxpool.Pool
}

// NewTransferTxRunner construye el runner con el pool.
func NewTransferTxRunner(pool *pgxpool.Pool) *TransferTxRunner {
	return &TransferTxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TransferTxRunner) Run(ctx context.Context, fn func(
	transferRepo repository.TransferRepository,
	reservationRepo repository.ReservationRepository,
	stockRepo repository.StockLevelRepository,
	auditRepo repository.AuditLogRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(
		NewTransferRepository(tx),
		NewReservationRepository(tx),
		NewStockLevelRepository(tx),
		NewAuditLogRepository(tx),
	); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// AllocationTxRunner transacción para asignaciones: estado de la asignación,
// acumulado de la línea y auditoría se confirman juntos.
type AllocationTxRunner struct {
	pool *pgxpool.Pool
}

// NewAllocationTxRunner construye el runner con el pool.
func NewAllocationTxRunner(pool *pgxpool.Pool) *AllocationTxRunner {
	return &AllocationTxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *AllocationTxRunner) Run(ctx context.Context, fn func(
	allocRepo repository.AllocationRepository,
	itemRepo repository.POItemRepository,
	auditRepo repository.AuditLogRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(
		NewAllocationRepository(tx),
		NewPOItemRepository(tx),
		NewAuditLogRepository(tx),
	); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
