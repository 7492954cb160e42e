package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Compras-api/internal/domain"
	"github.com/jhoicas/Compras-api/internal/domain/entity"
	"github.com/jhoicas/Compras-api/internal/domain/repository"
)

var _ repository.AllocationRepository = (*AllocationRepo)(nil)

// AllocationRepo implementación de AllocationRepository sobre PostgreSQL
// (usable con pool o tx).
type AllocationRepo struct {
	q Querier
}

// NewAllocationRepository construye el adaptador de asignaciones.
func NewAllocationRepository(q Querier) *AllocationRepo {
	return &AllocationRepo{q: q}
}

// Create persiste una nueva asignación.
func (r *AllocationRepo) Create(ctx context.Context, a *entity.Allocation) error {
	query := `
		INSERT INTO allocations (
			id, company_id, po_item_id, target_location_id,
			quantity_allocated, quantity_received, status, version,
			created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		a.ID, a.CompanyID, a.POItemID, a.TargetLocationID,
		a.QuantityAllocated, a.QuantityReceived, a.Status, a.Version,
		a.CreatedBy, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("insert allocation: línea o ubicación inexistente: %w", domain.ErrInvalidInput)
		}
		return fmt.Errorf("insert allocation: %w", err)
	}
	return nil
}

// GetByID obtiene una asignación bajo (id, companyID).
func (r *AllocationRepo) GetByID(ctx context.Context, id, companyID string) (*entity.Allocation, error) {
	query := `
		SELECT id, company_id, po_item_id, target_location_id,
		       quantity_allocated, quantity_received, status, version,
		       created_by, created_at, updated_at
		FROM allocations WHERE id = $1 AND company_id = $2`
	var a entity.Allocation
	err := r.q.QueryRow(ctx, query, id, companyID).Scan(
		&a.ID, &a.CompanyID, &a.POItemID, &a.TargetLocationID,
		&a.QuantityAllocated, &a.QuantityReceived, &a.Status, &a.Version,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get allocation: %w", err)
	}
	return &a, nil
}

// ListByPOItem todas las asignaciones de una línea, canceladas incluidas.
func (r *AllocationRepo) ListByPOItem(ctx context.Context, poItemID, companyID string) ([]*entity.Allocation, error) {
	query := `
		SELECT id, company_id, po_item_id, target_location_id,
		       quantity_allocated, quantity_received, status, version,
		       created_by, created_at, updated_at
		FROM allocations WHERE po_item_id = $1 AND company_id = $2
		ORDER BY created_at`
	rows, err := r.q.Query(ctx, query, poItemID, companyID)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()
	var list []*entity.Allocation
	for rows.Next() {
		var a entity.Allocation
		if err := rows.Scan(
			&a.ID, &a.CompanyID, &a.POItemID, &a.TargetLocationID,
			&a.QuantityAllocated, &a.QuantityReceived, &a.Status, &a.Version,
			&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}

// SumAllocated suma en vivo lo asignado de la línea, excluyendo canceladas.
func (r *AllocationRepo) SumAllocated(ctx context.Context, poItemID, companyID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(quantity_allocated), 0)
		FROM allocations
		WHERE po_item_id = $1 AND company_id = $2 AND status <> 'CANCELLED'`
	var sum int64
	if err := r.q.QueryRow(ctx, query, poItemID, companyID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum allocated: %w", err)
	}
	return sum, nil
}

// UpdateStatus compare-and-swap por version; cero filas => conflicto.
func (r *AllocationRepo) UpdateStatus(ctx context.Context, a *entity.Allocation, expectedVersion int64) error {
	query := `
		UPDATE allocations SET
			quantity_received = $4, status = $5, version = $6, updated_at = $7
		WHERE id = $1 AND company_id = $2 AND version = $3`
	cmd, err := r.q.Exec(ctx, query,
		a.ID, a.CompanyID, expectedVersion,
		a.QuantityReceived, a.Status, a.Version, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update allocation: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrConcurrency
	}
	return nil
}
