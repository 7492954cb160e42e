package repository

import (
	"context"

	"github.com/jhoicas/Compras-api/internal/domain/entity"
)

// AllocationRepository puerto de persistencia para asignaciones.
type AllocationRepository interface {
	Create(ctx context.Context, a *entity.Allocation) error
	GetByID(ctx context.Context, id, companyID string) (*entity.Allocation, error)
	// ListByPOItem devuelve todas las asignaciones de una línea (incluidas las
	// canceladas; el dominio decide cuáles suman).
	ListByPOItem(ctx context.Context, poItemID, companyID string) ([]*entity.Allocation, error)
	// SumAllocated suma QuantityAllocated de asignaciones NO canceladas de la
	// línea, leída en vivo (nunca cacheada): los callers dimensionan la
	// siguiente asignación con este valor.
	SumAllocated(ctx context.Context, poItemID, companyID string) (int64, error)
	// UpdateStatus compare-and-swap por Version; cero filas => domain.ErrConcurrency.
	UpdateStatus(ctx context.Context, a *entity.Allocation, expectedVersion int64) error
}
