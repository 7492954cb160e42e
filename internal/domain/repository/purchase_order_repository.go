package repository

import (
	"context"

	"github.com/jhoicas/Compras-api/internal/domain/entity"
)

// PurchaseOrderRepository puerto de persistencia para órdenes de compra.
// Todas las consultas van scoped por companyID: una orden de otra empresa se
// reporta igual que una inexistente (no filtrar existencia entre empresas).
type PurchaseOrderRepository interface {
	Create(ctx context.Context, po *entity.PurchaseOrder) error
	// GetByID devuelve la orden con sus líneas, o domain.ErrNotFound si no
	// existe bajo (id, companyID).
	GetByID(ctx context.Context, id, companyID string) (*entity.PurchaseOrder, error)
	// UpdateStatus aplica la transición con compare-and-swap sobre Version:
	// UPDATE ... WHERE id AND company_id AND version = expectedVersion.
	// Cero filas afectadas => domain.ErrConcurrency.
	UpdateStatus(ctx context.Context, po *entity.PurchaseOrder, expectedVersion int64) error
	ListByCompany(ctx context.Context, companyID string, status *entity.POStatus, limit, offset int) ([]*entity.PurchaseOrder, error)
}

// POItemRepository puerto de persistencia para líneas de orden de compra.
type POItemRepository interface {
	Create(ctx context.Context, item *entity.POItem) error
	GetByID(ctx context.Context, id, companyID string) (*entity.POItem, error)
	ListByPO(ctx context.Context, poID string) ([]*entity.POItem, error)
	// AddReceived acumula cantidad recibida; el adaptador rechaza con
	// domain.ErrConcurrency si la suma superaría QuantityOrdered.
	AddReceived(ctx context.Context, id string, quantity int64) error
}

// POPriceHistoryRepository historial de precios registrado al aprobar.
type POPriceHistoryRepository interface {
	Create(ctx context.Context, h *entity.POPriceHistory) error
	ListByProduct(ctx context.Context, companyID, productID string, limit int) ([]*entity.POPriceHistory, error)
}

// POSequenceRepository genera números de orden legibles, únicos por empresa.
type POSequenceRepository interface {
	// Next devuelve el siguiente consecutivo para (companyID, year), de forma
	// atómica (upsert con incremento).
	Next(ctx context.Context, companyID string, year int) (int64, error)
	// Exists indica si ya hay una orden con ese número en la empresa.
	Exists(ctx context.Context, poNumber, companyID string) (bool, error)
}
