package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Compras-api/internal/domain/entity"
)

// TransferRepository puerto de persistencia para traslados.
type TransferRepository interface {
	Create(ctx context.Context, t *entity.Transfer) error
	GetByID(ctx context.Context, id, companyID string) (*entity.Transfer, error)
	// UpdateStatus compare-and-swap por Version; cero filas => domain.ErrConcurrency.
	UpdateStatus(ctx context.Context, t *entity.Transfer, expectedVersion int64) error
	ListByCompany(ctx context.Context, companyID string, status *entity.TransferStatus, limit, offset int) ([]*entity.Transfer, error)
	// SumInTransit suma QuantityShipped de traslados SHIPPED (aún no recibidos)
	// que salen de la ubicación y no tienen reserva activa que los cubra: es el
	// respaldo de disponibilidad cuando la reserva del despacho venció antes de
	// la recepción. Un despacho nunca descuenta dos veces: o lo cubre su
	// reserva activa, o entra aquí.
	SumInTransit(ctx context.Context, companyID, productID, locationID string, now time.Time) (int64, error)
}
