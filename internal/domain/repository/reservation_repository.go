package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Compras-api/internal/domain/entity"
)

// ReservationRepository puerto de persistencia para reservas de inventario.
type ReservationRepository interface {
	// Create inserta la reserva; violación del único
	// (product_id, location_id, transfer_id) => domain.ErrDuplicate.
	Create(ctx context.Context, r *entity.InventoryReservation) error
	GetByID(ctx context.Context, id, companyID string) (*entity.InventoryReservation, error)
	GetByTransfer(ctx context.Context, transferID, companyID string) (*entity.InventoryReservation, error)
	// Release marca released_at si aún es nil; liberar dos veces es no-op.
	Release(ctx context.Context, id string, releasedAt time.Time) error
	// SumActive suma reservas activas (released_at IS NULL AND expires_at > now)
	// para producto+ubicación. La condición de vencimiento se evalúa contra el
	// now recibido, no contra el reloj del servidor.
	SumActive(ctx context.Context, companyID, productID, locationID string, now time.Time) (int64, error)
	// ListExpired reservas vencidas sin liberar, para el barrido de fondo.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.InventoryReservation, error)
}
