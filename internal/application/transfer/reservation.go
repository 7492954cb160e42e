package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/Compras-api/internal/domain"
	"github.com/jhoicas/Compras-api/internal/domain/entity"
	"github.com/jhoicas/Compras-api/internal/domain/repository"
	"github.com/jhoicas/Compras-api/pkg/clock"
	"github.com/jhoicas/Compras-api/pkg/logger"
)

// ReservationManager administra reclamos blandos de stock atados a traslados.
// El vencimiento es función pura de now vs expiresAt: una reserva vencida deja
// de contar para disponibilidad aunque nadie la haya liberado todavía; el
// barrido de fondo solo la marca para higiene.
type ReservationManager struct {
	reservationRepo repository.ReservationRepository
	stockRepo       repository.StockLevelRepository
	transferRepo    repository.TransferRepository
	clk             clock.Clock
	ids             clock.IDGenerator
	log             *logger.Logger
}

// NewReservationManager construye el administrador de reservas.
func NewReservationManager(
	reservationRepo repository.ReservationRepository,
	stockRepo repository.StockLevelRepository,
	transferRepo repository.TransferRepository,
	clk clock.Clock,
	ids clock.IDGenerator,
	log *logger.Logger,
) *ReservationManager {
	return &ReservationManager{
		reservationRepo: reservationRepo,
		stockRepo:       stockRepo,
		transferRepo:    transferRepo,
		clk:             clk,
		ids:             ids,
		log:             log,
	}
}

// Reserve crea la reserva para un traslado. Reintentar el envío del mismo
// traslado devuelve la reserva existente en vez de duplicar el reclamo
// (unicidad por producto+ubicación+traslado).
func (m *ReservationManager) Reserve(ctx context.Context, companyID, transferID, productID, locationID string, quantity int64, ttl time.Duration) (*entity.InventoryReservation, error) {
	if quantity <= 0 {
		return nil, &domain.ValidationError{Field: "quantity", Message: "la cantidad a reservar debe ser mayor que cero"}
	}
	if ttl <= 0 {
		return nil, &domain.ValidationError{Field: "ttl", Message: "el TTL de la reserva debe ser positivo"}
	}

	now := m.clk.Now()
	r := &entity.InventoryReservation{
		ID:               m.ids.NewID(),
		CompanyID:        companyID,
		TransferID:       transferID,
		ProductID:        productID,
		LocationID:       locationID,
		QuantityReserved: quantity,
		ReservedAt:       now,
		ExpiresAt:        now.Add(ttl),
	}
	err := m.reservationRepo.Create(ctx, r)
	if err == nil {
		return r, nil
	}
	if errors.Is(err, domain.ErrDuplicate) {
		existing, getErr := m.reservationRepo.GetByTransfer(ctx, transferID, companyID)
		if getErr != nil {
			return nil, getErr
		}
		return existing, nil
	}
	return nil, fmt.Errorf("crear reserva: %w", err)
}

// Release marca la reserva como liberada; liberar dos veces es no-op, no error.
func (m *ReservationManager) Release(ctx context.Context, companyID, reservationID string) error {
	r, err := m.reservationRepo.GetByID(ctx, reservationID, companyID)
	if err != nil {
		return err
	}
	if r.ReleasedAt != nil {
		return nil
	}
	return m.reservationRepo.Release(ctx, reservationID, m.clk.Now())
}

// ReleaseByTransfer libera la reserva activa de un traslado, si existe.
func (m *ReservationManager) ReleaseByTransfer(ctx context.Context, companyID, transferID string) error {
	r, err := m.reservationRepo.GetByTransfer(ctx, transferID, companyID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if r.ReleasedAt != nil {
		return nil
	}
	return m.reservationRepo.Release(ctx, r.ID, m.clk.Now())
}

// Availability disponibilidad para un nuevo traslado en una ubicación:
// existencias físicas − reservas activas − tránsito sin reserva que lo cubra.
// El físico del origen no se mueve hasta la recepción, así que cada despacho
// en ruta descuenta exactamente una vez: por su reserva mientras está vigente,
// o por el término de tránsito cuando la reserva venció en ruta.
func (m *ReservationManager) Availability(ctx context.Context, companyID, productID, locationID string) (int64, error) {
	stock, err := m.stockRepo.Get(ctx, companyID, productID, locationID)
	if err != nil {
		return 0, err
	}
	now := m.clk.Now()
	reserved, err := m.reservationRepo.SumActive(ctx, companyID, productID, locationID, now)
	if err != nil {
		return 0, err
	}
	inTransit, err := m.transferRepo.SumInTransit(ctx, companyID, productID, locationID, now)
	if err != nil {
		return 0, err
	}
	return stock.OnHand - reserved - inTransit, nil
}

// SweepExpired libera reservas vencidas sin liberar; devuelve cuántas marcó.
// Seguro de correr desde cualquier número de procesos: liberar una reserva ya
// liberada es no-op.
func (m *ReservationManager) SweepExpired(ctx context.Context, limit int) (int, error) {
	now := m.clk.Now()
	expired, err := m.reservationRepo.ListExpired(ctx, now, limit)
	if err != nil {
		return 0, err
	}
	var swept int
	for _, r := range expired {
		if err := m.reservationRepo.Release(ctx, r.ID, now); err != nil {
			m.log.Warn().Err(err).Str("reservation_id", r.ID).Msg("no se pudo liberar reserva vencida")
			continue
		}
		swept++
	}
	if swept > 0 {
		m.log.Info().Int("count", swept).Msg("reservas vencidas liberadas por el barrido")
	}
	return swept, nil
}
