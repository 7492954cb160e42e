package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Compras-api/internal/domain"
	"github.com/jhoicas/Compras-api/internal/domain/entity"
	"github.com/jhoicas/Compras-api/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

// ReservationRepo implementación de ReservationRepository sobre PostgreSQL
// (usable con pool o tx). La tabla lleva un único sobre
// (product_id, location_id, transfer_id).
type ReservationRepo struct {
	q Querier
}

// NewReservationRepository construye el adaptador de reservas.
func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

const reservationColumns = `
	id, company_id, transfer_id, product_id, location_id,
	quantity_reserved, reserved_at, expires_at, released_at`

func scanReservation(row pgx.Row) (*entity.InventoryReservation, error) {
	var r entity.InventoryReservation
	err := row.Scan(
		&r.ID, &r.CompanyID, &r.TransferID, &r.ProductID, &r.LocationID,
		&r.QuantityReserved, &r.ReservedAt, &r.ExpiresAt, &r.ReleasedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserta la reserva; el único por (product, location, transfer)
// convierte el reintento en domain.ErrDuplicate.
func (r *ReservationRepo) Create(ctx context.Context, res *entity.InventoryReservation) error {
	query := `
		INSERT INTO inventory_reservations (
			id, company_id, transfer_id, product_id, location_id,
			quantity_reserved, reserved_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		res.ID, res.CompanyID, res.TransferID, res.ProductID, res.LocationID,
		res.QuantityReserved, res.ReservedAt, res.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// GetByID obtiene una reserva bajo (id, companyID).
func (r *ReservationRepo) GetByID(ctx context.Context, id, companyID string) (*entity.InventoryReservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM inventory_reservations WHERE id = $1 AND company_id = $2`
	res, err := scanReservation(r.q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

// GetByTransfer obtiene la reserva de un traslado.
func (r *ReservationRepo) GetByTransfer(ctx context.Context, transferID, companyID string) (*entity.InventoryReservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM inventory_reservations WHERE transfer_id = $1 AND company_id = $2`
	res, err := scanReservation(r.q.QueryRow(ctx, query, transferID, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get reservation by transfer: %w", err)
	}
	return res, nil
}

// Release marca released_at solo si sigue nil: liberar dos veces es no-op.
func (r *ReservationRepo) Release(ctx context.Context, id string, releasedAt time.Time) error {
	query := `UPDATE inventory_reservations SET released_at = $2 WHERE id = $1 AND released_at IS NULL`
	if _, err := r.q.Exec(ctx, query, id, releasedAt); err != nil {
		return fmt.Errorf("release reservation: %w", err)
	}
	return nil
}

// SumActive reservas vigentes (no liberadas y no vencidas al now recibido).
func (r *ReservationRepo) SumActive(ctx context.Context, companyID, productID, locationID string, now time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(quantity_reserved), 0)
		FROM inventory_reservations
		WHERE company_id = $1 AND product_id = $2 AND location_id = $3
		  AND released_at IS NULL AND expires_at > $4`
	var sum int64
	if err := r.q.QueryRow(ctx, query, companyID, productID, locationID, now).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum active reservations: %w", err)
	}
	return sum, nil
}

// ListExpired reservas vencidas sin liberar, para el barrido.
func (r *ReservationRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.InventoryReservation, error) {
	query := `SELECT ` + reservationColumns + `
		FROM inventory_reservations
		WHERE released_at IS NULL AND expires_at <= $1
		ORDER BY expires_at LIMIT $2`
	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	defer rows.Close()
	var list []*entity.InventoryReservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		list = append(list, res)
	}
	return list, rows.Err()
}
