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

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo implementación de TransferRepository sobre PostgreSQL
// (usable con pool o tx).
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador de traslados.
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

const transferColumns = `
	id, company_id, product_id, source_location_id, destination_location_id,
	quantity_requested, quantity_shipped, quantity_received, status, priority,
	version, requested_by, requested_at, approved_by, approved_at,
	shipped_by, shipped_at, received_by, received_at,
	cancelled_by, cancelled_at, cancel_reason, variance_reason, updated_at`

func scanTransfer(row pgx.Row) (*entity.Transfer, error) {
	var t entity.Transfer
	err := row.Scan(
		&t.ID, &t.CompanyID, &t.ProductID, &t.SourceLocationID, &t.DestinationLocationID,
		&t.QuantityRequested, &t.QuantityShipped, &t.QuantityReceived, &t.Status, &t.Priority,
		&t.Version, &t.RequestedBy, &t.RequestedAt, &t.ApprovedBy, &t.ApprovedAt,
		&t.ShippedBy, &t.ShippedAt, &t.ReceivedBy, &t.ReceivedAt,
		&t.CancelledBy, &t.CancelledAt, &t.CancelReason, &t.VarianceReason, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create persiste un nuevo traslado.
func (r *TransferRepo) Create(ctx context.Context, t *entity.Transfer) error {
	query := `
		INSERT INTO transfers (
			id, company_id, product_id, source_location_id, destination_location_id,
			quantity_requested, quantity_shipped, quantity_received, status, priority,
			version, requested_by, requested_at, cancel_reason, variance_reason, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.CompanyID, t.ProductID, t.SourceLocationID, t.DestinationLocationID,
		t.QuantityRequested, t.QuantityShipped, t.QuantityReceived, t.Status, t.Priority,
		t.Version, t.RequestedBy, t.RequestedAt, t.CancelReason, t.VarianceReason, t.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("insert transfer: producto o ubicación inexistente: %w", domain.ErrInvalidInput)
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// GetByID obtiene un traslado bajo (id, companyID).
func (r *TransferRepo) GetByID(ctx context.Context, id, companyID string) (*entity.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1 AND company_id = $2`
	t, err := scanTransfer(r.q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	return t, nil
}

// UpdateStatus compare-and-swap por version; cero filas => conflicto.
func (r *TransferRepo) UpdateStatus(ctx context.Context, t *entity.Transfer, expectedVersion int64) error {
	query := `
		UPDATE transfers SET
			quantity_shipped = $4, quantity_received = $5, status = $6, version = $7,
			approved_by = $8, approved_at = $9,
			shipped_by = $10, shipped_at = $11,
			received_by = $12, received_at = $13,
			cancelled_by = $14, cancelled_at = $15,
			cancel_reason = $16, variance_reason = $17, updated_at = $18
		WHERE id = $1 AND company_id = $2 AND version = $3`
	cmd, err := r.q.Exec(ctx, query,
		t.ID, t.CompanyID, expectedVersion,
		t.QuantityShipped, t.QuantityReceived, t.Status, t.Version,
		t.ApprovedBy, t.ApprovedAt,
		t.ShippedBy, t.ShippedAt,
		t.ReceivedBy, t.ReceivedAt,
		t.CancelledBy, t.CancelledAt,
		t.CancelReason, t.VarianceReason, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrConcurrency
	}
	return nil
}

// ListByCompany traslados por empresa, opcionalmente por estado, paginados.
func (r *TransferRepo) ListByCompany(ctx context.Context, companyID string, status *entity.TransferStatus, limit, offset int) ([]*entity.Transfer, error) {
	query := `SELECT ` + transferColumns + `
		FROM transfers
		WHERE company_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY requested_at DESC LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, companyID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()
	var list []*entity.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// SumInTransit despachado y aún no recibido saliendo de la ubicación, sin
// reserva activa que lo cubra (el respaldo cuando la reserva venció en ruta).
func (r *TransferRepo) SumInTransit(ctx context.Context, companyID, productID, locationID string, now time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(t.quantity_shipped), 0)
		FROM transfers t
		WHERE t.company_id = $1 AND t.product_id = $2 AND t.source_location_id = $3
		  AND t.status = 'SHIPPED'
		  AND NOT EXISTS (
			SELECT 1 FROM inventory_reservations r
			WHERE r.transfer_id = t.id AND r.released_at IS NULL AND r.expires_at > $4
		  )`
	var sum int64
	if err := r.q.QueryRow(ctx, query, companyID, productID, locationID, now).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum in transit: %w", err)
	}
	return sum, nil
}
