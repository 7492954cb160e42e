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

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

// PurchaseOrderRepo implementación de PurchaseOrderRepository sobre PostgreSQL
// (usable con pool o tx).
type PurchaseOrderRepo struct {
	q Querier
}

// NewPurchaseOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseOrderRepository(q Querier) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{q: q}
}

// Create persiste una nueva orden (las líneas van por POItemRepository).
func (r *PurchaseOrderRepo) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	query := `
		INSERT INTO purchase_orders (
			id, company_id, supplier_id, po_number, status, total_cost_cents,
			version, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		po.ID, po.CompanyID, po.SupplierID, po.PONumber, po.Status, po.TotalCostCents,
		po.Version, po.CreatedBy, po.CreatedAt, po.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert purchase order: %w", err)
	}
	return nil
}

// GetByID obtiene la orden con sus líneas bajo (id, companyID).
// Una orden de otra empresa se reporta como inexistente.
func (r *PurchaseOrderRepo) GetByID(ctx context.Context, id, companyID string) (*entity.PurchaseOrder, error) {
	query := `
		SELECT id, company_id, supplier_id, po_number, status, total_cost_cents,
		       version, created_by, created_at, approved_by, approved_at,
		       received_by, received_at, cancelled_by, cancelled_at,
		       cancel_reason, updated_at
		FROM purchase_orders WHERE id = $1 AND company_id = $2`
	var po entity.PurchaseOrder
	err := r.q.QueryRow(ctx, query, id, companyID).Scan(
		&po.ID, &po.CompanyID, &po.SupplierID, &po.PONumber, &po.Status, &po.TotalCostCents,
		&po.Version, &po.CreatedBy, &po.CreatedAt, &po.ApprovedBy, &po.ApprovedAt,
		&po.ReceivedBy, &po.ReceivedAt, &po.CancelledBy, &po.CancelledAt,
		&po.CancelReason, &po.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get purchase order: %w", err)
	}

	items, err := NewPOItemRepository(r.q).ListByPO(ctx, po.ID)
	if err != nil {
		return nil, err
	}
	po.Items = items
	return &po, nil
}

// UpdateStatus aplica la transición con compare-and-swap sobre version.
// Cero filas afectadas significa que otro actor ganó la carrera.
func (r *PurchaseOrderRepo) UpdateStatus(ctx context.Context, po *entity.PurchaseOrder, expectedVersion int64) error {
	query := `
		UPDATE purchase_orders SET
			po_number = $4, status = $5, version = $6,
			approved_by = $7, approved_at = $8,
			received_by = $9, received_at = $10,
			cancelled_by = $11, cancelled_at = $12, cancel_reason = $13,
			updated_at = $14
		WHERE id = $1 AND company_id = $2 AND version = $3`
	cmd, err := r.q.Exec(ctx, query,
		po.ID, po.CompanyID, expectedVersion,
		po.PONumber, po.Status, po.Version,
		po.ApprovedBy, po.ApprovedAt,
		po.ReceivedBy, po.ReceivedAt,
		po.CancelledBy, po.CancelledAt, po.CancelReason,
		po.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update purchase order: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrConcurrency
	}
	return nil
}

// ListByCompany lista órdenes por empresa, opcionalmente por estado, con paginación.
func (r *PurchaseOrderRepo) ListByCompany(ctx context.Context, companyID string, status *entity.POStatus, limit, offset int) ([]*entity.PurchaseOrder, error) {
	query := `
		SELECT id, company_id, supplier_id, po_number, status, total_cost_cents,
		       version, created_by, created_at, approved_by, approved_at,
		       received_by, received_at, cancelled_by, cancelled_at,
		       cancel_reason, updated_at
		FROM purchase_orders
		WHERE company_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, companyID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()
	var list []*entity.PurchaseOrder
	for rows.Next() {
		var po entity.PurchaseOrder
		if err := rows.Scan(
			&po.ID, &po.CompanyID, &po.SupplierID, &po.PONumber, &po.Status, &po.TotalCostCents,
			&po.Version, &po.CreatedBy, &po.CreatedAt, &po.ApprovedBy, &po.ApprovedAt,
			&po.ReceivedBy, &po.ReceivedAt, &po.CancelledBy, &po.CancelledAt,
			&po.CancelReason, &po.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		list = append(list, &po)
	}
	return list, rows.Err()
}

var _ repository.POItemRepository = (*POItemRepo)(nil)

// POItemRepo implementación de POItemRepository sobre PostgreSQL.
type POItemRepo struct {
	q Querier
}

// NewPOItemRepository construye el adaptador de líneas de orden.
func NewPOItemRepository(q Querier) *POItemRepo {
	return &POItemRepo{q: q}
}

// Create persiste una línea.
func (r *POItemRepo) Create(ctx context.Context, item *entity.POItem) error {
	query := `
		INSERT INTO po_items (id, po_id, product_id, quantity_ordered, unit_price_cents, quantity_received)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query,
		item.ID, item.POID, item.ProductID, item.QuantityOrdered, item.UnitPriceCents, item.QuantityReceived,
	)
	if err != nil {
		return fmt.Errorf("insert po item: %w", err)
	}
	return nil
}

// GetByID obtiene una línea verificando la empresa vía su orden.
func (r *POItemRepo) GetByID(ctx context.Context, id, companyID string) (*entity.POItem, error) {
	query := `
		SELECT i.id, i.po_id, i.product_id, i.quantity_ordered, i.unit_price_cents, i.quantity_received
		FROM po_items i
		JOIN purchase_orders po ON po.id = i.po_id
		WHERE i.id = $1 AND po.company_id = $2`
	var it entity.POItem
	err := r.q.QueryRow(ctx, query, id, companyID).Scan(
		&it.ID, &it.POID, &it.ProductID, &it.QuantityOrdered, &it.UnitPriceCents, &it.QuantityReceived,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get po item: %w", err)
	}
	return &it, nil
}

// ListByPO lista las líneas de una orden.
func (r *POItemRepo) ListByPO(ctx context.Context, poID string) ([]*entity.POItem, error) {
	query := `
		SELECT id, po_id, product_id, quantity_ordered, unit_price_cents, quantity_received
		FROM po_items WHERE po_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, poID)
	if err != nil {
		return nil, fmt.Errorf("list po items: %w", err)
	}
	defer rows.Close()
	var list []*entity.POItem
	for rows.Next() {
		var it entity.POItem
		if err := rows.Scan(&it.ID, &it.POID, &it.ProductID, &it.QuantityOrdered, &it.UnitPriceCents, &it.QuantityReceived); err != nil {
			return nil, fmt.Errorf("scan po item: %w", err)
		}
		list = append(list, &it)
	}
	return list, rows.Err()
}

// AddReceived acumula cantidad recibida; el WHERE garantiza que el acumulado
// nunca supere lo ordenado (cero filas => conflicto).
func (r *POItemRepo) AddReceived(ctx context.Context, id string, quantity int64) error {
	query := `
		UPDATE po_items SET quantity_received = quantity_received + $2
		WHERE id = $1 AND quantity_received + $2 <= quantity_ordered`
	cmd, err := r.q.Exec(ctx, query, id, quantity)
	if err != nil {
		return fmt.Errorf("add received: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrConcurrency
	}
	return nil
}

var _ repository.POPriceHistoryRepository = (*POPriceHistoryRepo)(nil)

// POPriceHistoryRepo historial de precios sobre PostgreSQL.
type POPriceHistoryRepo struct {
	q Querier
}

// NewPOPriceHistoryRepository construye el adaptador.
func NewPOPriceHistoryRepository(q Querier) *POPriceHistoryRepo {
	return &POPriceHistoryRepo{q: q}
}

// Create registra un precio histórico.
func (r *POPriceHistoryRepo) Create(ctx context.Context, h *entity.POPriceHistory) error {
	query := `
		INSERT INTO po_price_history (id, company_id, product_id, supplier_id, po_id, unit_price_cents, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		h.ID, h.CompanyID, h.ProductID, h.SupplierID, h.POID, h.UnitPriceCents, h.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert price history: %w", err)
	}
	return nil
}

// ListByProduct últimos precios registrados de un producto.
func (r *POPriceHistoryRepo) ListByProduct(ctx context.Context, companyID, productID string, limit int) ([]*entity.POPriceHistory, error) {
	query := `
		SELECT id, company_id, product_id, supplier_id, po_id, unit_price_cents, recorded_at
		FROM po_price_history
		WHERE company_id = $1 AND product_id = $2
		ORDER BY recorded_at DESC LIMIT $3`
	rows, err := r.q.Query(ctx, query, companyID, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("list price history: %w", err)
	}
	defer rows.Close()
	var list []*entity.POPriceHistory
	for rows.Next() {
		var h entity.POPriceHistory
		if err := rows.Scan(&h.ID, &h.CompanyID, &h.ProductID, &h.SupplierID, &h.POID, &h.UnitPriceCents, &h.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan price history: %w", err)
		}
		list = append(list, &h)
	}
	return list, rows.Err()
}

var _ repository.POSequenceRepository = (*POSequenceRepo)(nil)

// POSequenceRepo consecutivos de numeración de órdenes por empresa y año.
type POSequenceRepo struct {
	q Querier
}

// NewPOSequenceRepository construye el adaptador de consecutivos.
func NewPOSequenceRepository(q Querier) *POSequenceRepo {
	return &POSequenceRepo{q: q}
}

// Next incrementa y devuelve el consecutivo de (companyID, year) de forma
// atómica (upsert con RETURNING).
func (r *POSequenceRepo) Next(ctx context.Context, companyID string, year int) (int64, error) {
	query := `
		INSERT INTO po_sequences (company_id, year, current_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (company_id, year)
		DO UPDATE SET current_value = po_sequences.current_value + 1
		RETURNING current_value`
	var seq int64
	if err := r.q.QueryRow(ctx, query, companyID, year).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next po sequence: %w", err)
	}
	return seq, nil
}

// Exists indica si ya hay una orden con ese número en la empresa.
func (r *POSequenceRepo) Exists(ctx context.Context, poNumber, companyID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM purchase_orders WHERE po_number = $1 AND company_id = $2)`
	var exists bool
	if err := r.q.QueryRow(ctx, query, poNumber, companyID).Scan(&exists); err != nil {
		return false, fmt.Errorf("po number exists: %w", err)
	}
	return exists, nil
}
