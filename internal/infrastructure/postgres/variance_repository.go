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

var _ repository.VarianceAlertRepository = (*VarianceAlertRepo)(nil)

// VarianceAlertRepo alertas de merma sobre PostgreSQL.
type VarianceAlertRepo struct {
	q Querier
}

// NewVarianceAlertRepository construye el adaptador de alertas.
func NewVarianceAlertRepository(q Querier) *VarianceAlertRepo {
	return &VarianceAlertRepo{q: q}
}

const alertColumns = `
	id, company_id, transfer_id, product_id, location_id,
	quantity_shipped, quantity_received, variance_units, variance_percent,
	severity, reason_code, notes, created_at, acknowledged_by, acknowledged_at`

func scanAlert(row pgx.Row) (*entity.VarianceAlert, error) {
	var a entity.VarianceAlert
	err := row.Scan(
		&a.ID, &a.CompanyID, &a.TransferID, &a.ProductID, &a.LocationID,
		&a.QuantityShipped, &a.QuantityReceived, &a.VarianceUnits, &a.VariancePercent,
		&a.Severity, &a.ReasonCode, &a.Notes, &a.CreatedAt, &a.AcknowledgedBy, &a.AcknowledgedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserta una alerta.
func (r *VarianceAlertRepo) Create(ctx context.Context, a *entity.VarianceAlert) error {
	query := `
		INSERT INTO variance_alerts (
			id, company_id, transfer_id, product_id, location_id,
			quantity_shipped, quantity_received, variance_units, variance_percent,
			severity, reason_code, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		a.ID, a.CompanyID, a.TransferID, a.ProductID, a.LocationID,
		a.QuantityShipped, a.QuantityReceived, a.VarianceUnits, a.VariancePercent,
		a.Severity, a.ReasonCode, a.Notes, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert variance alert: %w", err)
	}
	return nil
}

// GetByID obtiene una alerta bajo (id, companyID).
func (r *VarianceAlertRepo) GetByID(ctx context.Context, id, companyID string) (*entity.VarianceAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM variance_alerts WHERE id = $1 AND company_id = $2`
	a, err := scanAlert(r.q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get variance alert: %w", err)
	}
	return a, nil
}

// Acknowledge única mutación permitida; cero filas (inexistente o ya
// reconocida) => domain.ErrNotFound.
func (r *VarianceAlertRepo) Acknowledge(ctx context.Context, id, companyID, by string, at time.Time) error {
	query := `
		UPDATE variance_alerts SET acknowledged_by = $3, acknowledged_at = $4
		WHERE id = $1 AND company_id = $2 AND acknowledged_at IS NULL`
	cmd, err := r.q.Exec(ctx, query, id, companyID, by, at)
	if err != nil {
		return fmt.Errorf("acknowledge variance alert: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountRecent eventos de merma del producto+ubicación desde una fecha.
func (r *VarianceAlertRepo) CountRecent(ctx context.Context, companyID, productID, locationID string, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM variance_alerts
		WHERE company_id = $1 AND product_id = $2 AND location_id = $3 AND created_at >= $4`
	var n int64
	if err := r.q.QueryRow(ctx, query, companyID, productID, locationID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count recent variances: %w", err)
	}
	return n, nil
}

// ListOpen alertas sin reconocer, más recientes primero.
func (r *VarianceAlertRepo) ListOpen(ctx context.Context, companyID string, limit, offset int) ([]*entity.VarianceAlert, error) {
	query := `SELECT ` + alertColumns + `
		FROM variance_alerts
		WHERE company_id = $1 AND acknowledged_at IS NULL
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list open alerts: %w", err)
	}
	defer rows.Close()
	var list []*entity.VarianceAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan variance alert: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// Summarize agrega mermas por producto+ubicación en un rango. La peor
// severidad se resuelve ordenando por el ranking fijo de severidades.
func (r *VarianceAlertRepo) Summarize(ctx context.Context, companyID string, from, to time.Time) ([]*entity.VarianceSummary, error) {
	query := `
		SELECT company_id, product_id, location_id,
		       COUNT(*), SUM(variance_units),
		       MAX(CASE severity
		           WHEN 'CRITICAL' THEN 4 WHEN 'HIGH' THEN 3
		           WHEN 'MEDIUM' THEN 2 ELSE 1 END),
		       MIN(created_at), MAX(created_at)
		FROM variance_alerts
		WHERE company_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY company_id, product_id, location_id
		ORDER BY SUM(variance_units) DESC`
	rows, err := r.q.Query(ctx, query, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("summarize variances: %w", err)
	}
	defer rows.Close()
	ranks := map[int]entity.VarianceSeverity{
		1: entity.SeverityLow, 2: entity.SeverityMedium,
		3: entity.SeverityHigh, 4: entity.SeverityCritical,
	}
	var list []*entity.VarianceSummary
	for rows.Next() {
		var s entity.VarianceSummary
		var rank int
		if err := rows.Scan(
			&s.CompanyID, &s.ProductID, &s.LocationID,
			&s.EventCount, &s.UnitsLost, &rank,
			&s.FirstEventAt, &s.LatestEventAt,
		); err != nil {
			return nil, fmt.Errorf("scan variance summary: %w", err)
		}
		s.WorstSeverity = ranks[rank]
		list = append(list, &s)
	}
	return list, rows.Err()
}

var _ repository.VarianceReasonCodeRepository = (*VarianceReasonCodeRepo)(nil)

// VarianceReasonCodeRepo códigos de razón personalizados por empresa.
type VarianceReasonCodeRepo struct {
	q Querier
}

// NewVarianceReasonCodeRepository construye el adaptador.
func NewVarianceReasonCodeRepository(q Querier) *VarianceReasonCodeRepo {
	return &VarianceReasonCodeRepo{q: q}
}

// Create registra un código nuevo; duplicado => domain.ErrDuplicate.
func (r *VarianceReasonCodeRepo) Create(ctx context.Context, c *entity.VarianceReasonCode) error {
	query := `
		INSERT INTO variance_reason_codes (id, company_id, code, description, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query, c.ID, c.CompanyID, c.Code, c.Description, c.CreatedBy, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert reason code: %w", err)
	}
	return nil
}

// ListByCompany códigos personalizados de la empresa.
func (r *VarianceReasonCodeRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.VarianceReasonCode, error) {
	query := `
		SELECT id, company_id, code, description, created_by, created_at
		FROM variance_reason_codes WHERE company_id = $1 ORDER BY code`
	rows, err := r.q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list reason codes: %w", err)
	}
	defer rows.Close()
	var list []*entity.VarianceReasonCode
	for rows.Next() {
		var c entity.VarianceReasonCode
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Code, &c.Description, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reason code: %w", err)
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}
