package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Compras-api/internal/domain/entity"
	"github.com/jhoicas/Compras-api/internal/domain/repository"
)

var _ repository.AuditLogRepository = (*AuditLogRepo)(nil)

// AuditLogRepo rastro de auditoría sobre PostgreSQL. Solo INSERT y SELECT:
// la tabla no se actualiza ni se borra desde la aplicación.
type AuditLogRepo struct {
	q Querier
}

// NewAuditLogRepository construye el adaptador de auditoría.
func NewAuditLogRepository(q Querier) *AuditLogRepo {
	return &AuditLogRepo{q: q}
}

// Create inserta una entrada de auditoría.
func (r *AuditLogRepo) Create(ctx context.Context, e *entity.AuditLogEntry) error {
	query := `
		INSERT INTO audit_log (
			id, company_id, domain, subject_id, action,
			old_status, new_status, old_values, new_values,
			performed_by, performed_at, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.CompanyID, e.Domain, e.SubjectID, e.Action,
		e.OldStatus, e.NewStatus, e.OldValues, e.NewValues,
		e.PerformedBy, e.PerformedAt, e.Notes,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListBySubject historial de una entidad, más reciente primero.
func (r *AuditLogRepo) ListBySubject(ctx context.Context, dom entity.AuditDomain, subjectID, companyID string, limit, offset int) ([]*entity.AuditLogEntry, error) {
	query := `
		SELECT id, company_id, domain, subject_id, action,
		       old_status, new_status, old_values, new_values,
		       performed_by, performed_at, notes
		FROM audit_log
		WHERE domain = $1 AND subject_id = $2 AND company_id = $3
		ORDER BY performed_at DESC LIMIT $4 OFFSET $5`
	rows, err := r.q.Query(ctx, query, dom, subjectID, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()
	var list []*entity.AuditLogEntry
	for rows.Next() {
		var e entity.AuditLogEntry
		if err := rows.Scan(
			&e.ID, &e.CompanyID, &e.Domain, &e.SubjectID, &e.Action,
			&e.OldStatus, &e.NewStatus, &e.OldValues, &e.NewValues,
			&e.PerformedBy, &e.PerformedAt, &e.Notes,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
