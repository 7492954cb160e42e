package repository

import (
	"context"

	"github.com/jhoicas/Compras-api/internal/domain/entity"
)

// AuditLogRepository puerto append-only para el rastro de auditoría.
// No expone Update ni Delete a propósito.
type AuditLogRepository interface {
	Create(ctx context.Context, e *entity.AuditLogEntry) error
	ListBySubject(ctx context.Context, domain entity.AuditDomain, subjectID, companyID string, limit, offset int) ([]*entity.AuditLogEntry, error)
}
