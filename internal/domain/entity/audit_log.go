package entity

import "time"

// AuditDomain dominio de la entidad auditada.
type AuditDomain string

const (
	AuditDomainPurchaseOrder AuditDomain = "PURCHASE_ORDER"
	AuditDomainAllocation    AuditDomain = "ALLOCATION"
	AuditDomainTransfer      AuditDomain = "TRANSFER"
)

// Acciones de auditoría registradas por las máquinas de estados.
const (
	AuditActionCreated   = "CREATED"
	AuditActionApproved  = "APPROVED"
	AuditActionRejected  = "REJECTED"
	AuditActionShipped   = "SHIPPED"
	AuditActionReceived  = "RECEIVED"
	AuditActionCancelled = "CANCELLED"
)

// AuditLogEntry registro inmutable de "quién hizo qué sobre qué entidad".
// Solo se inserta; nunca se actualiza ni se borra. OldValues/NewValues son
// snapshots completos de la entidad serializados como JSON.
type AuditLogEntry struct {
	ID          string
	CompanyID   string
	Domain      AuditDomain
	SubjectID   string
	Action      string
	OldStatus   string
	NewStatus   string
	OldValues   []byte
	NewValues   []byte
	PerformedBy string
	PerformedAt time.Time
	Notes       string
}
