package ports

import "context"

// Event notificación de negocio emitida por las máquinas de estados.
type Event struct {
	Kind      string // po.approved, transfer.received, variance.alert, ...
	CompanyID string
	SubjectID string
	Message   string
	Data      map[string]string
}

// Notifier sink de notificaciones fire-and-forget. Un fallo del sink NUNCA
// debe fallar la transición que lo disparó: el caller registra y sigue.
type Notifier interface {
	Notify(ctx context.Context, recipient string, event Event) error
}
