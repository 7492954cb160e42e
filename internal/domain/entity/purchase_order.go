package entity

import "time"

// POStatus estado de una orden de compra (enum cerrado).
type POStatus string

const (
	POStatusDraft     POStatus = "DRAFT"
	POStatusApproved  POStatus = "APPROVED"
	POStatusReceived  POStatus = "RECEIVED"
	POStatusCancelled POStatus = "CANCELLED"
)

// poTransitions tabla única de transiciones permitidas. Tanto la máquina de
// estados como ConstraintSolver derivan de esta tabla para que nunca diverjan.
var poTransitions = map[POStatus][]POStatus{
	POStatusDraft:     {POStatusApproved, POStatusCancelled},
	POStatusApproved:  {POStatusReceived, POStatusCancelled},
	POStatusReceived:  {},
	POStatusCancelled: {},
}

// IsValid indica si el valor pertenece al enum.
func (s POStatus) IsValid() bool {
	_, ok := poTransitions[s]
	return ok
}

// IsTerminal indica si el estado no admite más transiciones.
func (s POStatus) IsTerminal() bool {
	return len(poTransitions[s]) == 0 && s.IsValid()
}

// CanTransitionTo consulta pura sobre la tabla de transiciones (idempotente, sin efectos).
func (s POStatus) CanTransitionTo(target POStatus) bool {
	for _, t := range poTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// AllowedTransitions devuelve una copia de los destinos permitidos desde s.
func (s POStatus) AllowedTransitions() []POStatus {
	out := make([]POStatus, len(poTransitions[s]))
	copy(out, poTransitions[s])
	return out
}

func (s POStatus) String() string { return string(s) }

// PurchaseOrder orden de compra (pertenece a una Company).
// PONumber es nil hasta la aprobación; se asigna exactamente una vez.
type PurchaseOrder struct {
	ID             string
	CompanyID      string
	SupplierID     string
	PONumber       *string
	Status         POStatus
	TotalCostCents int64
	Version        int64 // compare-and-swap en cada transición
	Items          []*POItem
	CreatedBy      string
	CreatedAt      time.Time
	ApprovedBy     *string
	ApprovedAt     *time.Time
	ReceivedBy     *string
	ReceivedAt     *time.Time
	CancelledBy    *string
	CancelledAt    *time.Time
	CancelReason   string
	UpdatedAt      time.Time
}

// POItem línea de una orden de compra.
// QuantityReceived es acumulador: nunca supera QuantityOrdered.
type POItem struct {
	ID               string
	POID             string
	ProductID        string
	QuantityOrdered  int64
	UnitPriceCents   int64
	QuantityReceived int64
}

// POPriceHistory precio histórico registrado al aprobar una orden.
type POPriceHistory struct {
	ID             string
	CompanyID      string
	ProductID      string
	SupplierID     string
	POID           string
	UnitPriceCents int64
	RecordedAt     time.Time
}
