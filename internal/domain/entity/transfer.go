package entity

import "time"

// TransferStatus estado de un traslado entre ubicaciones.
type TransferStatus string

const (
	TransferStatusRequested TransferStatus = "REQUESTED"
	TransferStatusApproved  TransferStatus = "APPROVED"
	TransferStatusShipped   TransferStatus = "SHIPPED"
	TransferStatusReceived  TransferStatus = "RECEIVED"
	TransferStatusCancelled TransferStatus = "CANCELLED"
)

// transferTransitions tabla única de transiciones. Un traslado SHIPPED no se
// puede cancelar: la merma se resuelve recibiendo y registrando la varianza.
var transferTransitions = map[TransferStatus][]TransferStatus{
	TransferStatusRequested: {TransferStatusApproved, TransferStatusCancelled},
	TransferStatusApproved:  {TransferStatusShipped, TransferStatusCancelled},
	TransferStatusShipped:   {TransferStatusReceived},
	TransferStatusReceived:  {},
	TransferStatusCancelled: {},
}

// IsValid indica si el valor pertenece al enum.
func (s TransferStatus) IsValid() bool {
	_, ok := transferTransitions[s]
	return ok
}

// IsTerminal indica si el estado no admite más transiciones.
func (s TransferStatus) IsTerminal() bool {
	return len(transferTransitions[s]) == 0 && s.IsValid()
}

// CanTransitionTo consulta pura sobre la tabla de transiciones.
func (s TransferStatus) CanTransitionTo(target TransferStatus) bool {
	for _, t := range transferTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// AllowedTransitions devuelve una copia de los destinos permitidos desde s.
func (s TransferStatus) AllowedTransitions() []TransferStatus {
	out := make([]TransferStatus, len(transferTransitions[s]))
	copy(out, transferTransitions[s])
	return out
}

func (s TransferStatus) String() string { return string(s) }

// TransferPriority prioridad de un traslado.
type TransferPriority string

const (
	PriorityNormal    TransferPriority = "NORMAL"
	PriorityHigh      TransferPriority = "HIGH"
	PriorityEmergency TransferPriority = "EMERGENCY"
)

// IsValid indica si la prioridad es conocida.
func (p TransferPriority) IsValid() bool {
	switch p {
	case PriorityNormal, PriorityHigh, PriorityEmergency:
		return true
	}
	return false
}

// Transfer traslado de inventario entre dos ubicaciones de la misma empresa.
// Invariantes: QuantityShipped ≤ QuantityRequested; QuantityReceived ≤ QuantityShipped.
type Transfer struct {
	ID                    string
	CompanyID             string
	ProductID             string
	SourceLocationID      string
	DestinationLocationID string
	QuantityRequested     int64
	QuantityShipped       int64
	QuantityReceived      int64
	Status                TransferStatus
	Priority              TransferPriority
	Version               int64
	RequestedBy           string
	RequestedAt           time.Time
	ApprovedBy            *string
	ApprovedAt            *time.Time
	ShippedBy             *string
	ShippedAt             *time.Time
	ReceivedBy            *string
	ReceivedAt            *time.Time
	CancelledBy           *string
	CancelledAt           *time.Time
	CancelReason          string
	VarianceReason        string
	UpdatedAt             time.Time
}

// Variance merma del traslado: enviado menos recibido. Solo tiene sentido
// después de recibir.
func (t *Transfer) Variance() int64 {
	return t.QuantityShipped - t.QuantityReceived
}
