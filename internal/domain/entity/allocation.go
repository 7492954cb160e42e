package entity

import "time"

// AllocationStatus estado de una asignación de línea de compra a ubicación.
type AllocationStatus string

const (
	AllocationStatusPending           AllocationStatus = "PENDING"
	AllocationStatusAllocated         AllocationStatus = "ALLOCATED"
	AllocationStatusPartiallyReceived AllocationStatus = "PARTIALLY_RECEIVED"
	AllocationStatusReceived          AllocationStatus = "RECEIVED"
	AllocationStatusCancelled         AllocationStatus = "CANCELLED"
)

var allocationTransitions = map[AllocationStatus][]AllocationStatus{
	AllocationStatusPending:           {AllocationStatusAllocated, AllocationStatusCancelled},
	AllocationStatusAllocated:         {AllocationStatusPartiallyReceived, AllocationStatusReceived, AllocationStatusCancelled},
	AllocationStatusPartiallyReceived: {AllocationStatusPartiallyReceived, AllocationStatusReceived},
	AllocationStatusReceived:          {},
	AllocationStatusCancelled:         {},
}

// IsValid indica si el valor pertenece al enum.
func (s AllocationStatus) IsValid() bool {
	_, ok := allocationTransitions[s]
	return ok
}

// IsTerminal indica si el estado no admite más transiciones.
func (s AllocationStatus) IsTerminal() bool {
	return len(allocationTransitions[s]) == 0 && s.IsValid()
}

// CanTransitionTo consulta pura sobre la tabla de transiciones.
func (s AllocationStatus) CanTransitionTo(target AllocationStatus) bool {
	for _, t := range allocationTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// CountsTowardTotal indica si la asignación suma contra QuantityOrdered.
// Las canceladas liberan su cupo; nunca se descuenta en silencio, se excluyen.
func (s AllocationStatus) CountsTowardTotal() bool {
	return s != AllocationStatusCancelled
}

func (s AllocationStatus) String() string { return string(s) }

// Allocation porción comprometida de una línea de compra hacia una ubicación destino.
// Invariante: Σ QuantityAllocated de asignaciones no canceladas ≤ POItem.QuantityOrdered.
type Allocation struct {
	ID                string
	CompanyID         string
	POItemID          string
	TargetLocationID  string
	QuantityAllocated int64
	QuantityReceived  int64
	Status            AllocationStatus
	Version           int64
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AllocationStrategy estrategia para repartir una línea entre ubicaciones.
type AllocationStrategy string

const (
	StrategyPercentage  AllocationStrategy = "PERCENTAGE"
	StrategyFixedAmount AllocationStrategy = "FIXED_AMOUNT"
	StrategyTemplate    AllocationStrategy = "TEMPLATE"
	StrategyManual      AllocationStrategy = "MANUAL"
)

// IsValid indica si la estrategia es conocida.
func (s AllocationStrategy) IsValid() bool {
	switch s {
	case StrategyPercentage, StrategyFixedAmount, StrategyTemplate, StrategyManual:
		return true
	}
	return false
}
