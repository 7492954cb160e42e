package constraint

import (
	"fmt"

	"github.com/jhoicas/Compras-api/internal/domain"
	"github.com/jhoicas/Compras-api/internal/domain/entity"
)

// Códigos de violación usados por el solver.
const (
	CodeBusinessRule   = "BUSINESS_RULE"
	CodeOverAllocation = "OVER_ALLOCATION"
	CodeAccess         = "ACCESS"
)

// LargeQuantityThreshold cantidades por encima de este umbral generan
// advertencia de rendimiento (no rechazo).
const LargeQuantityThreshold = 10_000

// Operaciones expuestas por estado (derivadas de las tablas de transición de
// entity; ver AllowedAllocationOperations y AllowedTransferOperations).
const (
	OpAllocate = "allocate"
	OpApprove  = "approve"
	OpShip     = "ship"
	OpReceive  = "receive"
	OpCancel   = "cancel"
)

// CheckQuantity reglas de cantidad: ≤0 es violación BUSINESS_RULE; cantidades
// muy grandes producen advertencia, no rechazo.
func CheckQuantity(field string, quantity int64) (violations, warnings []domain.Violation) {
	if quantity <= 0 {
		violations = append(violations, domain.Violation{
			Code:    CodeBusinessRule,
			Field:   field,
			Message: fmt.Sprintf("%s debe ser mayor que cero (recibido %d)", field, quantity),
		})
		return
	}
	if quantity > LargeQuantityThreshold {
		warnings = append(warnings, domain.Violation{
			Code:    CodeBusinessRule,
			Field:   field,
			Message: fmt.Sprintf("%s=%d supera el umbral de %d unidades; revisar posible impacto de rendimiento", field, quantity, LargeQuantityThreshold),
		})
	}
	return
}

// AllowedAllocationOperations operaciones permitidas por estado de asignación.
// Derivado de la tabla de transiciones de entity.AllocationStatus: un estado
// terminal devuelve el conjunto vacío. No hay una segunda tabla que pueda
// divergir de la máquina de estados.
func AllowedAllocationOperations(s entity.AllocationStatus) []string {
	var ops []string
	if s.CanTransitionTo(entity.AllocationStatusAllocated) {
		ops = append(ops, OpAllocate)
	}
	if s.CanTransitionTo(entity.AllocationStatusPartiallyReceived) || s.CanTransitionTo(entity.AllocationStatusReceived) {
		ops = append(ops, OpReceive)
	}
	if s.CanTransitionTo(entity.AllocationStatusCancelled) {
		ops = append(ops, OpCancel)
	}
	return ops
}

// AllowedTransferOperations operaciones permitidas por estado de traslado,
// derivadas de la tabla de entity.TransferStatus.
func AllowedTransferOperations(s entity.TransferStatus) []string {
	var ops []string
	if s.CanTransitionTo(entity.TransferStatusApproved) {
		ops = append(ops, OpApprove)
	}
	if s.CanTransitionTo(entity.TransferStatusShipped) {
		ops = append(ops, OpShip)
	}
	if s.CanTransitionTo(entity.TransferStatusReceived) {
		ops = append(ops, OpReceive)
	}
	if s.CanTransitionTo(entity.TransferStatusCancelled) {
		ops = append(ops, OpCancel)
	}
	return ops
}

// CheckLocationAccess admin y manager pasan sin chequeo de ubicación; staff
// solo puede operar sobre su ubicación asignada.
func CheckLocationAccess(user *entity.User, locationID string) []domain.Violation {
	if user == nil {
		return []domain.Violation{{
			Code:    CodeAccess,
			Field:   "user",
			Message: "usuario no encontrado para chequeo de acceso",
		}}
	}
	if user.CanAccessLocation(locationID) {
		return nil
	}
	return []domain.Violation{{
		Code:  CodeAccess,
		Field: "locationId",
		Message: fmt.Sprintf("el usuario %s (staff de %s) no puede operar sobre la ubicación %s",
			user.ID, user.LocationID, locationID),
	}}
}
