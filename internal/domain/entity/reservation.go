package entity

import "time"

// InventoryReservation reserva blanda de stock en una ubicación, atada a un
// traslado. Única por (ProductID, LocationID, TransferID): reintentar el envío
// del mismo traslado no debe duplicar el reclamo.
type InventoryReservation struct {
	ID               string
	CompanyID        string
	TransferID       string
	ProductID        string
	LocationID       string
	QuantityReserved int64
	ReservedAt       time.Time
	ExpiresAt        time.Time
	ReleasedAt       *time.Time
}

// IsExpired función pura de now vs ExpiresAt; segura bajo lectores concurrentes.
func (r *InventoryReservation) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// IsActive la reserva cuenta para disponibilidad: no liberada y no vencida.
func (r *InventoryReservation) IsActive(now time.Time) bool {
	return r.ReleasedAt == nil && !r.IsExpired(now)
}
