package entity

import "time"

// Location bodega o punto de venta de una empresa; origen/destino de
// asignaciones y traslados.
type Location struct {
	ID        string
	CompanyID string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StockLevel existencias físicas de un producto en una ubicación.
// La disponibilidad real descuenta reservas activas y traslados en tránsito.
type StockLevel struct {
	ProductID  string
	LocationID string
	CompanyID  string
	OnHand     int64
	UpdatedAt  time.Time
}
