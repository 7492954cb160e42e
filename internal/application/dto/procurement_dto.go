package dto

import "github.com/shopspring/decimal"

// CreatePurchaseOrderRequest alta de una orden de compra en DRAFT.
type CreatePurchaseOrderRequest struct {
	SupplierID string                `validate:"required"`
	Items      []CreatePOItemRequest `validate:"dive"`
}

// CreatePOItemRequest línea de la orden.
type CreatePOItemRequest struct {
	ProductID       string `validate:"required"`
	QuantityOrdered int64  `validate:"required,gt=0"`
	UnitPriceCents  int64  `validate:"gte=0"`
}

// POTransitionRequest solicitud de transición de una orden de compra.
type POTransitionRequest struct {
	POID         string `validate:"required"`
	TargetStatus string `validate:"required,oneof=APPROVED RECEIVED CANCELLED"`
	Reason       string // obligatorio al cancelar desde APPROVED
}

// CreateTransferRequest solicitud de traslado entre ubicaciones.
type CreateTransferRequest struct {
	ProductID             string `validate:"required"`
	SourceLocationID      string `validate:"required"`
	DestinationLocationID string `validate:"required,nefield=SourceLocationID"`
	QuantityRequested     int64  `validate:"required,gt=0"`
	Priority              string `validate:"omitempty,oneof=NORMAL HIGH EMERGENCY"`
}

// ShippingData datos de despacho de un traslado.
type ShippingData struct {
	QuantityShipped int64 `validate:"required,gt=0"`
}

// ReceivingData datos de recepción de un traslado.
type ReceivingData struct {
	QuantityReceived int64  `validate:"gte=0"`
	VarianceReason   string // advertencia si falta habiendo merma; no bloquea
	Notes            string
}

// AllocationRequest nueva asignación manual contra una línea.
type AllocationRequest struct {
	POItemID         string `validate:"required"`
	TargetLocationID string `validate:"required"`
	Quantity         int64  `validate:"required,gt=0"`
}

// PercentageLine porcentaje solicitado por ubicación para un reparto.
type PercentageLine struct {
	LocationID string          `validate:"required"`
	Percent    decimal.Decimal `validate:"required"`
}
