package entity

import "time"

// VarianceSeverity severidad de una alerta de merma.
type VarianceSeverity string

const (
	SeverityLow      VarianceSeverity = "LOW"
	SeverityMedium   VarianceSeverity = "MEDIUM"
	SeverityHigh     VarianceSeverity = "HIGH"
	SeverityCritical VarianceSeverity = "CRITICAL"
)

// severityOrder para escalamiento de patrones repetidos.
var severityOrder = []VarianceSeverity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Escalate sube la severidad un nivel (CRITICAL se mantiene).
func (s VarianceSeverity) Escalate() VarianceSeverity {
	for i, sev := range severityOrder {
		if sev == s && i < len(severityOrder)-1 {
			return severityOrder[i+1]
		}
	}
	return s
}

// Códigos de razón de varianza (taxonomía fija; ver VarianceReasonCode para
// extensiones por empresa).
const (
	ReasonDamage           = "DAMAGE"
	ReasonSpoilage         = "SPOILAGE"
	ReasonTheft            = "THEFT"
	ReasonMeasurementError = "MEASUREMENT_ERROR"
	ReasonPackagingLoss    = "PACKAGING_LOSS"
	ReasonOther            = "OTHER"
)

// BuiltinReasonCodes devuelve la taxonomía fija de códigos de razón.
func BuiltinReasonCodes() []string {
	return []string{
		ReasonDamage, ReasonSpoilage, ReasonTheft,
		ReasonMeasurementError, ReasonPackagingLoss, ReasonOther,
	}
}

// VarianceReasonCode código de razón adicional definido por la empresa.
// Persistido, no en memoria de proceso.
type VarianceReasonCode struct {
	ID          string
	CompanyID   string
	Code        string
	Description string
	CreatedBy   string
	CreatedAt   time.Time
}

// VarianceAlert alerta generada al recibir un traslado con merma.
// Solo mutable vía acknowledge.
type VarianceAlert struct {
	ID               string
	CompanyID        string
	TransferID       string
	ProductID        string
	LocationID       string
	QuantityShipped  int64
	QuantityReceived int64
	VarianceUnits    int64
	VariancePercent  float64
	Severity         VarianceSeverity
	ReasonCode       string
	Notes            string
	CreatedAt        time.Time
	AcknowledgedBy   *string
	AcknowledgedAt   *time.Time
}

// VarianceSummary agregado de mermas por producto+ubicación en un rango.
type VarianceSummary struct {
	CompanyID      string
	ProductID      string
	LocationID     string
	EventCount     int64
	UnitsLost      int64
	WorstSeverity  VarianceSeverity
	FirstEventAt   time.Time
	LatestEventAt  time.Time
}
