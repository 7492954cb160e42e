package variance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Compras-api/internal/application/ports"
	"github.com/jhoicas/Compras-api/internal/domain"
	"github.com/jhoicas/Compras-api/internal/domain/entity"
	"github.com/jhoicas/Compras-api/internal/domain/repository"
	"github.com/jhoicas/Compras-api/pkg/clock"
	"github.com/jhoicas/Compras-api/pkg/logger"
)

// Umbrales fijos de severidad.
var (
	criticalPct = decimal.NewFromInt(25)
	highPct     = decimal.NewFromInt(10)
	mediumPct   = decimal.NewFromInt(5)
)

// HighAbsoluteUnits mermas de 50 unidades o más son HIGH aunque el porcentaje
// sea bajo.
const HighAbsoluteUnits = 50

// PatternWindow ventana móvil para detectar mermas repetidas.
const PatternWindow = 30 * 24 * time.Hour

// PatternThreshold eventos de merma (incluido el actual) en la ventana que
// disparan el escalamiento.
const PatternThreshold = 3

// ClassifySeverity función pura de clasificación por umbrales fijos.
func ClassifySeverity(quantityShipped, varianceUnits int64) entity.VarianceSeverity {
	if quantityShipped <= 0 || varianceUnits <= 0 {
		return entity.SeverityLow
	}
	pct := decimal.NewFromInt(varianceUnits).Div(decimal.NewFromInt(quantityShipped)).Mul(decimal.NewFromInt(100))
	switch {
	case pct.GreaterThanOrEqual(criticalPct):
		return entity.SeverityCritical
	case pct.GreaterThanOrEqual(highPct) || varianceUnits >= HighAbsoluteUnits:
		return entity.SeverityHigh
	case pct.GreaterThanOrEqual(mediumPct):
		return entity.SeverityMedium
	default:
		return entity.SeverityLow
	}
}

// Service agrega mermas enviado-vs-recibido en alertas con severidad,
// detecta patrones repetidos por producto+ubicación y escala un nivel.
// Las alertas solo mutan vía Acknowledge.
type Service struct {
	alertRepo  repository.VarianceAlertRepository
	reasonRepo repository.VarianceReasonCodeRepository
	notifier   ports.Notifier
	clk        clock.Clock
	ids        clock.IDGenerator
	log        *logger.Logger
}

// NewService construye el servicio de reportes de varianza.
func NewService(
	alertRepo repository.VarianceAlertRepository,
	reasonRepo repository.VarianceReasonCodeRepository,
	notifier ports.Notifier,
	clk clock.Clock,
	ids clock.IDGenerator,
	log *logger.Logger,
) *Service {
	return &Service{
		alertRepo:  alertRepo,
		reasonRepo: reasonRepo,
		notifier:   notifier,
		clk:        clk,
		ids:        ids,
		log:        log,
	}
}

// EvaluateShrinkage clasifica una recepción con merma, escala si hay patrón
// repetido y persiste la alerta. La notificación es best-effort.
func (s *Service) EvaluateShrinkage(ctx context.Context, t *entity.Transfer, reasonCode, notes string) (*entity.VarianceAlert, error) {
	varianceUnits := t.Variance()
	if varianceUnits <= 0 {
		return nil, nil
	}

	if reasonCode != "" {
		ok, err := s.IsValidReason(ctx, t.CompanyID, reasonCode)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &domain.ValidationError{Field: "reasonCode", Message: "código de razón desconocido: " + reasonCode}
		}
	}

	now := s.clk.Now()
	severity := ClassifySeverity(t.QuantityShipped, varianceUnits)

	// Patrón repetido: ≥3 mermas del mismo producto+ubicación en 30 días
	// (contando esta) sube la severidad un nivel.
	since := now.Add(-PatternWindow)
	prior, err := s.alertRepo.CountRecent(ctx, t.CompanyID, t.ProductID, t.SourceLocationID, since)
	if err != nil {
		return nil, err
	}
	if prior+1 >= PatternThreshold {
		severity = severity.Escalate()
		note := fmt.Sprintf("patrón repetido: %d mermas de %s en %s en los últimos 30 días",
			prior+1, t.ProductID, t.SourceLocationID)
		if notes == "" {
			notes = note
		} else {
			notes = notes + "; " + note
		}
	}

	pct := decimal.NewFromInt(varianceUnits).
		Div(decimal.NewFromInt(t.QuantityShipped)).
		Mul(decimal.NewFromInt(100)).Round(2)

	alert := &entity.VarianceAlert{
		ID:               s.ids.NewID(),
		CompanyID:        t.CompanyID,
		TransferID:       t.ID,
		ProductID:        t.ProductID,
		LocationID:       t.SourceLocationID,
		QuantityShipped:  t.QuantityShipped,
		QuantityReceived: t.QuantityReceived,
		VarianceUnits:    varianceUnits,
		VariancePercent:  pct.InexactFloat64(),
		Severity:         severity,
		ReasonCode:       reasonCode,
		Notes:            notes,
		CreatedAt:        now,
	}
	if err := s.alertRepo.Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("crear alerta de varianza: %w", err)
	}

	event := ports.Event{
		Kind:      "variance.alert",
		CompanyID: t.CompanyID,
		SubjectID: alert.ID,
		Message: fmt.Sprintf("merma de %d unidades (%.2f%%) en traslado %s, severidad %s",
			varianceUnits, alert.VariancePercent, t.ID, severity),
		Data: map[string]string{"transferId": t.ID, "severity": string(severity)},
	}
	if err := s.notifier.Notify(ctx, t.RequestedBy, event); err != nil {
		s.log.Warn().Err(err).Str("alert_id", alert.ID).Msg("notificación de varianza fallida (ignorada)")
	}
	return alert, nil
}

// Acknowledge única mutación permitida sobre una alerta.
func (s *Service) Acknowledge(ctx context.Context, companyID, alertID, by string) error {
	return s.alertRepo.Acknowledge(ctx, alertID, companyID, by, s.clk.Now())
}

// IsValidReason acepta la taxonomía fija o un código personalizado de la empresa.
func (s *Service) IsValidReason(ctx context.Context, companyID, code string) (bool, error) {
	for _, c := range entity.BuiltinReasonCodes() {
		if c == code {
			return true, nil
		}
	}
	custom, err := s.reasonRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return false, err
	}
	for _, c := range custom {
		if c.Code == code {
			return true, nil
		}
	}
	return false, nil
}

// AddReasonCode registra un código de razón personalizado (persistido, por empresa).
func (s *Service) AddReasonCode(ctx context.Context, companyID, userID, code, description string) (*entity.VarianceReasonCode, error) {
	if code == "" {
		return nil, &domain.ValidationError{Field: "code", Message: "código requerido"}
	}
	for _, c := range entity.BuiltinReasonCodes() {
		if c == code {
			return nil, &domain.ValidationError{Field: "code", Message: "el código ya pertenece a la taxonomía fija"}
		}
	}
	rc := &entity.VarianceReasonCode{
		ID:          s.ids.NewID(),
		CompanyID:   companyID,
		Code:        code,
		Description: description,
		CreatedBy:   userID,
		CreatedAt:   s.clk.Now(),
	}
	if err := s.reasonRepo.Create(ctx, rc); err != nil {
		return nil, err
	}
	return rc, nil
}

// Summarize agregado de mermas por producto+ubicación en un rango de fechas.
func (s *Service) Summarize(ctx context.Context, companyID string, from, to time.Time) ([]*entity.VarianceSummary, error) {
	return s.alertRepo.Summarize(ctx, companyID, from, to)
}
