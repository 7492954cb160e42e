package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/Compras-api/internal/application/dto"
	"github.com/jhoicas/Compras-api/internal/application/ports"
	"github.com/jhoicas/Compras-api/internal/domain"
	"github.com/jhoicas/Compras-api/internal/domain/constraint"
	"github.com/jhoicas/Compras-api/internal/domain/entity"
	"github.com/jhoicas/Compras-api/internal/domain/repository"
	"github.com/jhoicas/Compras-api/pkg/clock"
	"github.com/jhoicas/Compras-api/pkg/logger"
	"github.com/jhoicas/Compras-api/pkg/validator"
)

// Código de violación para transiciones ilegales reportadas por Validate.
const CodeStateTransition = "STATE_TRANSITION"

// TransitionInput datos de la transición: quién, motivo, y las cantidades de
// despacho o recepción según el destino.
type TransitionInput struct {
	CompanyID string
	UserID    string
	Reason    string
	Shipping  *dto.ShippingData  // requerido para SHIPPED
	Receiving *dto.ReceivingData // requerido para RECEIVED
}

// StateMachine máquina de estados de traslados:
// REQUESTED → APPROVED → SHIPPED → RECEIVED, con CANCELLED desde REQUESTED o
// APPROVED. Un traslado despachado no se cancela: la merma se resuelve
// recibiendo y reportando la varianza.
type StateMachine struct {
	txRunner     TxRunner
	transferRepo repository.TransferRepository
	userRepo     repository.UserRepository
	reservations *ReservationManager
	varianceSvc  VarianceEvaluator
	notifier     ports.Notifier
	clk          clock.Clock
	ids          clock.IDGenerator
	log          *logger.Logger
	ttl          time.Duration
}

// NewStateMachine construye la máquina de estados de traslados.
// ttl acota la vigencia de la reserva creada al despachar.
func NewStateMachine(
	txRunner TxRunner,
	transferRepo repository.TransferRepository,
	userRepo repository.UserRepository,
	reservations *ReservationManager,
	varianceSvc VarianceEvaluator,
	notifier ports.Notifier,
	clk clock.Clock,
	ids clock.IDGenerator,
	log *logger.Logger,
	ttl time.Duration,
) *StateMachine {
	return &StateMachine{
		txRunner:     txRunner,
		transferRepo: transferRepo,
		userRepo:     userRepo,
		reservations: reservations,
		varianceSvc:  varianceSvc,
		notifier:     notifier,
		clk:          clk,
		ids:          ids,
		log:          log,
		ttl:          ttl,
	}
}

// CanTransition consulta pura de la tabla de transiciones.
func (m *StateMachine) CanTransition(from, to entity.TransferStatus) bool {
	return from.CanTransitionTo(to)
}

// Request da de alta un traslado en REQUESTED. Verifica cantidades, acceso del
// solicitante a la ubicación origen y disponibilidad (existencias menos
// reservas activas menos tránsito).
func (m *StateMachine) Request(ctx context.Context, companyID, userID string, in dto.CreateTransferRequest) (*entity.Transfer, *domain.ValidationResult, error) {
	if errs := validator.ValidateStruct(in); len(errs) > 0 {
		return nil, nil, &domain.ValidationError{Field: errs[0].FailedField, Message: "validación fallida: " + errs[0].Tag}
	}

	result := domain.NewValidationResult()
	violations, warnings := constraint.CheckQuantity("quantityRequested", in.QuantityRequested)
	result.Errors = append(result.Errors, violations...)
	result.Warnings = append(result.Warnings, warnings...)
	if len(violations) > 0 {
		result.Valid = false
	}

	user, err := m.userRepo.GetByID(ctx, userID, companyID)
	if err != nil {
		return nil, nil, err
	}
	if acc := constraint.CheckLocationAccess(user, in.SourceLocationID); len(acc) > 0 {
		result.Errors = append(result.Errors, acc...)
		result.Valid = false
	}

	if result.Valid {
		available, err := m.reservations.Availability(ctx, companyID, in.ProductID, in.SourceLocationID)
		if err != nil {
			return nil, nil, err
		}
		if available < in.QuantityRequested {
			result.AddError(constraint.CodeBusinessRule, "quantityRequested",
				fmt.Sprintf("disponibilidad insuficiente en %s: %d disponibles, %d solicitadas",
					in.SourceLocationID, available, in.QuantityRequested))
		}
	}
	if !result.Valid {
		return nil, result, result.AsError()
	}

	priority := entity.TransferPriority(in.Priority)
	if in.Priority == "" {
		priority = entity.PriorityNormal
	}
	now := m.clk.Now()
	t := &entity.Transfer{
		ID:                    m.ids.NewID(),
		CompanyID:             companyID,
		ProductID:             in.ProductID,
		SourceLocationID:      in.SourceLocationID,
		DestinationLocationID: in.DestinationLocationID,
		QuantityRequested:     in.QuantityRequested,
		Status:                entity.TransferStatusRequested,
		Priority:              priority,
		Version:               1,
		RequestedBy:           userID,
		RequestedAt:           now,
		UpdatedAt:             now,
	}
	snapshot, err := json.Marshal(t)
	if err != nil {
		return nil, nil, fmt.Errorf("serializar snapshot: %w", err)
	}

	err = m.txRunner.Run(ctx, func(
		transferRepo repository.TransferRepository,
		reservationRepo repository.ReservationRepository,
		stockRepo repository.StockLevelRepository,
		auditRepo repository.AuditLogRepository,
	) error {
		if err := transferRepo.Create(ctx, t); err != nil {
			return err
		}
		return auditRepo.Create(ctx, &entity.AuditLogEntry{
			ID:          m.ids.NewID(),
			CompanyID:   companyID,
			Domain:      entity.AuditDomainTransfer,
			SubjectID:   t.ID,
			Action:      entity.AuditActionCreated,
			NewStatus:   t.Status.String(),
			NewValues:   snapshot,
			PerformedBy: userID,
			PerformedAt: now,
		})
	})
	if err != nil {
		return nil, nil, err
	}

	if priority == entity.PriorityEmergency {
		m.notifyBestEffort(ctx, t, "transfer.emergency_requested")
	}
	return t, result, nil
}

// ValidateTransition valida sin ejecutar, acumulando todas las violaciones.
// La falta de motivo de varianza con merma es advertencia, no error.
func (m *StateMachine) ValidateTransition(t *entity.Transfer, to entity.TransferStatus, in TransitionInput) *domain.ValidationResult {
	result := domain.NewValidationResult()

	if t.CompanyID != in.CompanyID {
		result.AddError(CodeStateTransition, "companyId", domain.ErrNotFound.Error())
		return result
	}

	if !t.Status.CanTransitionTo(to) {
		allowed := t.Status.AllowedTransitions()
		names := make([]string, len(allowed))
		for i, s := range allowed {
			names[i] = s.String()
		}
		result.AddError(CodeStateTransition, "status",
			(&domain.StateTransitionError{
				EntityKind: "traslado",
				From:       t.Status.String(),
				To:         to.String(),
				Allowed:    names,
			}).Error())
		return result
	}

	switch to {
	case entity.TransferStatusCancelled:
		if in.Reason == "" {
			result.AddError(constraint.CodeBusinessRule, "reason", "cancelar un traslado requiere motivo")
		}
	case entity.TransferStatusShipped:
		if in.Shipping == nil {
			result.AddError(constraint.CodeBusinessRule, "shipping", "datos de despacho requeridos")
			break
		}
		if in.Shipping.QuantityShipped <= 0 {
			result.AddError(constraint.CodeBusinessRule, "quantityShipped", "la cantidad despachada debe ser mayor que cero")
		}
		if in.Shipping.QuantityShipped > t.QuantityRequested {
			result.AddError(constraint.CodeBusinessRule, "quantityShipped",
				fmt.Sprintf("no se puede despachar %d: el traslado solicitó %d",
					in.Shipping.QuantityShipped, t.QuantityRequested))
		}
	case entity.TransferStatusReceived:
		if in.Receiving == nil {
			result.AddError(constraint.CodeBusinessRule, "receiving", "datos de recepción requeridos")
			break
		}
		if in.Receiving.QuantityReceived < 0 {
			result.AddError(constraint.CodeBusinessRule, "quantityReceived", "la cantidad recibida no puede ser negativa")
		}
		if in.Receiving.QuantityReceived > t.QuantityShipped {
			result.AddError(constraint.CodeBusinessRule, "quantityReceived",
				fmt.Sprintf("no se puede recibir %d: solo se despacharon %d",
					in.Receiving.QuantityReceived, t.QuantityShipped))
		}
		if in.Receiving.QuantityReceived < t.QuantityShipped && in.Receiving.VarianceReason == "" {
			result.AddWarning(constraint.CodeBusinessRule, "varianceReason",
				fmt.Sprintf("merma de %d unidades sin motivo registrado",
					t.QuantityShipped-in.Receiving.QuantityReceived))
		}
	}
	return result
}

// ExecuteTransition recarga el traslado, re-valida, chequea acceso del actor y
// aplica la transición con compare-and-swap. Auditoría y movimiento de stock
// van en la misma transacción; varianza y notificación después del commit.
func (m *StateMachine) ExecuteTransition(ctx context.Context, transferID string, to entity.TransferStatus, in TransitionInput) (*entity.Transfer, *domain.ValidationResult, error) {
	t, err := m.transferRepo.GetByID(ctx, transferID, in.CompanyID)
	if err != nil {
		return nil, nil, err
	}

	result := m.ValidateTransition(t, to, in)
	if result.Valid {
		// Acceso por rol/ubicación: staff opera su ubicación; la recepción
		// ocurre en destino, el resto en origen.
		user, err := m.userRepo.GetByID(ctx, in.UserID, in.CompanyID)
		if err != nil {
			return nil, nil, err
		}
		location := t.SourceLocationID
		if to == entity.TransferStatusReceived {
			location = t.DestinationLocationID
		}
		if acc := constraint.CheckLocationAccess(user, location); len(acc) > 0 {
			result.Errors = append(result.Errors, acc...)
			result.Valid = false
		}
	}
	if !result.Valid {
		return nil, result, result.AsError()
	}

	oldSnapshot, err := json.Marshal(t)
	if err != nil {
		return nil, nil, fmt.Errorf("serializar snapshot: %w", err)
	}
	oldStatus := t.Status
	expectedVersion := t.Version
	now := m.clk.Now()

	var action string
	switch to {
	case entity.TransferStatusApproved:
		t.ApprovedBy = &in.UserID
		t.ApprovedAt = &now
		action = entity.AuditActionApproved
	case entity.TransferStatusCancelled:
		t.CancelledBy = &in.UserID
		t.CancelledAt = &now
		t.CancelReason = in.Reason
		// Rechazo de solicitud vs cancelación de traslado ya aprobado
		if oldStatus == entity.TransferStatusRequested {
			action = entity.AuditActionRejected
		} else {
			action = entity.AuditActionCancelled
		}
	case entity.TransferStatusShipped:
		t.QuantityShipped = in.Shipping.QuantityShipped
		t.ShippedBy = &in.UserID
		t.ShippedAt = &now
		action = entity.AuditActionShipped
	case entity.TransferStatusReceived:
		t.QuantityReceived = in.Receiving.QuantityReceived
		t.ReceivedBy = &in.UserID
		t.ReceivedAt = &now
		t.VarianceReason = in.Receiving.VarianceReason
		action = entity.AuditActionReceived
	}
	t.Status = to
	t.UpdatedAt = now
	t.Version = expectedVersion + 1

	newSnapshot, err := json.Marshal(t)
	if err != nil {
		return nil, nil, fmt.Errorf("serializar snapshot: %w", err)
	}

	err = m.txRunner.Run(ctx, func(
		transferRepo repository.TransferRepository,
		reservationRepo repository.ReservationRepository,
		stockRepo repository.StockLevelRepository,
		auditRepo repository.AuditLogRepository,
	) error {
		if err := transferRepo.UpdateStatus(ctx, t, expectedVersion); err != nil {
			return err
		}
		if to == entity.TransferStatusReceived {
			// El físico se mueve al confirmar la recepción: sale del origen lo
			// despachado y entra al destino lo que llegó; la merma queda en la
			// alerta de varianza. Mientras el traslado va en ruta el despacho
			// descuenta disponibilidad vía su reserva o el término de tránsito,
			// nunca del on-hand.
			if err := stockRepo.Adjust(ctx, t.CompanyID, t.ProductID, t.SourceLocationID, -t.QuantityShipped); err != nil {
				return err
			}
			if t.QuantityReceived > 0 {
				if err := stockRepo.Adjust(ctx, t.CompanyID, t.ProductID, t.DestinationLocationID, t.QuantityReceived); err != nil {
					return err
				}
			}
		}
		if to == entity.TransferStatusReceived || to == entity.TransferStatusCancelled {
			// La reserva del despacho se libera junto con el cambio de estado
			r, err := reservationRepo.GetByTransfer(ctx, t.ID, t.CompanyID)
			switch {
			case err == nil:
				if r.ReleasedAt == nil {
					if err := reservationRepo.Release(ctx, r.ID, now); err != nil {
						return err
					}
				}
			case !errors.Is(err, domain.ErrNotFound):
				return err
			}
		}
		return auditRepo.Create(ctx, &entity.AuditLogEntry{
			ID:          m.ids.NewID(),
			CompanyID:   t.CompanyID,
			Domain:      entity.AuditDomainTransfer,
			SubjectID:   t.ID,
			Action:      action,
			OldStatus:   oldStatus.String(),
			NewStatus:   to.String(),
			OldValues:   oldSnapshot,
			NewValues:   newSnapshot,
			PerformedBy: in.UserID,
			PerformedAt: now,
			Notes:       in.Reason,
		})
	})
	if err != nil {
		return nil, nil, err
	}

	// Efectos post-commit. La reserva al despachar es reintentable: si falla,
	// el traslado ya quedó SHIPPED y el caller puede volver a despachar la
	// reserva sin repetir la transición (unicidad por traslado la hace segura).
	// Mientras tanto la disponibilidad sigue protegida por el término de
	// tránsito, que cubre todo despacho sin reserva activa.
	if to == entity.TransferStatusShipped {
		if _, err := m.reservations.Reserve(ctx, t.CompanyID, t.ID, t.ProductID, t.SourceLocationID, t.QuantityShipped, m.ttl); err != nil {
			m.log.Error().Err(err).Str("transfer_id", t.ID).Msg("no se pudo crear la reserva del despacho")
		}
	}

	if to == entity.TransferStatusReceived && t.Variance() > 0 {
		reason := ""
		notes := ""
		if in.Receiving != nil {
			reason = in.Receiving.VarianceReason
			notes = in.Receiving.Notes
		}
		if _, err := m.varianceSvc.EvaluateShrinkage(ctx, t, reason, notes); err != nil {
			m.log.Error().Err(err).Str("transfer_id", t.ID).Msg("evaluación de varianza fallida")
		}
	}

	m.notifyBestEffort(ctx, t, "transfer."+action)
	return t, result, nil
}

// notifyBestEffort el fallo del sink se registra y se ignora.
func (m *StateMachine) notifyBestEffort(ctx context.Context, t *entity.Transfer, kind string) {
	event := ports.Event{
		Kind:      kind,
		CompanyID: t.CompanyID,
		SubjectID: t.ID,
		Message:   fmt.Sprintf("traslado %s (%s → %s): %s", t.ID, t.SourceLocationID, t.DestinationLocationID, t.Status),
		Data:      map[string]string{"priority": string(t.Priority)},
	}
	if err := m.notifier.Notify(ctx, t.RequestedBy, event); err != nil {
		m.log.Warn().Err(err).Str("transfer_id", t.ID).Msg("notificación fallida (ignorada)")
	}
}

// AllowedOperations operaciones disponibles para el estado actual, derivadas
// de la misma tabla que usa la máquina.
func (m *StateMachine) AllowedOperations(s entity.TransferStatus) []string {
	return constraint.AllowedTransferOperations(s)
}
