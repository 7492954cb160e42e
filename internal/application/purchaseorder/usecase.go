package purchaseorder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jhoicas/Compras-api/internal/application/dto"
	"github.com/jhoicas/Compras-api/internal/application/ports"
	"github.com/jhoicas/Compras-api/internal/domain"
	"github.com/jhoicas/Compras-api/internal/domain/entity"
	"github.com/jhoicas/Compras-api/internal/domain/repository"
	"github.com/jhoicas/Compras-api/pkg/clock"
	"github.com/jhoicas/Compras-api/pkg/logger"
	"github.com/jhoicas/Compras-api/pkg/validator"
)

// Código de violación para transiciones ilegales reportadas por Validate.
const CodeStateTransition = "STATE_TRANSITION"

// StateMachine máquina de estados de órdenes de compra:
// DRAFT → APPROVED → RECEIVED, con CANCELLED desde DRAFT o APPROVED.
// Cada transición exitosa deja exactamente una entrada de auditoría con
// snapshots completos antes/después, en la misma transacción.
type StateMachine struct {
	txRunner TxRunner
	poRepo   repository.PurchaseOrderRepository
	numbers  PONumberGenerator
	notifier ports.Notifier
	clk      clock.Clock
	ids      clock.IDGenerator
	log      *logger.Logger
}

// NewStateMachine construye la máquina de estados.
func NewStateMachine(
	txRunner TxRunner,
	poRepo repository.PurchaseOrderRepository,
	numbers PONumberGenerator,
	notifier ports.Notifier,
	clk clock.Clock,
	ids clock.IDGenerator,
	log *logger.Logger,
) *StateMachine {
	return &StateMachine{
		txRunner: txRunner,
		poRepo:   poRepo,
		numbers:  numbers,
		notifier: notifier,
		clk:      clk,
		ids:      ids,
		log:      log,
	}
}

// TransitionContext quién pide la transición y por qué.
type TransitionContext struct {
	CompanyID string
	UserID    string
	Reason    string
}

// CanTransition consulta pura de la tabla de transiciones: sin efectos,
// idempotente entre llamadas.
func (m *StateMachine) CanTransition(from, to entity.POStatus) bool {
	return from.CanTransitionTo(to)
}

// ValidateTransition valida sin ejecutar. Acumula TODAS las violaciones en
// vez de cortar en la primera.
func (m *StateMachine) ValidateTransition(po *entity.PurchaseOrder, to entity.POStatus, tctx TransitionContext) *domain.ValidationResult {
	result := domain.NewValidationResult()

	if po.CompanyID != tctx.CompanyID {
		// Igual que inexistente: no revelar existencia entre empresas
		result.AddError(CodeStateTransition, "companyId", domain.ErrNotFound.Error())
		return result
	}

	if !po.Status.CanTransitionTo(to) {
		allowed := po.Status.AllowedTransitions()
		names := make([]string, len(allowed))
		for i, s := range allowed {
			names[i] = s.String()
		}
		result.AddError(CodeStateTransition, "status",
			(&domain.StateTransitionError{
				EntityKind: "orden de compra",
				From:       po.Status.String(),
				To:         to.String(),
				Allowed:    names,
			}).Error())
		return result
	}

	switch to {
	case entity.POStatusApproved:
		if len(po.Items) == 0 {
			result.AddError("BUSINESS_RULE", "items", "no se puede aprobar una orden sin líneas")
		}
		for _, it := range po.Items {
			if it.QuantityOrdered <= 0 {
				result.AddError("BUSINESS_RULE", "items",
					fmt.Sprintf("línea %s: cantidad ordenada debe ser mayor que cero", it.ID))
			}
			if it.UnitPriceCents < 0 {
				result.AddError("BUSINESS_RULE", "items",
					fmt.Sprintf("línea %s: precio unitario no puede ser negativo", it.ID))
			}
		}
	case entity.POStatusReceived:
		if po.PONumber == nil || *po.PONumber == "" {
			result.AddError("BUSINESS_RULE", "poNumber", "no se puede recibir una orden sin número asignado")
		}
	case entity.POStatusCancelled:
		if po.Status == entity.POStatusApproved && tctx.Reason == "" {
			result.AddError("BUSINESS_RULE", "reason", "cancelar una orden aprobada requiere motivo")
		}
	}

	return result
}

// ExecuteTransition recarga la orden, re-valida y aplica la transición con
// compare-and-swap de versión. La entrada de auditoría se escribe en la misma
// transacción; la notificación va después del commit y es best-effort.
func (m *StateMachine) ExecuteTransition(ctx context.Context, poID string, to entity.POStatus, tctx TransitionContext) (*entity.PurchaseOrder, error) {
	po, err := m.poRepo.GetByID(ctx, poID, tctx.CompanyID)
	if err != nil {
		return nil, err
	}

	if result := m.ValidateTransition(po, to, tctx); !result.Valid {
		return nil, result.AsError()
	}

	oldSnapshot, err := json.Marshal(po)
	if err != nil {
		return nil, fmt.Errorf("serializar snapshot: %w", err)
	}
	oldStatus := po.Status
	expectedVersion := po.Version
	now := m.clk.Now()

	var action string
	switch to {
	case entity.POStatusApproved:
		number, err := m.numbers.Generate(ctx, tctx.CompanyID)
		if err != nil {
			return nil, fmt.Errorf("generar número de orden: %w", err)
		}
		po.PONumber = &number
		po.ApprovedBy = &tctx.UserID
		po.ApprovedAt = &now
		action = entity.AuditActionApproved
	case entity.POStatusReceived:
		po.ReceivedBy = &tctx.UserID
		po.ReceivedAt = &now
		action = entity.AuditActionReceived
	case entity.POStatusCancelled:
		po.CancelledBy = &tctx.UserID
		po.CancelledAt = &now
		po.CancelReason = tctx.Reason
		action = entity.AuditActionCancelled
	}
	po.Status = to
	po.UpdatedAt = now
	po.Version = expectedVersion + 1

	newSnapshot, err := json.Marshal(po)
	if err != nil {
		return nil, fmt.Errorf("serializar snapshot: %w", err)
	}

	err = m.txRunner.Run(ctx, func(
		poRepo repository.PurchaseOrderRepository,
		itemRepo repository.POItemRepository,
		priceRepo repository.POPriceHistoryRepository,
		auditRepo repository.AuditLogRepository,
	) error {
		if err := poRepo.UpdateStatus(ctx, po, expectedVersion); err != nil {
			return err
		}
		// Historial de precios: un registro por línea al aprobar
		if to == entity.POStatusApproved {
			for _, it := range po.Items {
				h := &entity.POPriceHistory{
					ID:             m.ids.NewID(),
					CompanyID:      po.CompanyID,
					ProductID:      it.ProductID,
					SupplierID:     po.SupplierID,
					POID:           po.ID,
					UnitPriceCents: it.UnitPriceCents,
					RecordedAt:     now,
				}
				if err := priceRepo.Create(ctx, h); err != nil {
					return fmt.Errorf("registrar precio histórico: %w", err)
				}
			}
		}
		return auditRepo.Create(ctx, &entity.AuditLogEntry{
			ID:          m.ids.NewID(),
			CompanyID:   po.CompanyID,
			Domain:      entity.AuditDomainPurchaseOrder,
			SubjectID:   po.ID,
			Action:      action,
			OldStatus:   oldStatus.String(),
			NewStatus:   to.String(),
			OldValues:   oldSnapshot,
			NewValues:   newSnapshot,
			PerformedBy: tctx.UserID,
			PerformedAt: now,
			Notes:       tctx.Reason,
		})
	})
	if err != nil {
		return nil, err
	}

	m.notifyBestEffort(ctx, po, action)
	return po, nil
}

// notifyBestEffort un fallo del sink se registra y se ignora: la transición ya
// quedó confirmada.
func (m *StateMachine) notifyBestEffort(ctx context.Context, po *entity.PurchaseOrder, action string) {
	event := ports.Event{
		Kind:      "po." + action,
		CompanyID: po.CompanyID,
		SubjectID: po.ID,
		Message:   fmt.Sprintf("orden de compra %s: %s", po.ID, action),
	}
	if po.PONumber != nil {
		event.Data = map[string]string{"poNumber": *po.PONumber}
	}
	if err := m.notifier.Notify(ctx, po.CreatedBy, event); err != nil {
		m.log.Warn().Err(err).Str("po_id", po.ID).Msg("notificación fallida (ignorada)")
	}
}

// Create da de alta una orden en DRAFT con sus líneas y deja el rastro de
// auditoría de creación.
func (m *StateMachine) Create(ctx context.Context, companyID, userID string, in dto.CreatePurchaseOrderRequest) (*entity.PurchaseOrder, error) {
	if errs := validator.ValidateStruct(in); len(errs) > 0 {
		return nil, &domain.ValidationError{Field: errs[0].FailedField, Message: "validación fallida: " + errs[0].Tag}
	}

	now := m.clk.Now()
	po := &entity.PurchaseOrder{
		ID:         m.ids.NewID(),
		CompanyID:  companyID,
		SupplierID: in.SupplierID,
		Status:     entity.POStatusDraft,
		Version:    1,
		CreatedBy:  userID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	var total int64
	for _, line := range in.Items {
		item := &entity.POItem{
			ID:              m.ids.NewID(),
			POID:            po.ID,
			ProductID:       line.ProductID,
			QuantityOrdered: line.QuantityOrdered,
			UnitPriceCents:  line.UnitPriceCents,
		}
		po.Items = append(po.Items, item)
		total += line.QuantityOrdered * line.UnitPriceCents
	}
	po.TotalCostCents = total

	snapshot, err := json.Marshal(po)
	if err != nil {
		return nil, fmt.Errorf("serializar snapshot: %w", err)
	}

	err = m.txRunner.Run(ctx, func(
		poRepo repository.PurchaseOrderRepository,
		itemRepo repository.POItemRepository,
		priceRepo repository.POPriceHistoryRepository,
		auditRepo repository.AuditLogRepository,
	) error {
		if err := poRepo.Create(ctx, po); err != nil {
			return err
		}
		for _, it := range po.Items {
			if err := itemRepo.Create(ctx, it); err != nil {
				return err
			}
		}
		return auditRepo.Create(ctx, &entity.AuditLogEntry{
			ID:          m.ids.NewID(),
			CompanyID:   companyID,
			Domain:      entity.AuditDomainPurchaseOrder,
			SubjectID:   po.ID,
			Action:      entity.AuditActionCreated,
			NewStatus:   po.Status.String(),
			NewValues:   snapshot,
			PerformedBy: userID,
			PerformedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}
