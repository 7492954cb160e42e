package allocation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jhoicas/Compras-api/internal/application/dto"
	"github.com/jhoicas/Compras-api/internal/domain"
	domalloc "github.com/jhoicas/Compras-api/internal/domain/allocation"
	"github.com/jhoicas/Compras-api/internal/domain/constraint"
	"github.com/jhoicas/Compras-api/internal/domain/entity"
	"github.com/jhoicas/Compras-api/internal/domain/repository"
	"github.com/jhoicas/Compras-api/pkg/clock"
	"github.com/jhoicas/Compras-api/pkg/logger"
	"github.com/jhoicas/Compras-api/pkg/validator"
)

// TxRunner transacción con repos de asignación, líneas y auditoría atados:
// la recepción acumula sobre la línea en el mismo commit que la asignación.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		allocRepo repository.AllocationRepository,
		itemRepo repository.POItemRepository,
		auditRepo repository.AuditLogRepository,
	) error) error
}

// Engine coordina el cálculo puro de repartos (internal/domain/allocation) con
// la persistencia: guarda de sobre-asignación leída en vivo y alta de
// asignaciones con auditoría.
type Engine struct {
	txRunner  TxRunner
	allocRepo repository.AllocationRepository
	itemRepo  repository.POItemRepository
	userRepo  repository.UserRepository
	clk       clock.Clock
	ids       clock.IDGenerator
	log       *logger.Logger
}

// NewEngine construye el motor de asignación.
func NewEngine(
	txRunner TxRunner,
	allocRepo repository.AllocationRepository,
	itemRepo repository.POItemRepository,
	userRepo repository.UserRepository,
	clk clock.Clock,
	ids clock.IDGenerator,
	log *logger.Logger,
) *Engine {
	return &Engine{
		txRunner:  txRunner,
		allocRepo: allocRepo,
		itemRepo:  itemRepo,
		userRepo:  userRepo,
		clk:       clk,
		ids:       ids,
		log:       log,
	}
}

// ValidateAllocationMath lee en vivo las asignaciones existentes de la línea y
// verifica que la nueva cantidad no supere lo ordenado. Si excede, el
// resultado trae el excedente exacto.
func (e *Engine) ValidateAllocationMath(ctx context.Context, companyID, poItemID string, newQuantity int64) (*domalloc.MathResult, error) {
	item, err := e.itemRepo.GetByID(ctx, poItemID, companyID)
	if err != nil {
		return nil, err
	}
	existing, err := e.allocRepo.ListByPOItem(ctx, poItemID, companyID)
	if err != nil {
		return nil, err
	}
	r := domalloc.ValidateMath(item.QuantityOrdered, existing, newQuantity)
	return &r, nil
}

// CalculateUnallocatedQuantity cupo restante de la línea, consultado en vivo
// contra las asignaciones persistidas (no cacheado): los callers dimensionan
// la siguiente asignación con este valor.
func (e *Engine) CalculateUnallocatedQuantity(ctx context.Context, companyID, poItemID string) (int64, error) {
	item, err := e.itemRepo.GetByID(ctx, poItemID, companyID)
	if err != nil {
		return 0, err
	}
	allocated, err := e.allocRepo.SumAllocated(ctx, poItemID, companyID)
	if err != nil {
		return 0, err
	}
	return domalloc.UnallocatedQuantity(item.QuantityOrdered, allocated), nil
}

// CreateAllocation asignación manual contra una línea. Aplica reglas de
// cantidad y acceso del solver, la guarda de sobre-asignación, y persiste con
// auditoría en una transacción. Las advertencias se devuelven sin bloquear.
func (e *Engine) CreateAllocation(ctx context.Context, companyID, userID string, in dto.AllocationRequest) (*entity.Allocation, *domain.ValidationResult, error) {
	if errs := validator.ValidateStruct(in); len(errs) > 0 {
		return nil, nil, &domain.ValidationError{Field: errs[0].FailedField, Message: "validación fallida: " + errs[0].Tag}
	}

	result := domain.NewValidationResult()

	violations, warnings := constraint.CheckQuantity("quantityAllocated", in.Quantity)
	result.Errors = append(result.Errors, violations...)
	result.Warnings = append(result.Warnings, warnings...)
	if len(violations) > 0 {
		result.Valid = false
		return nil, result, result.AsError()
	}

	user, err := e.userRepo.GetByID(ctx, userID, companyID)
	if err != nil {
		return nil, nil, err
	}
	if acc := constraint.CheckLocationAccess(user, in.TargetLocationID); len(acc) > 0 {
		result.Errors = append(result.Errors, acc...)
		result.Valid = false
		return nil, result, result.AsError()
	}

	item, err := e.itemRepo.GetByID(ctx, in.POItemID, companyID)
	if err != nil {
		return nil, nil, err
	}
	existing, err := e.allocRepo.ListByPOItem(ctx, in.POItemID, companyID)
	if err != nil {
		return nil, nil, err
	}
	math := domalloc.ValidateMath(item.QuantityOrdered, existing, in.Quantity)
	if !math.Valid {
		result.AddError(constraint.CodeOverAllocation, "quantityAllocated",
			fmt.Sprintf("sobre-asignación de %d unidades: la línea ordenó %d y ya hay %d asignadas",
				math.OverAllocation, item.QuantityOrdered, math.CurrentTotal))
		return nil, result, result.AsError()
	}

	now := e.clk.Now()
	alloc := &entity.Allocation{
		ID:                e.ids.NewID(),
		CompanyID:         companyID,
		POItemID:          in.POItemID,
		TargetLocationID:  in.TargetLocationID,
		QuantityAllocated: in.Quantity,
		Status:            entity.AllocationStatusPending,
		Version:           1,
		CreatedBy:         userID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	snapshot, err := json.Marshal(alloc)
	if err != nil {
		return nil, nil, fmt.Errorf("serializar snapshot: %w", err)
	}

	err = e.txRunner.Run(ctx, func(
		allocRepo repository.AllocationRepository,
		_ repository.POItemRepository,
		auditRepo repository.AuditLogRepository,
	) error {
		if err := allocRepo.Create(ctx, alloc); err != nil {
			return err
		}
		return auditRepo.Create(ctx, &entity.AuditLogEntry{
			ID:          e.ids.NewID(),
			CompanyID:   companyID,
			Domain:      entity.AuditDomainAllocation,
			SubjectID:   alloc.ID,
			Action:      entity.AuditActionCreated,
			NewStatus:   alloc.Status.String(),
			NewValues:   snapshot,
			PerformedBy: userID,
			PerformedAt: now,
		})
	})
	if err != nil {
		return nil, nil, err
	}

	for _, w := range result.Warnings {
		e.log.Warn().Str("allocation_id", alloc.ID).Str("field", w.Field).Msg(w.Message)
	}
	return alloc, result, nil
}

// BuildPlan calcula el plan de reparto de una línea según estrategia, sin
// persistir nada: el sobrante queda para resolución manual.
func (e *Engine) BuildPlan(ctx context.Context, companyID, poItemID string, strategy entity.AllocationStrategy, locationIDs []string, percentages []domalloc.LocationPercent, amounts []domalloc.LocationAmount) (*domalloc.Plan, error) {
	item, err := e.itemRepo.GetByID(ctx, poItemID, companyID)
	if err != nil {
		return nil, err
	}
	return domalloc.CalculateOptimalAllocation(domalloc.PlanInput{
		Item:        item,
		LocationIDs: locationIDs,
		Strategy:    strategy,
		Percentages: percentages,
		Amounts:     amounts,
	})
}

// ConfirmAllocation compromete una asignación pendiente (PENDING → ALLOCATED).
// Solo una asignación comprometida puede empezar a recibir mercancía.
func (e *Engine) ConfirmAllocation(ctx context.Context, companyID, userID, allocationID string) (*entity.Allocation, error) {
	alloc, err := e.allocRepo.GetByID(ctx, allocationID, companyID)
	if err != nil {
		return nil, err
	}
	if !alloc.Status.CanTransitionTo(entity.AllocationStatusAllocated) {
		return nil, &domain.StateTransitionError{
			EntityKind: "asignación",
			From:       alloc.Status.String(),
			To:         entity.AllocationStatusAllocated.String(),
		}
	}

	oldSnapshot, err := json.Marshal(alloc)
	if err != nil {
		return nil, fmt.Errorf("serializar snapshot: %w", err)
	}
	oldStatus := alloc.Status
	expectedVersion := alloc.Version
	now := e.clk.Now()

	alloc.Status = entity.AllocationStatusAllocated
	alloc.UpdatedAt = now
	alloc.Version = expectedVersion + 1
	newSnapshot, err := json.Marshal(alloc)
	if err != nil {
		return nil, fmt.Errorf("serializar snapshot: %w", err)
	}

	err = e.txRunner.Run(ctx, func(
		allocRepo repository.AllocationRepository,
		_ repository.POItemRepository,
		auditRepo repository.AuditLogRepository,
	) error {
		if err := allocRepo.UpdateStatus(ctx, alloc, expectedVersion); err != nil {
			return err
		}
		return auditRepo.Create(ctx, &entity.AuditLogEntry{
			ID:          e.ids.NewID(),
			CompanyID:   companyID,
			Domain:      entity.AuditDomainAllocation,
			SubjectID:   alloc.ID,
			Action:      entity.AuditActionApproved,
			OldStatus:   oldStatus.String(),
			NewStatus:   alloc.Status.String(),
			OldValues:   oldSnapshot,
			NewValues:   newSnapshot,
			PerformedBy: userID,
			PerformedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return alloc, nil
}

// RecordReceipt registra mercancía recibida contra una asignación comprometida.
// Acumula sobre la asignación y sobre la línea en la misma transacción; la
// asignación queda PARTIALLY_RECEIVED hasta completar lo comprometido, y
// RECEIVED (terminal) al completarlo. Nunca se recibe más de lo asignado.
func (e *Engine) RecordReceipt(ctx context.Context, companyID, userID, allocationID string, quantity int64) (*entity.Allocation, error) {
	if quantity <= 0 {
		return nil, &domain.ValidationError{Field: "quantity", Message: "la cantidad recibida debe ser mayor que cero"}
	}
	alloc, err := e.allocRepo.GetByID(ctx, allocationID, companyID)
	if err != nil {
		return nil, err
	}

	accumulated := alloc.QuantityReceived + quantity
	if accumulated > alloc.QuantityAllocated {
		return nil, &domain.ValidationError{
			Field: "quantity",
			Message: fmt.Sprintf("no se puede recibir %d: la asignación comprometió %d y ya recibió %d",
				quantity, alloc.QuantityAllocated, alloc.QuantityReceived),
		}
	}
	target := entity.AllocationStatusPartiallyReceived
	if accumulated == alloc.QuantityAllocated {
		target = entity.AllocationStatusReceived
	}
	if !alloc.Status.CanTransitionTo(target) {
		return nil, &domain.StateTransitionError{
			EntityKind: "asignación",
			From:       alloc.Status.String(),
			To:         target.String(),
		}
	}

	oldSnapshot, err := json.Marshal(alloc)
	if err != nil {
		return nil, fmt.Errorf("serializar snapshot: %w", err)
	}
	oldStatus := alloc.Status
	expectedVersion := alloc.Version
	now := e.clk.Now()

	alloc.QuantityReceived = accumulated
	alloc.Status = target
	alloc.UpdatedAt = now
	alloc.Version = expectedVersion + 1
	newSnapshot, err := json.Marshal(alloc)
	if err != nil {
		return nil, fmt.Errorf("serializar snapshot: %w", err)
	}

	err = e.txRunner.Run(ctx, func(
		allocRepo repository.AllocationRepository,
		itemRepo repository.POItemRepository,
		auditRepo repository.AuditLogRepository,
	) error {
		if err := allocRepo.UpdateStatus(ctx, alloc, expectedVersion); err != nil {
			return err
		}
		// El acumulado de la línea sube junto con la asignación; el adaptador
		// rechaza si superaría lo ordenado
		if err := itemRepo.AddReceived(ctx, alloc.POItemID, quantity); err != nil {
			return err
		}
		return auditRepo.Create(ctx, &entity.AuditLogEntry{
			ID:          e.ids.NewID(),
			CompanyID:   companyID,
			Domain:      entity.AuditDomainAllocation,
			SubjectID:   alloc.ID,
			Action:      entity.AuditActionReceived,
			OldStatus:   oldStatus.String(),
			NewStatus:   alloc.Status.String(),
			OldValues:   oldSnapshot,
			NewValues:   newSnapshot,
			PerformedBy: userID,
			PerformedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return alloc, nil
}

// CancelAllocation libera el cupo de la asignación (CAS por versión) y audita.
func (e *Engine) CancelAllocation(ctx context.Context, companyID, userID, allocationID, reason string) error {
	alloc, err := e.allocRepo.GetByID(ctx, allocationID, companyID)
	if err != nil {
		return err
	}
	if !alloc.Status.CanTransitionTo(entity.AllocationStatusCancelled) {
		return &domain.StateTransitionError{
			EntityKind: "asignación",
			From:       alloc.Status.String(),
			To:         entity.AllocationStatusCancelled.String(),
		}
	}

	oldSnapshot, err := json.Marshal(alloc)
	if err != nil {
		return fmt.Errorf("serializar snapshot: %w", err)
	}
	oldStatus := alloc.Status
	expectedVersion := alloc.Version
	now := e.clk.Now()

	alloc.Status = entity.AllocationStatusCancelled
	alloc.UpdatedAt = now
	alloc.Version = expectedVersion + 1
	newSnapshot, err := json.Marshal(alloc)
	if err != nil {
		return fmt.Errorf("serializar snapshot: %w", err)
	}

	return e.txRunner.Run(ctx, func(
		allocRepo repository.AllocationRepository,
		_ repository.POItemRepository,
		auditRepo repository.AuditLogRepository,
	) error {
		if err := allocRepo.UpdateStatus(ctx, alloc, expectedVersion); err != nil {
			return err
		}
		return auditRepo.Create(ctx, &entity.AuditLogEntry{
			ID:          e.ids.NewID(),
			CompanyID:   companyID,
			Domain:      entity.AuditDomainAllocation,
			SubjectID:   alloc.ID,
			Action:      entity.AuditActionCancelled,
			OldStatus:   oldStatus.String(),
			NewStatus:   alloc.Status.String(),
			OldValues:   oldSnapshot,
			NewValues:   newSnapshot,
			PerformedBy: userID,
			PerformedAt: now,
			Notes:       reason,
		})
	})
}
