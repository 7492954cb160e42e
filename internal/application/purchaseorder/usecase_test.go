package purchaseorder_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Compras-api/internal/application/dto"
	"github.com/jhoicas/Compras-api/internal/application/purchaseorder"
	"github.com/jhoicas/Compras-api/internal/domain"
	"github.com/jhoicas/Compras-api/internal/domain/entity"
	"github.com/jhoicas/Compras-api/pkg/clock"
	"github.com/jhoicas/Compras-api/pkg/logger"
)

type poFixture struct {
	sm       *purchaseorder.StateMachine
	poRepo   *memPORepo
	prices   *memPriceRepo
	audit    *memAuditRepo
	notifier *captureNotifier
	clk      *clock.Fixed
}

func newPOFixture() *poFixture {
	poRepo := newMemPORepo()
	items := newMemPOItemRepo()
	prices := &memPriceRepo{}
	audit := &memAuditRepo{}
	notifier := &captureNotifier{}
	clk := clock.NewFixed(time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC))

	sm := purchaseorder.NewStateMachine(
		&stubTxRunner{po: poRepo, items: items, prices: prices, audit: audit},
		poRepo,
		&seqNumbers{},
		notifier,
		clk,
		clock.NewSequentialIDs("id"),
		logger.Nop(),
	)
	return &poFixture{sm: sm, poRepo: poRepo, prices: prices, audit: audit, notifier: notifier, clk: clk}
}

func (f *poFixture) seed(status entity.POStatus, items ...*entity.POItem) *entity.PurchaseOrder {
	po := &entity.PurchaseOrder{
		ID:         "po-1",
		CompanyID:  "company-1",
		SupplierID: "supplier-1",
		Status:     status,
		Version:    1,
		Items:      items,
		CreatedBy:  "user-1",
		CreatedAt:  f.clk.Now(),
		UpdatedAt:  f.clk.Now(),
	}
	if status != entity.POStatusDraft {
		number := "PO-2026-000099"
		po.PONumber = &number
	}
	_ = f.poRepo.Create(context.Background(), po)
	return po
}

func lineaValida() *entity.POItem {
	return &entity.POItem{ID: "item-1", POID: "po-1", ProductID: "prod-1", QuantityOrdered: 100, UnitPriceCents: 2_500}
}

// ── Create ────────────────────────────────────────────────────────────────────

func TestCreate_AltaEnDraftConAuditoria(t *testing.T) {
	f := newPOFixture()

	po, err := f.sm.Create(context.Background(), "company-1", "user-1", dto.CreatePurchaseOrderRequest{
		SupplierID: "supplier-1",
		Items: []dto.CreatePOItemRequest{
			{ProductID: "prod-1", QuantityOrdered: 100, UnitPriceCents: 2_500},
			{ProductID: "prod-2", QuantityOrdered: 10, UnitPriceCents: 900},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, entity.POStatusDraft, po.Status)
	assert.Equal(t, int64(1), po.Version)
	assert.Nil(t, po.PONumber, "el número se asigna al aprobar, no antes")
	assert.Equal(t, int64(100*2_500+10*900), po.TotalCostCents)
	require.Len(t, po.Items, 2)

	entry := f.audit.last()
	require.NotNil(t, entry, "la creación deja rastro de auditoría")
	assert.Equal(t, entity.AuditActionCreated, entry.Action)
	assert.Equal(t, entity.AuditDomainPurchaseOrder, entry.Domain)
	assert.Equal(t, po.ID, entry.SubjectID)
	assert.NotEmpty(t, entry.NewValues, "el snapshot completo queda en la entrada")
}

func TestCreate_ProveedorRequerido(t *testing.T) {
	f := newPOFixture()

	_, err := f.sm.Create(context.Background(), "company-1", "user-1", dto.CreatePurchaseOrderRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

// ── ValidateTransition / ExecuteTransition ────────────────────────────────────

func TestExecuteTransition_AprobarAsignaNumeroYAudita(t *testing.T) {
	f := newPOFixture()
	f.seed(entity.POStatusDraft, lineaValida())
	tctx := purchaseorder.TransitionContext{CompanyID: "company-1", UserID: "user-2"}

	po, err := f.sm.ExecuteTransition(context.Background(), "po-1", entity.POStatusApproved, tctx)
	require.NoError(t, err)

	assert.Equal(t, entity.POStatusApproved, po.Status)
	require.NotNil(t, po.PONumber)
	assert.Equal(t, "PO-2026-000001", *po.PONumber)
	require.NotNil(t, po.ApprovedBy)
	assert.Equal(t, "user-2", *po.ApprovedBy)
	assert.Equal(t, int64(2), po.Version, "cada transición incrementa la versión")

	entry := f.audit.last()
	require.NotNil(t, entry)
	assert.Equal(t, entity.AuditActionApproved, entry.Action)
	assert.Equal(t, "DRAFT", entry.OldStatus)
	assert.Equal(t, "APPROVED", entry.NewStatus)
	assert.NotEmpty(t, entry.OldValues)
	assert.NotEmpty(t, entry.NewValues)

	require.Len(t, f.prices.entries, 1, "al aprobar se registra el precio histórico por línea")
	assert.Equal(t, int64(2_500), f.prices.entries[0].UnitPriceCents)

	assert.Equal(t, []string{"po.APPROVED"}, f.notifier.kinds())
}

func TestExecuteTransition_AprobarAcumulaTodasLasViolaciones(t *testing.T) {
	f := newPOFixture()
	f.seed(entity.POStatusDraft,
		&entity.POItem{ID: "item-1", POID: "po-1", ProductID: "prod-1", QuantityOrdered: 0, UnitPriceCents: 100},
		&entity.POItem{ID: "item-2", POID: "po-1", ProductID: "prod-2", QuantityOrdered: 5, UnitPriceCents: -1},
	)
	tctx := purchaseorder.TransitionContext{CompanyID: "company-1", UserID: "user-2"}

	_, err := f.sm.ExecuteTransition(context.Background(), "po-1", entity.POStatusApproved, tctx)
	require.Error(t, err)

	var cve *domain.ConstraintViolationError
	require.ErrorAs(t, err, &cve)
	assert.Len(t, cve.Violations, 2, "se reportan todas las líneas inválidas, no solo la primera")
}

func TestExecuteTransition_AprobarSinLineas(t *testing.T) {
	f := newPOFixture()
	f.seed(entity.POStatusDraft)
	tctx := purchaseorder.TransitionContext{CompanyID: "company-1", UserID: "user-2"}

	_, err := f.sm.ExecuteTransition(context.Background(), "po-1", entity.POStatusApproved, tctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sin líneas")
}

func TestExecuteTransition_TransicionIlegalListaLasPermitidas(t *testing.T) {
	f := newPOFixture()
	f.seed(entity.POStatusDraft, lineaValida())
	tctx := purchaseorder.TransitionContext{CompanyID: "company-1", UserID: "user-2"}

	_, err := f.sm.ExecuteTransition(context.Background(), "po-1", entity.POStatusReceived, tctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APPROVED")
	assert.Contains(t, err.Error(), "CANCELLED")
	assert.Nil(t, f.audit.last(), "una transición rechazada no deja auditoría")
}

func TestExecuteTransition_EstadoTerminalInmutable(t *testing.T) {
	f := newPOFixture()
	f.seed(entity.POStatusReceived, lineaValida())
	tctx := purchaseorder.TransitionContext{CompanyID: "company-1", UserID: "user-2", Reason: "x"}

	_, err := f.sm.ExecuteTransition(context.Background(), "po-1", entity.POStatusCancelled, tctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal")
}

func TestExecuteTransition_CancelarAprobadaRequiereMotivo(t *testing.T) {
	f := newPOFixture()
	f.seed(entity.POStatusApproved, lineaValida())

	_, err := f.sm.ExecuteTransition(context.Background(), "po-1", entity.POStatusCancelled,
		purchaseorder.TransitionContext{CompanyID: "company-1", UserID: "user-2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "motivo")

	po, err := f.sm.ExecuteTransition(context.Background(), "po-1", entity.POStatusCancelled,
		purchaseorder.TransitionContext{CompanyID: "company-1", UserID: "user-2", Reason: "proveedor incumplido"})
	require.NoError(t, err)
	assert.Equal(t, "proveedor incumplido", po.CancelReason)
	assert.Equal(t, entity.AuditActionCancelled, f.audit.last().Action)
}

func TestExecuteTransition_RecibirRequiereNumeroAsignado(t *testing.T) {
	f := newPOFixture()
	po := f.seed(entity.POStatusApproved, lineaValida())
	po.PONumber = nil
	_ = f.poRepo.UpdateStatus(context.Background(), po, 1)
	tctx := purchaseorder.TransitionContext{CompanyID: "company-1", UserID: "user-2"}

	_, err := f.sm.ExecuteTransition(context.Background(), "po-1", entity.POStatusReceived, tctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "número")
}

func TestExecuteTransition_Recepcion(t *testing.T) {
	f := newPOFixture()
	f.seed(entity.POStatusApproved, lineaValida())
	tctx := purchaseorder.TransitionContext{CompanyID: "company-1", UserID: "user-3"}

	po, err := f.sm.ExecuteTransition(context.Background(), "po-1", entity.POStatusReceived, tctx)
	require.NoError(t, err)

	assert.Equal(t, entity.POStatusReceived, po.Status)
	require.NotNil(t, po.ReceivedBy)
	assert.Equal(t, "user-3", *po.ReceivedBy)
	assert.True(t, po.Status.IsTerminal())
}

func TestExecuteTransition_EmpresaAjenaComoInexistente(t *testing.T) {
	f := newPOFixture()
	f.seed(entity.POStatusDraft, lineaValida())
	tctx := purchaseorder.TransitionContext{CompanyID: "company-2", UserID: "user-2"}

	_, err := f.sm.ExecuteTransition(context.Background(), "po-1", entity.POStatusApproved, tctx)
	assert.True(t, errors.Is(err, domain.ErrNotFound),
		"una orden de otra empresa se reporta igual que una inexistente")
}

func TestExecuteTransition_ConflictoDeVersion(t *testing.T) {
	f := newPOFixture()
	f.seed(entity.POStatusDraft, lineaValida())
	// Otro proceso aprueba la misma orden entre la lectura y el update condicional
	f.poRepo.afterGet = func() { f.poRepo.bump("po-1") }
	tctx := purchaseorder.TransitionContext{CompanyID: "company-1", UserID: "user-2"}

	_, err := f.sm.ExecuteTransition(context.Background(), "po-1", entity.POStatusApproved, tctx)
	assert.True(t, errors.Is(err, domain.ErrConcurrency),
		"el perdedor de la carrera recibe conflicto, nunca un éxito silencioso")
	assert.Nil(t, f.audit.last(), "la transición perdedora no deja auditoría")
}

func TestExecuteTransition_NotificacionCaidaNoBloquea(t *testing.T) {
	f := newPOFixture()
	f.seed(entity.POStatusDraft, lineaValida())
	f.notifier.fail = true
	tctx := purchaseorder.TransitionContext{CompanyID: "company-1", UserID: "user-2"}

	po, err := f.sm.ExecuteTransition(context.Background(), "po-1", entity.POStatusApproved, tctx)
	require.NoError(t, err, "el sink caído no revierte una transición confirmada")
	assert.Equal(t, entity.POStatusApproved, po.Status)
}

func TestCanTransition_EsConsultaPura(t *testing.T) {
	f := newPOFixture()

	assert.True(t, f.sm.CanTransition(entity.POStatusDraft, entity.POStatusApproved))
	assert.False(t, f.sm.CanTransition(entity.POStatusDraft, entity.POStatusReceived))
	// Repetida con el mismo input da lo mismo y no toca repos
	assert.True(t, f.sm.CanTransition(entity.POStatusDraft, entity.POStatusApproved))
	assert.Nil(t, f.audit.last())
}
