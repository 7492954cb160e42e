package purchaseorder_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/Compras-api/internal/application/ports"
	"github.com/jhoicas/Compras-api/internal/domain"
	"github.com/jhoicas/Compras-api/internal/domain/entity"
	"github.com/jhoicas/Compras-api/internal/domain/repository"
)

// Dobles en memoria para la máquina de estados de órdenes de compra. Imitan la
// semántica de los adaptadores de postgres: scope por empresa, ErrNotFound y
// compare-and-swap por versión.

type memPORepo struct {
	mu     sync.Mutex
	orders map[string]*entity.PurchaseOrder
	// afterGet se invoca tras cada GetByID; permite simular a otro proceso
	// modificando la orden entre la lectura y el update condicional.
	afterGet func()
}

func newMemPORepo() *memPORepo {
	return &memPORepo{orders: map[string]*entity.PurchaseOrder{}}
}

func clonePO(po *entity.PurchaseOrder) *entity.PurchaseOrder {
	cp := *po
	cp.Items = make([]*entity.POItem, len(po.Items))
	for i, it := range po.Items {
		itc := *it
		cp.Items[i] = &itc
	}
	return &cp
}

func (m *memPORepo) Create(_ context.Context, po *entity.PurchaseOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[po.ID]; ok {
		return domain.ErrDuplicate
	}
	m.orders[po.ID] = clonePO(po)
	return nil
}

func (m *memPORepo) GetByID(_ context.Context, id, companyID string) (*entity.PurchaseOrder, error) {
	m.mu.Lock()
	po, ok := m.orders[id]
	if !ok || po.CompanyID != companyID {
		m.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	cp := clonePO(po)
	m.mu.Unlock()
	if m.afterGet != nil {
		m.afterGet()
	}
	return cp, nil
}

func (m *memPORepo) UpdateStatus(_ context.Context, po *entity.PurchaseOrder, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[po.ID]
	if !ok || stored.CompanyID != po.CompanyID || stored.Version != expectedVersion {
		return domain.ErrConcurrency
	}
	m.orders[po.ID] = clonePO(po)
	return nil
}

func (m *memPORepo) ListByCompany(_ context.Context, companyID string, status *entity.POStatus, _, _ int) ([]*entity.PurchaseOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.PurchaseOrder
	for _, po := range m.orders {
		if po.CompanyID != companyID {
			continue
		}
		if status != nil && po.Status != *status {
			continue
		}
		out = append(out, clonePO(po))
	}
	return out, nil
}

// bump incrementa la versión almacenada, como lo haría otro proceso.
func (m *memPORepo) bump(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if po, ok := m.orders[id]; ok {
		po.Version++
	}
}

type memPOItemRepo struct {
	mu    sync.Mutex
	items map[string]*entity.POItem
}

func newMemPOItemRepo() *memPOItemRepo {
	return &memPOItemRepo{items: map[string]*entity.POItem{}}
}

func (m *memPOItemRepo) Create(_ context.Context, item *entity.POItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *memPOItemRepo) GetByID(_ context.Context, id, _ string) (*entity.POItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *memPOItemRepo) ListByPO(_ context.Context, poID string) ([]*entity.POItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.POItem
	for _, it := range m.items {
		if it.POID == poID {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPOItemRepo) AddReceived(_ context.Context, id string, quantity int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	if it.QuantityReceived+quantity > it.QuantityOrdered {
		return domain.ErrConcurrency
	}
	it.QuantityReceived += quantity
	return nil
}

type memPriceRepo struct {
	mu      sync.Mutex
	entries []*entity.POPriceHistory
}

func (m *memPriceRepo) Create(_ context.Context, h *entity.POPriceHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *h
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memPriceRepo) ListByProduct(_ context.Context, companyID, productID string, _ int) ([]*entity.POPriceHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.POPriceHistory
	for _, h := range m.entries {
		if h.CompanyID == companyID && h.ProductID == productID {
			out = append(out, h)
		}
	}
	return out, nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*entity.AuditLogEntry
}

func (m *memAuditRepo) Create(_ context.Context, e *entity.AuditLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memAuditRepo) ListBySubject(_ context.Context, dom entity.AuditDomain, subjectID, companyID string, _, _ int) ([]*entity.AuditLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.AuditLogEntry
	for _, e := range m.entries {
		if e.Domain == dom && e.SubjectID == subjectID && e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memAuditRepo) last() *entity.AuditLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return nil
	}
	return m.entries[len(m.entries)-1]
}

// stubTxRunner pasa los repos en memoria a fn sin transacción real; los tests
// verifican que nada posterior a un error de fn quede escrito.
type stubTxRunner struct {
	po     *memPORepo
	items  *memPOItemRepo
	prices *memPriceRepo
	audit  *memAuditRepo
}

func (r *stubTxRunner) Run(_ context.Context, fn func(
	poRepo repository.PurchaseOrderRepository,
	itemRepo repository.POItemRepository,
	priceRepo repository.POPriceHistoryRepository,
	auditRepo repository.AuditLogRepository,
) error) error {
	return fn(r.po, r.items, r.prices, r.audit)
}

// seqNumbers generador de números predecible para tests.
type seqNumbers struct {
	mu sync.Mutex
	n  int
}

func (g *seqNumbers) Generate(_ context.Context, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("PO-2026-%06d", g.n), nil
}

func (g *seqNumbers) IsUnique(_ context.Context, _, _ string) (bool, error) {
	return true, nil
}

// captureNotifier registra los eventos emitidos; con fail=true simula un sink caído.
type captureNotifier struct {
	mu     sync.Mutex
	fail   bool
	events []ports.Event
}

func (n *captureNotifier) Notify(_ context.Context, _ string, event ports.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return fmt.Errorf("sink de notificaciones caído")
	}
	n.events = append(n.events, event)
	return nil
}

func (n *captureNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.Kind
	}
	return out
}
